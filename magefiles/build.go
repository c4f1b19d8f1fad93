//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

// Build targets for organigrama.
//
//	mage build       compile bin/organigrama
//	mage install     copy the binary to GOPATH/bin
//	mage test:all    run every test
//	mage test:unit   run tests in -short mode
//	mage test:race   run every test under the race detector
//	mage test:cover  write coverage.out and print the per-function summary
//	mage lint        run golangci-lint
//	mage clean       remove build artifacts
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binaryName = "organigrama"
	binaryDir  = "bin"
	cmdDir     = "./cmd/organigrama"
)

// Build compiles the organigrama binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Clean removes build artifacts and coverage output.
func Clean() error {
	for _, p := range []string{binaryDir, coverProfile} {
		if err := os.RemoveAll(p); err != nil {
			return err
		}
	}
	return sh.RunV(binGo, "clean")
}

// Install builds and copies the binary to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output(binGo, "env", "GOPATH")
	if err != nil {
		return err
	}
	src := filepath.Join(binaryDir, binaryName)
	dst := filepath.Join(gopath, "bin", binaryName)
	return sh.Copy(dst, src)
}
