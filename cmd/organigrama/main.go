// Command organigrama edits organizational charts kept in a local database:
// workspaces, people, departments and the assignments between them, with
// JSON backups that can be exported, validated and imported.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mesh-intelligence/organigrama/pkg/types"
)

// Exit codes.
const (
	exitUserError = 1
	exitSysError  = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps errors the user can fix (bad input, missing records, bad
// backup files, partially imported backups) to exitUserError and everything
// else to exitSysError.
func exitCode(err error) int {
	if types.IsUserError(err) || errors.Is(err, types.ErrPartialImport) {
		return exitUserError
	}
	return exitSysError
}
