package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/organigrama/internal/live"
	"github.com/mesh-intelligence/organigrama/internal/orgchart"
	"github.com/mesh-intelligence/organigrama/internal/paths"
	"github.com/mesh-intelligence/organigrama/internal/prefs"
	"github.com/mesh-intelligence/organigrama/internal/sqlite"
	"github.com/mesh-intelligence/organigrama/pkg/types"
)

// prefsDir is the preference store directory inside the data dir.
const prefsDir = "prefs"

// app bundles the open store and the session one command works with.
type app struct {
	dataDir string
	prefs   *prefs.FileStore
	svc     *orgchart.Service
}

// openApp resolves the data directory, opens the store with its change hub
// and preference store, and restores the active workspace.
func openApp(cmd *cobra.Command) (*app, error) {
	ctx := cmd.Context()
	log := zerolog.Ctx(ctx)

	dataDir, err := paths.ResolveDataDir(flags.dataDir, settings.GetString(cfgKeyDataDir))
	if err != nil {
		return nil, fmt.Errorf("resolving data dir: %w", err)
	}
	p, err := prefs.NewFileStore(filepath.Join(dataDir, prefsDir))
	if err != nil {
		return nil, fmt.Errorf("opening preferences: %w", err)
	}

	cfg := types.Config{
		Backend:     types.BackendSQLite,
		DataDir:     dataDir,
		BusyRetries: settings.GetInt(cfgKeyBusyRetry),
	}
	hub := live.NewHub()
	store, err := sqlite.Open(ctx, cfg,
		sqlite.WithLogger(*log),
		sqlite.WithNotifier(hub),
		sqlite.WithPrefs(p),
	)
	if err != nil {
		hub.Close()
		return nil, err
	}

	svc := orgchart.New(store, hub, p, orgchart.WithLogger(*log))
	if err := svc.Load(ctx); err != nil {
		hub.Close()
		return nil, errors.Join(err, store.Close())
	}
	return &app{dataDir: dataDir, prefs: p, svc: svc}, nil
}

// Close releases the session's hub and store.
func (a *app) Close() error {
	a.svc.Hub().Close()
	return a.svc.Store().Close()
}

// withApp opens the app around run and closes it afterwards.
func withApp(run func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(); err == nil {
				err = cerr
			}
		}()
		return run(cmd, args, a)
	}
}
