package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mesh-intelligence/organigrama/internal/prefs"
	"github.com/mesh-intelligence/organigrama/pkg/types"
)

// LatestVersion is the schema version a freshly opened store ends at.
const LatestVersion = 3

// migration upgrades the schema from Version-1 to Version. Up runs inside a
// transaction that also records the version, so a step applies completely
// or not at all.
type migration struct {
	Version int
	Name    string
	Up      func(ctx context.Context, tx *sql.Tx, m *migrator) error
}

// migrations is ordered by Version.
var migrations = []migration{
	{Version: 1, Name: "create entity tables", Up: migrateV1},
	{Version: 2, Name: "assignment order", Up: migrateV2},
	{Version: 3, Name: "workspaces", Up: migrateV3},
}

// migrator carries what migrations need from the backend plus values that
// must be acted on after a step commits.
type migrator struct {
	b                 *Backend
	activeWorkspaceID string
}

// runMigrations applies every pending migration up to target.
func runMigrations(ctx context.Context, db *sql.DB, b *Backend, target int) error {
	if _, err := db.ExecContext(ctx, createMigrations); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}
	from, err := currentVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, step := range migrations {
		if step.Version <= from || step.Version > target {
			continue
		}
		start := time.Now()
		m := &migrator{b: b}
		if err := applyMigration(ctx, db, step, m); err != nil {
			return err
		}
		b.log.Info().
			Int("from", step.Version-1).
			Int("to", step.Version).
			Str("step", step.Name).
			Dur("took", time.Since(start)).
			Msg("schema migrated")

		if m.activeWorkspaceID != "" {
			persistActiveWorkspace(b, m.activeWorkspaceID)
		}
	}
	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, step migration, m *migrator) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning migration %d: %w", step.Version, err)
	}
	defer tx.Rollback()

	if err := step.Up(ctx, tx, m); err != nil {
		return fmt.Errorf("applying migration %d (%s): %w", step.Version, step.Name, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
		step.Version, formatTime(m.b.timestamp())); err != nil {
		return fmt.Errorf("recording migration %d: %w", step.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration %d: %w", step.Version, err)
	}
	return nil
}

// currentVersion returns the highest applied migration, or 0.
func currentVersion(ctx context.Context, q querier) (int, error) {
	var v sql.NullInt64
	if err := q.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return int(v.Int64), nil
}

// persistActiveWorkspace stores the workspace chosen by a migration as the
// active one. The store is already consistent at this point, so a failure
// only costs the session its fallback to the first workspace.
func persistActiveWorkspace(b *Backend, id string) {
	if b.prefs == nil {
		return
	}
	if err := b.prefs.Set(prefs.KeyActiveWorkspace, id); err != nil {
		b.log.Warn().Err(err).Str("workspace_id", id).Msg("failed to persist active workspace")
	}
}

func execAll(ctx context.Context, tx *sql.Tx, stmts ...string) error {
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func migrateV1(ctx context.Context, tx *sql.Tx, _ *migrator) error {
	if err := execAll(ctx, tx, createPersonsV1, createDepartmentsV1, createAssignmentsV1); err != nil {
		return err
	}
	return execAll(ctx, tx, indexesV1...)
}

func migrateV2(ctx context.Context, tx *sql.Tx, _ *migrator) error {
	return execAll(ctx, tx, upgradeV2...)
}

// migrateV3 adds workspaces and moves every existing record into one
// synthesized default workspace.
func migrateV3(ctx context.Context, tx *sql.Tx, m *migrator) error {
	if err := execAll(ctx, tx, upgradeV3...); err != nil {
		return err
	}

	id := m.b.NewID()
	now := formatTime(m.b.timestamp())
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO workspaces (id, name, description, is_default, created_at, updated_at)
         VALUES (?, ?, ?, 1, ?, ?)`,
		id, types.DefaultWorkspaceName, types.DefaultWorkspaceDescription, now, now); err != nil {
		return fmt.Errorf("creating default workspace: %w", err)
	}
	for _, table := range []string{types.PersonsTable, types.DepartmentsTable, types.AssignmentsTable} {
		if _, err := tx.ExecContext(ctx,
			"UPDATE "+table+" SET workspace_id = ? WHERE workspace_id IS NULL", id); err != nil {
			return fmt.Errorf("stamping %s: %w", table, err)
		}
	}
	m.activeWorkspaceID = id
	return nil
}
