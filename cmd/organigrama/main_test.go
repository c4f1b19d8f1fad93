package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/organigrama/internal/backup"
	"github.com/mesh-intelligence/organigrama/internal/importer"
	"github.com/mesh-intelligence/organigrama/pkg/types"
)

type cliEnv struct {
	configDir string
	dataDir   string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	for _, key := range []string{
		"ORGANIGRAMA_CONFIG_DIR", "ORGANIGRAMA_DATA_DIR", "ORGANIGRAMA_EXPORT_DIR",
		"ORGANIGRAMA_IMPORT_MODE", "ORGANIGRAMA_COMPRESS", "ORGANIGRAMA_DEBUG", "ORGANIGRAMA_BUSY_RETRIES",
	} {
		t.Setenv(key, "")
	}
	root := t.TempDir()
	return cliEnv{configDir: filepath.Join(root, "config"), dataDir: filepath.Join(root, "data")}
}

// run executes one command line and returns its stdout.
func (e cliEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config-dir", e.configDir, "--data-dir", e.dataDir}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func (e cliEnv) runJSON(t *testing.T, v any, args ...string) {
	t.Helper()
	out, err := e.run(t, "", append(args, "--json")...)
	require.NoError(t, err, "organigrama %s", strings.Join(args, " "))
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", types.ErrInvalidName, exitUserError},
		{"not found", fmt.Errorf("person x: %w", types.ErrNotFound), exitUserError},
		{"no active workspace", types.ErrNoActiveWorkspace, exitUserError},
		{"malformed backup", types.ErrMalformedBackup, exitUserError},
		{"partial import", importer.Result{Summary: importer.Summary{Errors: []string{"x"}}}.Err(), exitUserError},
		{"storage", types.ErrStorage, exitSysError},
		{"anything else", errors.New("boom"), exitSysError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestInitWritesDefaultConfig(t *testing.T) {
	env := newCLIEnv(t)
	out, err := env.run(t, "", "init")
	require.NoError(t, err)
	assert.Contains(t, out, types.DefaultWorkspaceName)
	assert.Contains(t, out, "prefs: "+filepath.Join(env.dataDir, prefsDir))

	raw, err := os.ReadFile(filepath.Join(env.configDir, configFileExt))
	require.NoError(t, err)
	assert.Equal(t, defaultConfigYAML, string(raw))
	assert.FileExists(t, filepath.Join(env.dataDir, "organigrama.db"))
}

func TestPersonLifecycle(t *testing.T) {
	env := newCLIEnv(t)

	var ana types.Person
	env.runJSON(t, &ana, "person", "add", "Ana", "--role", "Directora")
	assert.Equal(t, "Directora", ana.Role)

	var updated types.Person
	env.runJSON(t, &updated, "person", "update", ana.ID, "--name", "Ana María")
	assert.Equal(t, "Ana María", updated.Name)
	assert.Equal(t, "Directora", updated.Role, "unchanged flags keep their values")

	_, err := env.run(t, "n\n", "person", "delete", ana.ID)
	require.NoError(t, err)
	var people []types.PersonWithDepartments
	env.runJSON(t, &people, "person", "list")
	require.Len(t, people, 1, "declined deletion keeps the person")

	_, err = env.run(t, "", "person", "delete", ana.ID, "--yes")
	require.NoError(t, err)
	env.runJSON(t, &people, "person", "list")
	assert.Empty(t, people)
}

func TestAssignAndReorder(t *testing.T) {
	env := newCLIEnv(t)

	var ana, luis types.Person
	var dept types.Department
	env.runJSON(t, &ana, "person", "add", "Ana")
	env.runJSON(t, &luis, "person", "add", "Luis")
	env.runJSON(t, &dept, "department", "add", "Ventas", "--x", "120", "--y", "80")
	assert.Equal(t, types.Position{X: 120, Y: 80}, dept.Position)

	_, err := env.run(t, "", "assign", ana.ID, dept.ID)
	require.NoError(t, err)
	_, err = env.run(t, "", "assign", luis.ID, dept.ID)
	require.NoError(t, err)

	var people []types.Person
	env.runJSON(t, &people, "reorder", dept.ID, luis.ID, ana.ID)
	require.Len(t, people, 2)
	assert.Equal(t, []string{"Luis", "Ana"}, []string{people[0].Name, people[1].Name})

	_, err = env.run(t, "", "unassign", ana.ID)
	assert.Equal(t, exitUserError, exitCode(err), "a department or --all is required")
	_, err = env.run(t, "", "unassign", ana.ID, "--all")
	require.NoError(t, err)
	env.runJSON(t, &people, "people", dept.ID)
	require.Len(t, people, 1)
	assert.Equal(t, "Luis", people[0].Name)
}

func TestDeleteActiveWorkspaceRejected(t *testing.T) {
	env := newCLIEnv(t)

	var ws types.Workspace
	env.runJSON(t, &ws, "workspace", "current")
	_, err := env.run(t, "", "workspace", "delete", ws.ID, "--yes")
	require.ErrorIs(t, err, types.ErrActiveWorkspaceDelete)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestExportThenImportIntoNewWorkspace(t *testing.T) {
	env := newCLIEnv(t)
	outDir := t.TempDir()

	var ana types.Person
	var dept types.Department
	env.runJSON(t, &ana, "person", "add", "Ana")
	env.runJSON(t, &dept, "department", "add", "Ventas")
	_, err := env.run(t, "", "assign", ana.ID, dept.ID)
	require.NoError(t, err)

	var exported exportResult
	env.runJSON(t, &exported, "export", "--out", outDir, "--compress")
	assert.Equal(t, "workspace", exported.Kind)
	assert.True(t, strings.HasSuffix(exported.Path, ".json.zst"), exported.Path)

	_, err = env.run(t, "", "validate", exported.Path)
	require.NoError(t, err)

	_, err = env.run(t, "", "import", exported.Path)
	require.ErrorIs(t, err, types.ErrDestinationRequired)

	var res importer.Result
	env.runJSON(t, &res, "import", exported.Path, "--name", "Copia")
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Summary.PersonsImported)
	assert.Equal(t, 1, res.Summary.AssignmentsImported)
	assert.Equal(t, "Copia", res.Summary.WorkspaceName)

	var list []types.Workspace
	env.runJSON(t, &list, "workspace", "list")
	require.Len(t, list, 2)
	assert.Equal(t, "Copia", list[1].Name)
}

func TestImportReplaceNeedsConfirmation(t *testing.T) {
	env := newCLIEnv(t)
	outDir := t.TempDir()

	var ana types.Person
	env.runJSON(t, &ana, "person", "add", "Ana")
	var exported exportResult
	env.runJSON(t, &exported, "export", "--out", outDir)
	env.runJSON(t, &ana, "person", "add", "Luis")

	out, err := env.run(t, "no\n", "import", exported.Path, "--into", "current", "--mode", "replace")
	require.NoError(t, err)
	assert.Empty(t, out, "declined import prints no result")
	var people []types.PersonWithDepartments
	env.runJSON(t, &people, "person", "list")
	assert.Len(t, people, 2)

	_, err = env.run(t, "sí\n", "import", exported.Path, "--into", "current", "--mode", "replace")
	require.NoError(t, err)
	env.runJSON(t, &people, "person", "list")
	require.Len(t, people, 1)
	assert.Equal(t, "Ana", people[0].Name)
}

func TestValidateRejectsMalformedFile(t *testing.T) {
	env := newCLIEnv(t)
	path := filepath.Join(t.TempDir(), "broken.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"1.0","data":{"persons":[{"id":"x"}]}}`), 0o644))

	_, err := env.run(t, "", "validate", path)
	require.ErrorIs(t, err, types.ErrMalformedBackup)
	assert.Equal(t, exitUserError, exitCode(err))
}

func TestConfigFileDrivesImportMode(t *testing.T) {
	env := newCLIEnv(t)
	_, err := env.run(t, "", "init")
	require.NoError(t, err)
	cfg := strings.Replace(defaultConfigYAML, "import_mode: merge", "import_mode: sideways", 1)
	require.NoError(t, os.WriteFile(filepath.Join(env.configDir, configFileExt), []byte(cfg), 0o644))

	var exported exportResult
	env.runJSON(t, &exported, "export", "--out", t.TempDir())
	_, err = env.run(t, "", "import", exported.Path, "--into", "current")
	require.ErrorIs(t, err, types.ErrInvalidImportMode)

	_, err = env.run(t, "", "import", exported.Path, "--into", "current", "--mode", "merge")
	require.NoError(t, err, "--mode overrides config.yaml")
}

func TestConfigShowPrecedence(t *testing.T) {
	env := newCLIEnv(t)
	require.NoError(t, os.MkdirAll(env.configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(env.configDir, configFileExt), []byte("import_mode: merge\n"), 0o644))
	t.Setenv("ORGANIGRAMA_COMPRESS", "true")
	t.Setenv("ORGANIGRAMA_IMPORT_MODE", "replace")

	var cfg configFile
	env.runJSON(t, &cfg, "config", "show")
	assert.Equal(t, env.dataDir, cfg.DataDir, "--data-dir wins")
	assert.Equal(t, env.configDir, cfg.ConfigDir)
	assert.True(t, cfg.Compress, "env seeds keys config.yaml leaves unset")
	assert.Equal(t, "merge", cfg.ImportMode, "config.yaml wins over env")
	assert.Equal(t, types.DefaultBusyRetries, cfg.BusyRetry)
}

func TestReplaceScope(t *testing.T) {
	tests := []struct {
		name string
		kind backup.Kind
		dest importer.Destination
		want string
	}{
		{"whole keeps workspaces", backup.KindWhole, 0, "every person, department and assignment (workspaces are kept)"},
		{"multi-workspace", backup.KindMultiWorkspace, 0, "the records of every workspace in the backup that already exists"},
		{"new workspace", backup.KindWorkspace, importer.DestinationNew, "nothing (the backup goes into a new workspace)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := replaceScope(nil, nil, tt.kind, tt.dest)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
