package paths

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultDirs_Linux(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("linux-only test")
	}
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		name string
		env  string
		val  string
		fn   func() (string, error)
		want string
	}{
		{"config uses XDG_CONFIG_HOME", "XDG_CONFIG_HOME", "/tmp/xdg-config", DefaultConfigDir, "/tmp/xdg-config/organigrama"},
		{"config falls back to ~/.config", "XDG_CONFIG_HOME", "", DefaultConfigDir, filepath.Join(home, ".config", "organigrama")},
		{"data uses XDG_DATA_HOME", "XDG_DATA_HOME", "/tmp/xdg-data", DefaultDataDir, "/tmp/xdg-data/organigrama"},
		{"data falls back to ~/.local/share", "XDG_DATA_HOME", "", DefaultDataDir, filepath.Join(home, ".local", "share", "organigrama")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			got, err := tt.fn()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultDirs_Darwin(t *testing.T) {
	if runtime.GOOS != "darwin" {
		t.Skip("darwin-only test")
	}
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	want := filepath.Join(home, "Library", "Application Support", "organigrama")

	got, err := DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	got, err = DefaultDataDir()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestResolveConfigDir(t *testing.T) {
	tests := []struct {
		name    string
		flag    string
		envVal  string
		wantSub string
	}{
		{"flag wins over env", "/explicit/config", "/env/config", "/explicit/config"},
		{"env wins when flag empty", "", "/env/config", "/env/config"},
		{"platform default when both empty", "", "", "organigrama"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvConfigDir, tt.envVal)
			got, err := ResolveConfigDir(tt.flag)
			require.NoError(t, err)
			assert.Contains(t, got, tt.wantSub)
		})
	}
}

func TestResolveDataDir(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg-data")
	platform, err := DefaultDataDir()
	require.NoError(t, err)

	tests := []struct {
		name          string
		flag          string
		configYAMLVal string
		envVal        string
		want          string
	}{
		{"flag wins over all", "/flag/data", "/config/data", "/env/data", "/flag/data"},
		{"config.yaml wins over env", "", "/config/data", "/env/data", "/config/data"},
		{"env wins when flag and config empty", "", "", "/env/data", "/env/data"},
		{"platform default when all empty", "", "", "", platform},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvDataDir, tt.envVal)
			got, err := ResolveDataDir(tt.flag, tt.configYAMLVal)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveExportDir(t *testing.T) {
	cwd, err := os.Getwd()
	require.NoError(t, err)

	t.Run("working directory by default", func(t *testing.T) {
		t.Setenv(EnvExportDir, "")
		got, err := ResolveExportDir("", "")
		require.NoError(t, err)
		assert.Equal(t, cwd, got)
	})

	t.Run("env when nothing else is set", func(t *testing.T) {
		t.Setenv(EnvExportDir, "/env/exports")
		got, err := ResolveExportDir("", "")
		require.NoError(t, err)
		assert.Equal(t, "/env/exports", got)
	})

	t.Run("relative flag becomes absolute", func(t *testing.T) {
		got, err := ResolveExportDir("backups", "/config/exports")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(cwd, "backups"), got)
	})
}

func TestResolve_RelativeBecomesAbsolute(t *testing.T) {
	t.Setenv(EnvConfigDir, "relative/env")
	got, err := ResolveConfigDir("")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got), "expected absolute path, got %s", got)

	t.Setenv(EnvDataDir, "")
	got, err = ResolveDataDir("", "relative/config")
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(got), "expected absolute path, got %s", got)
}
