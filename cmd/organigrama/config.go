package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/mesh-intelligence/organigrama/internal/importer"
	"github.com/mesh-intelligence/organigrama/internal/paths"
	"github.com/mesh-intelligence/organigrama/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyDataDir    = "data_dir"
	cfgKeyExportDir  = "export_dir"
	cfgKeyImportMode = "import_mode"
	cfgKeyCompress   = "compress"
	cfgKeyDebug      = "debug"
	cfgKeyBusyRetry  = "busy_retries"

	// envPrefix names the environment fallbacks for the non-directory keys,
	// e.g. ORGANIGRAMA_IMPORT_MODE.
	envPrefix = "ORGANIGRAMA_"
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# organigrama configuration

# Data directory holding organigrama.db and the preference keys
# (optional; overridable by --data-dir)
# data_dir:

# Directory exports are written to (optional; defaults to the working directory)
# export_dir:

# Import mode used when --mode is not given: merge or replace
import_mode: merge

# Write exports as zstd-compressed .json.zst files
compress: false

# Debug logging
debug: false

# Times to retry opening the database while another process holds its lock
busy_retries: 5
`

// configFile is the effective configuration as shown by "config show".
type configFile struct {
	ConfigDir  string `yaml:"config_dir" json:"config_dir"`
	DataDir    string `yaml:"data_dir" json:"data_dir"`
	ExportDir  string `yaml:"export_dir" json:"export_dir"`
	ImportMode string `yaml:"import_mode" json:"import_mode"`
	Compress   bool   `yaml:"compress" json:"compress"`
	Debug      bool   `yaml:"debug" json:"debug"`
	BusyRetry  int    `yaml:"busy_retries" json:"busy_retries"`
}

// loadConfig reads config.yaml from configDir, creating the directory and a
// default file on first run. Values from the file win over environment
// fallbacks, which only seed the defaults.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	setDefault(v, cfgKeyImportMode, string(importer.ModeMerge))
	setDefault(v, cfgKeyCompress, false)
	setDefault(v, cfgKeyDebug, false)
	setDefault(v, cfgKeyBusyRetry, types.DefaultBusyRetries)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.Set("config_dir", configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

func setDefault(v *viper.Viper, key string, fallback any) {
	if env, ok := os.LookupEnv(envPrefix + strings.ToUpper(key)); ok && env != "" {
		v.SetDefault(key, env)
		return
	}
	v.SetDefault(key, fallback)
}

// ensureDefaultConfigFile creates a default config.yaml if none exists.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, err := paths.ResolveDataDir(flags.dataDir, settings.GetString(cfgKeyDataDir))
			if err != nil {
				return fmt.Errorf("resolving data dir: %w", err)
			}
			exportDir, err := paths.ResolveExportDir("", settings.GetString(cfgKeyExportDir))
			if err != nil {
				return fmt.Errorf("resolving export dir: %w", err)
			}
			cfg := configFile{
				ConfigDir:  settings.GetString("config_dir"),
				DataDir:    dataDir,
				ExportDir:  exportDir,
				ImportMode: settings.GetString(cfgKeyImportMode),
				Compress:   settings.GetBool(cfgKeyCompress),
				Debug:      flags.debug || settings.GetBool(cfgKeyDebug),
				BusyRetry:  settings.GetInt(cfgKeyBusyRetry),
			}
			if flags.jsonMode {
				return printJSON(cmd, cfg)
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	})
	return cmd
}
