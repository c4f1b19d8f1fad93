package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mesh-intelligence/organigrama/internal/logger"
	"github.com/mesh-intelligence/organigrama/internal/paths"
)

const (
	version    = "0.1.0"
	modulePath = "github.com/mesh-intelligence/organigrama"
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
	debug     bool
}

var (
	flags rootFlags

	// settings is the loaded config.yaml, set by PersistentPreRunE.
	settings *viper.Viper
)

// newRootCmd creates the top-level command with global flags and all
// subcommands registered.
func newRootCmd() *cobra.Command {
	flags = rootFlags{}
	settings = viper.New()

	root := &cobra.Command{
		Use:   "organigrama",
		Short: "Organizational charts kept in a local database",
		Long: `organigrama manages workspaces of people and departments, assigns people
to departments in display order, and exports or imports JSON backups.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			configDir, err := paths.ResolveConfigDir(flags.configDir)
			if err != nil {
				return fmt.Errorf("resolving config dir: %w", err)
			}
			v, err := loadConfig(configDir)
			if err != nil {
				return err
			}
			settings = v

			log := logger.New(cmd.ErrOrStderr(), flags.debug || v.GetBool(cfgKeyDebug))
			cmd.SetContext(log.WithContext(cmd.Context()))
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir)")
	pf.StringVar(&flags.dataDir, "data-dir", "", "data directory (default: platform data dir)")
	pf.BoolVar(&flags.jsonMode, "json", false, "output in JSON format")
	pf.BoolVar(&flags.debug, "debug", false, "debug logging")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(),
		newConfigCmd(),
		newWorkspaceCmd(),
		newPersonCmd(),
		newDepartmentCmd(),
		newAssignCmd(),
		newUnassignCmd(),
		newReorderCmd(),
		newPeopleCmd(),
		newExportCmd(),
		newValidateCmd(),
		newImportCmd(),
		newWatchCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the organigrama version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "organigrama v%s\nmodule: %s\n", version, modulePath)
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration and the database",
		Long:  "Create the configuration directory, config.yaml and the database, migrating an existing database to the current schema.",
		Args:  cobra.NoArgs,
		RunE: withApp(func(cmd *cobra.Command, args []string, a *app) error {
			ws, err := a.svc.ActiveWorkspace(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "organigrama initialized\n  data: %s\n  prefs: %s\n  workspace: %s (%s)\n",
				a.dataDir, a.prefs.Dir(), ws.Name, ws.ID)
			return nil
		}),
	}
}
