package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	wayfarer "github.com/unowned-ai/wayfarer/pkg"
	pkgdb "github.com/unowned-ai/wayfarer/pkg/db"
	"github.com/unowned-ai/wayfarer/pkg/logging"
	"github.com/unowned-ai/wayfarer/pkg/utils"

	"github.com/spf13/cobra"
)

var (
	configPath string
	dbPath     string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:     "wayfarer",
	Short:   "A travel journal that pins your memories to a map.",
	Long:    ``,
	Version: fmt.Sprintf("v%s", wayfarer.Version),
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

var completionShells = []string{"bash", "zsh", "fish", "powershell"}

var completionCmd = &cobra.Command{
	Use:   fmt.Sprintf("completion %s", strings.Join(completionShells, "|")),
	Short: "Generate shell completion scripts",
	Long: `Generate shell completion scripts for wayfarer.

The command prints a completion script to stdout. You can source it in your shell
or install it to the appropriate location for your shell to enable completions permanently.

Examples:

  Bash (current shell):
    $ source <(wayfarer completion bash)

  Bash (persist):
    $ wayfarer completion bash > /etc/bash_completion.d/wayfarer

  Zsh:
    $ wayfarer completion zsh > "${fpath[1]}/_wayfarer"

  Fish:
    $ wayfarer completion fish | source
    $ wayfarer completion fish > ~/.config/fish/completions/wayfarer.fish

  PowerShell:
    PS> wayfarer completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             completionShells,
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return rootCmd.GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return rootCmd.GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return rootCmd.GenPowerShellCompletion(cmd.OutOrStdout())
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of wayfarer",
	Long:  `All software has versions. This is wayfarer's`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(wayfarer.Version)
	},
}

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the local wayfarer database",
	Long:  `Provides commands for managing the local SQLite database that holds the offline journal.`,
}

var dbUpgradeCmd = &cobra.Command{
	Use:   "upgrade",
	Short: "Upgrade the local database schema to the latest version",
	Long: `Connects to the SQLite database (from --db, the config file, or the system-specific default)
and applies any necessary schema migrations for the localstore component. If the database does
not exist it is created and initialized with the latest schema.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		path, err := utils.ResolveAndEnsureDBPath(cfg.DBPath)
		if err != nil {
			return err
		}
		if path == "" {
			return errors.New("database path is required")
		}
		logger, err := logging.New(cfg.LogLevel, cfg.Environment)
		if err != nil {
			return err
		}
		defer logger.Sync()

		fmt.Printf("Upgrading localstore component in database at: %s\n", path)
		dbConn, err := pkgdb.OpenDBConnection(path, true, "NORMAL")
		if err != nil {
			return err
		}
		defer dbConn.Close()

		if err := pkgdb.UpgradeDB(dbConn, path, pkgdb.TargetSchemaVersion, logger); err != nil {
			return err
		}
		version, err := pkgdb.GetComponentSchemaVersion(dbConn, pkgdb.LocalStoreComponent)
		if err != nil {
			return err
		}
		fmt.Printf("Schema version: %d\n", version)
		return nil
	},
}

func initCmd() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", fmt.Sprintf("Path to the YAML config file (default %s)", utils.DefaultConfigPath()))
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the local database file (uses system-specific default if not provided)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")

	dbCmd.AddCommand(dbUpgradeCmd)

	initMemoriesCmd()
	initPhotosCmd()
	initPlacesCmd()
	initAuthCmds()
	initRemoteCmd()
	initMCPCmd()
	rootCmd.AddCommand(completionCmd, versionCmd, dbCmd, memoriesCmd, photosCmd, placesCmd,
		loginCmd, statusCmd, remoteCmd, mcpCmd, tuiCmd)
}

func main() {
	initCmd()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
