// Root command for the fieldstore CLI.
package main

import (
	"github.com/spf13/cobra"

	"github.com/fieldstack/fieldstore/internal/paths"
	"github.com/fieldstack/fieldstore/pkg/fieldstore"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
	flagUser      string
	flagLocale    string
	flagJSON      bool
)

// Values loaded from config.yaml by PersistentPreRunE so all
// subcommands can use them.
var (
	configDataDir    string
	configActiveUser string
	configLocale     string
)

var rootCmd = &cobra.Command{
	Use:     "fieldstore",
	Short:   "Fieldstore is an offline-first table store for field data collection",
	Version: fieldstore.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}

		cfg, err := loadConfig(configDir)
		if err != nil {
			return err
		}

		configDataDir = cfg.GetString(cfgKeyDataDir)
		configActiveUser = cfg.GetString(cfgKeyActiveUser)
		configLocale = cfg.GetString(cfgKeyLocale)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: $(CWD)/.fieldstore)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: $(CWD)/.fieldstore-db)")
	rootCmd.PersistentFlags().StringVar(&flagUser, "user", "", "active user recorded as savepoint creator")
	rootCmd.PersistentFlags().StringVar(&flagLocale, "locale", "", "locale recorded on rows")
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output as JSON")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(rowCmd)
	rootCmd.AddCommand(kvsCmd)
	rootCmd.AddCommand(healthCmd)
}

// resolveDataDir returns the data directory path following the
// precedence chain: --data-dir flag > config.yaml data_dir >
// FIELDSTORE_DATA_DIR env > default $(CWD)/.fieldstore-db.
func resolveDataDir() (string, error) {
	return paths.ResolveDataDir(flagDataDir, configDataDir)
}

// resolveConfigDir returns the configuration directory following the
// precedence chain: --config-dir flag > FIELDSTORE_CONFIG_DIR env >
// DefaultConfigDir().
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}
