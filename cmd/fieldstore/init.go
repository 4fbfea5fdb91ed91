// Init command creates the data directory, database file, and registry
// tables.
package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the fieldstore database",
	Long:  `Init creates the data directory, the database file, and the registry tables. Running it against an existing store is harmless.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		dataDir, err := resolveDataDir()
		if err != nil {
			return err
		}
		fmt.Println("fieldstore initialized at", dataDir)
		return nil
	},
}
