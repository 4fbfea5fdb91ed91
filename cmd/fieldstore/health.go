// Health command: report unresolved checkpoints and conflicts.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldstack/fieldstore/internal/sqlite"
)

var healthCmd = &cobra.Command{
	Use:   "health [tableId]",
	Short: "Report tables with unresolved checkpoints or conflicts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		return store.WithConn(ctx, func(c *sqlite.Conn) error {
			if len(args) == 1 {
				health, err := store.TableHealth(ctx, c, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("%s\t%s\n", args[0], health)
				return nil
			}

			entries, err := store.TableHealthAll(ctx, c)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(entries)
			}
			for _, e := range entries {
				fmt.Printf("%s\t%s\n", e.TableID, e.Health)
			}
			return nil
		})
	},
}
