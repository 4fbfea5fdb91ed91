// Table commands: create, drop, list, show.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldstack/fieldstore/internal/sqlite"
	"github.com/fieldstack/fieldstore/pkg/types"
)

var tableCreateColumns string

var tableCmd = &cobra.Command{
	Use:   "table",
	Short: "Manage user tables",
}

var tableCreateCmd = &cobra.Command{
	Use:   "create <tableId>",
	Short: "Create a table, or open it if it already exists",
	Long: `Create registers a user table with the given columns, emits its physical
schema, and seeds its default metadata. Creating an existing table is a
no-op that returns its current column definitions.

Columns are given as a JSON array of specifications:

  fieldstore table create households --columns '[
    {"elementKey": "name", "elementName": "name", "elementType": "string", "listChildElementKeys": "[]"},
    {"elementKey": "location", "elementName": "location", "elementType": "geopoint",
     "listChildElementKeys": "[\"location_latitude\",\"location_longitude\",\"location_altitude\",\"location_accuracy\"]"},
    {"elementKey": "location_latitude", "elementName": "latitude", "elementType": "number", "listChildElementKeys": "[]"},
    {"elementKey": "location_longitude", "elementName": "longitude", "elementType": "number", "listChildElementKeys": "[]"},
    {"elementKey": "location_altitude", "elementName": "altitude", "elementType": "number", "listChildElementKeys": "[]"},
    {"elementKey": "location_accuracy", "elementName": "accuracy", "elementType": "number", "listChildElementKeys": "[]"}
  ]'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if tableCreateColumns == "" {
			fmt.Fprintln(os.Stderr, "table create: --columns is required")
			os.Exit(exitUserError)
		}
		specs, err := parseColumnsJSON(tableCreateColumns)
		if err != nil {
			return err
		}

		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		return store.WithConn(ctx, func(c *sqlite.Conn) error {
			defs, err := store.CreateOrOpenTable(ctx, c, args[0], specs)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(defs.Specs())
			}
			fmt.Printf("table %s ready with %d columns\n", args[0], defs.Len())
			return nil
		})
	},
}

var tableDropCmd = &cobra.Command{
	Use:   "drop <tableId>",
	Short: "Drop a table, its rows, metadata, and attachments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, attachments, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		return store.WithConn(ctx, func(c *sqlite.Conn) error {
			if err := store.DropTable(ctx, c, args[0], attachments); err != nil {
				return err
			}
			fmt.Println("table", args[0], "dropped")
			return nil
		})
	},
}

var tableListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered tables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		return store.WithConn(ctx, func(c *sqlite.Conn) error {
			tableIDs, err := store.ListTableIDs(ctx, c)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(tableIDs)
			}
			for _, id := range tableIDs {
				fmt.Println(id)
			}
			return nil
		})
	},
}

var tableShowCmd = &cobra.Command{
	Use:   "show <tableId>",
	Short: "Show a table's definition and columns",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		return store.WithConn(ctx, func(c *sqlite.Conn) error {
			def, err := store.GetTableDefinition(ctx, c, args[0])
			if err != nil {
				return err
			}
			defs, err := store.GetColumnDefinitions(ctx, c, args[0])
			if err != nil {
				return err
			}
			return printJSON(struct {
				Definition *types.TableDefinition `json:"definition"`
				Columns    []types.ColumnSpec     `json:"columns"`
			}{def, defs.Specs()})
		})
	},
}

func init() {
	tableCreateCmd.Flags().StringVar(&tableCreateColumns, "columns", "", "JSON array of column specifications")

	tableCmd.AddCommand(tableCreateCmd)
	tableCmd.AddCommand(tableDropCmd)
	tableCmd.AddCommand(tableListCmd)
	tableCmd.AddCommand(tableShowCmd)
}
