// Row commands: add, get, update, delete, and the checkpoint workflow.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldstack/fieldstore/internal/sqlite"
)

var (
	rowValuesJSON string
	rowID         string
)

var rowCmd = &cobra.Command{
	Use:   "row",
	Short: "Manage rows",
}

var rowAddCmd = &cobra.Command{
	Use:   "add <tableId>",
	Short: "Insert a new row",
	Long: `Add inserts a new row. With no --id a unique row id is generated and
printed. Values are a JSON object keyed by column element key:

  fieldstore row add households --values '{"name": "mwangi", "location": "{\"latitude\": -1.29, \"longitude\": 36.82, \"altitude\": 1795, \"accuracy\": 4.5}"}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := parseValuesJSON(rowValuesJSON)
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
			id, err := store.InsertRow(ctx, c, args[0], rowID, values)
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		})
	},
}

var rowGetCmd = &cobra.Command{
	Use:   "get <tableId> <rowId>",
	Short: "Get a row's physical rows",
	Long: `Get prints every physical row stored for the row id, oldest first.
A row being edited or in conflict has more than one.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		return store.WithConn(ctx, func(c *sqlite.Conn) error {
			rows, err := store.GetRows(ctx, c, args[0], args[1])
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintf(os.Stderr, "row %q not found in table %q\n", args[1], args[0])
				os.Exit(exitUserError)
			}
			return printJSON(rows)
		})
	},
}

var rowUpdateCmd = &cobra.Command{
	Use:   "update <tableId> <rowId>",
	Short: "Update an existing row",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := parseValuesJSON(rowValuesJSON)
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
			return store.UpdateRow(ctx, c, args[0], args[1], values)
		})
	},
}

var rowDeleteCmd = &cobra.Command{
	Use:   "delete <tableId> <rowId>",
	Short: "Delete a row",
	Long: `Delete removes a row. A row the server has never seen is removed
outright along with its attachments; anything else is marked deleted
and kept until the next sync confirms it.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, attachments, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		return store.WithConn(ctx, func(c *sqlite.Conn) error {
			return store.DeleteRow(ctx, c, args[0], args[1], attachments)
		})
	},
}

var rowCheckpointCmd = &cobra.Command{
	Use:   "checkpoint <tableId> [rowId]",
	Short: "Save an in-progress edit as a checkpoint",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		values, err := parseValuesJSON(rowValuesJSON)
		if err != nil {
			return err
		}
		id := ""
		if len(args) == 2 {
			id = args[1]
		}

		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		return store.WithConn(ctx, func(c *sqlite.Conn) error {
			id, err := store.InsertCheckpoint(ctx, c, args[0], id, values)
			if err != nil {
				return err
			}
			fmt.Println(id)
			return nil
		})
	},
}

var rowSaveIncomplete bool

var rowSaveCmd = &cobra.Command{
	Use:   "save <tableId> <rowId>",
	Short: "Finalize a row's checkpoint chain",
	Long: `Save collapses the row's checkpoints into a single saved row,
COMPLETE by default or INCOMPLETE with --incomplete.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		return store.WithConn(ctx, func(c *sqlite.Conn) error {
			if rowSaveIncomplete {
				return store.SaveAsIncomplete(ctx, c, args[0], args[1])
			}
			return store.SaveAsComplete(ctx, c, args[0], args[1])
		})
	},
}

func init() {
	rowAddCmd.Flags().StringVar(&rowValuesJSON, "values", "", "JSON object of column values")
	rowAddCmd.Flags().StringVar(&rowID, "id", "", "explicit row id (default: generated)")
	rowUpdateCmd.Flags().StringVar(&rowValuesJSON, "values", "", "JSON object of column values")
	rowCheckpointCmd.Flags().StringVar(&rowValuesJSON, "values", "", "JSON object of column values")
	rowSaveCmd.Flags().BoolVar(&rowSaveIncomplete, "incomplete", false, "finalize as INCOMPLETE instead of COMPLETE")

	rowCmd.AddCommand(rowAddCmd)
	rowCmd.AddCommand(rowGetCmd)
	rowCmd.AddCommand(rowUpdateCmd)
	rowCmd.AddCommand(rowDeleteCmd)
	rowCmd.AddCommand(rowCheckpointCmd)
	rowCmd.AddCommand(rowSaveCmd)
}
