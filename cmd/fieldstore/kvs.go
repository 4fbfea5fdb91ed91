// KVS commands: read and write table/column metadata properties.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldstack/fieldstore/internal/sqlite"
	"github.com/fieldstack/fieldstore/pkg/types"
)

var (
	kvsPartition string
	kvsAspect    string
	kvsKey       string
	kvsValueType string
)

var kvsCmd = &cobra.Command{
	Use:   "kvs",
	Short: "Manage table and column metadata properties",
}

var kvsGetCmd = &cobra.Command{
	Use:   "get <tableId>",
	Short: "List metadata entries for a table",
	Long: `Get lists the key-value metadata entries for a table, optionally
narrowed by --partition, --aspect, and --key. Empty filters match
everything.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		return store.WithConn(ctx, func(c *sqlite.Conn) error {
			entries, err := store.GetKVSEntries(ctx, c, args[0], kvsPartition, kvsAspect, kvsKey)
			if err != nil {
				return err
			}
			if flagJSON {
				return printJSON(entries)
			}
			for _, e := range entries {
				fmt.Printf("%s/%s/%s/%s = %s (%s)\n", e.TableID, e.Partition, e.Aspect, e.Key, e.Value, e.ValueType)
			}
			return nil
		})
	},
}

var kvsSetCmd = &cobra.Command{
	Use:   "set <tableId> <key> <value>",
	Short: "Set one metadata entry",
	Long: `Set upserts one metadata entry. Partition defaults to Table and
aspect to default. An empty value deletes the entry.`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if kvsValueType == "" {
			fmt.Fprintln(os.Stderr, "kvs set: --type is required")
			os.Exit(exitUserError)
		}
		partition := kvsPartition
		if partition == "" {
			partition = types.KVSPartitionTable
		}
		aspect := kvsAspect
		if aspect == "" {
			aspect = types.KVSAspectDefault
		}

		store, _, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		return store.WithConn(ctx, func(c *sqlite.Conn) error {
			return store.PutKVSEntry(ctx, c, types.KeyValueEntry{
				TableID:   args[0],
				Partition: partition,
				Aspect:    aspect,
				Key:       args[1],
				ValueType: kvsValueType,
				Value:     args[2],
			})
		})
	},
}

func init() {
	kvsGetCmd.Flags().StringVar(&kvsPartition, "partition", "", "partition filter (Table, Column, ...)")
	kvsGetCmd.Flags().StringVar(&kvsAspect, "aspect", "", "aspect filter")
	kvsGetCmd.Flags().StringVar(&kvsKey, "key", "", "key filter")

	kvsSetCmd.Flags().StringVar(&kvsPartition, "partition", "", "entry partition (default Table)")
	kvsSetCmd.Flags().StringVar(&kvsAspect, "aspect", "", "entry aspect (default "+types.KVSAspectDefault+")")
	kvsSetCmd.Flags().StringVar(&kvsValueType, "type", types.KVSValueTypeString, "value type (string, integer, number, bool, array, object)")

	kvsCmd.AddCommand(kvsGetCmd)
	kvsCmd.AddCommand(kvsSetCmd)
}
