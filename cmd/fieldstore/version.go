// Version command for the fieldstore CLI.
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldstack/fieldstore/pkg/fieldstore"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the fieldstore version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("fieldstore", fieldstore.Version)
	},
}
