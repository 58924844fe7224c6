package cmd

import (
	"fmt"
	"os"

	"github.com/cockroachdb/dbdelta/cmd/snapshot"
	"github.com/cockroachdb/dbdelta/cmd/watch"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "dbdelta",
	Short: "Observe and assert database changes",
	Long:  `dbdelta snapshots tables and queries and reports the rows deleted and inserted between snapshots.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(snapshot.Command())
	rootCmd.AddCommand(watch.Command())
}
