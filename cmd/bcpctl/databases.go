package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var databasesCmd = &cobra.Command{
	Use:   "databases",
	Short: "List the cms_ campaign databases of the call-center platform",
	Args:  cobra.NoArgs,
	RunE:  runDatabases,
}

func runDatabases(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	dbs, err := a.Catalog.Databases(ctx)
	if err != nil {
		return fmt.Errorf("list databases: %w", err)
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), dbs)
	}
	for _, db := range dbs {
		fmt.Fprintln(cmd.OutOrStdout(), db)
	}
	return nil
}
