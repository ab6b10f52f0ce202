package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var clientsEnv string

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "List the clients of one or every environment",
	Args:  cobra.NoArgs,
	RunE:  runClients,
}

func init() {
	clientsCmd.Flags().StringVar(&clientsEnv, "env", "", "environment name (default: all)")
}

type clientLine struct {
	Env  string `json:"env"`
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func runClients(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	envs := []string{clientsEnv}
	if clientsEnv == "" {
		envs = envs[:0]
		for _, e := range a.Catalog.Environments() {
			envs = append(envs, e.Name)
		}
	}

	var lines []clientLine
	for _, env := range envs {
		list, err := a.Catalog.Clients(ctx, env)
		if err != nil {
			return fmt.Errorf("list clients of %s: %w", env, err)
		}
		for _, c := range list {
			lines = append(lines, clientLine{Env: env, ID: c.ID, Name: c.Name})
		}
	}

	if jsonOutput {
		return printJSON(cmd.OutOrStdout(), lines)
	}
	if len(lines) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No clients found.")
		return nil
	}

	w := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintln(w, "ENV\tID\tNAME")
	for _, l := range lines {
		fmt.Fprintf(w, "%s\t%d\t%s\n", l.Env, l.ID, l.Name)
	}
	return w.Flush()
}
