package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"text/tabwriter"

	"bcp-export/internal/app"
	"bcp-export/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var jsonOutput bool

var rootCmd = &cobra.Command{
	Use:           "bcpctl",
	Short:         "Run BCP exports from the command line",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print JSON instead of a table")
	rootCmd.AddCommand(clientsCmd, databasesCmd, runCmd)
}

// setup loads the configuration and wires the services. Redis is optional
// here; without it run records are simply not kept.
func setup(ctx context.Context) (*app.App, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using system env or defaults")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if _, err := app.NewLogger(cfg.IsLocal()); err != nil {
		return nil, err
	}

	a, err := app.Build(ctx, cfg, app.Options{RedisOptional: true})
	if err != nil {
		return nil, err
	}
	zap.L().Debug("services ready", zap.String("config", cfg.ConfigPath))
	return a, nil
}

func newTabWriter(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
