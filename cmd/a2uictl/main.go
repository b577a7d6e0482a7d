// Package main implements a2uictl, an operator CLI for inspecting stored
// conversations and probing completion endpoints.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/capitalize-ai/a2ui-playground/internal/config"
	"github.com/capitalize-ai/a2ui-playground/internal/store"
	"github.com/capitalize-ai/a2ui-playground/pkg/logger"
)

var (
	backend    string
	sqlitePath string
	outputFmt  string
	timeout    time.Duration
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "a2uictl",
	Short: "Inspect A2UI playground conversations",
	Long: `a2uictl reads the same event store as the API server.

Store selection follows the server's environment (STORE_BACKEND, SQLITE_PATH,
DATABASE_URL, NATS_URL) unless overridden with flags.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "Store backend: sqlite, postgres or jetstream")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", "", "SQLite database path")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "json", "Output format: json or yaml")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	rootCmd.AddCommand(conversationsCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(probeCmd)
}

// openStore opens the configured store for one command.
func openStore(ctx context.Context) (store.Store, error) {
	opts := config.Load().StoreOptions()
	if backend != "" {
		opts.Backend = backend
	}
	if sqlitePath != "" {
		opts.SQLitePath = sqlitePath
	}
	return store.Open(ctx, opts, logger.NewNop())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
