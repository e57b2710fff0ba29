package main // Entry point package

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/learntrack/internal/config" // Internal config loader
)

func main() {
	config.LoadDotenv() // .env is optional; exported variables win

	serve := serveCmd()
	rootCmd := &cobra.Command{
		Use:   "learntrack",
		Short: "LearnTrack course platform API",
		Long: `LearnTrack serves the course catalog, instructor authoring,
enrollments and payments on top of a hosted identity provider.

Running without a subcommand starts the HTTP server.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	rootCmd.Flags().AddFlagSet(serve.Flags())

	rootCmd.AddCommand(
		serve,
		migrateCmd(),
		consumeCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "learntrack: %s\n", err)
		os.Exit(1)
	}
}
