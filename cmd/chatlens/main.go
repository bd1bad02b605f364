package main

import (
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "chatlens",
	Short: "Analytics service for AI chat logs",
	Long: `chatlens ingests AI chat logs, classifies sentiment and topics, tracks
ad performance, and answers analytics questions in natural language.

Run "chatlens start" to launch the HTTP API and MCP server, then use the
data commands (generate, ingest, records, stats, insight) against it.`,
	SilenceUsage: true,
	Version:      version,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(recordsCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(insightCmd)
	rootCmd.AddCommand(suggestCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
