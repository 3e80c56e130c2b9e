package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "relata",
		Short: "Relata JSON:API server",
		Long: `Relata serves declared resource types over HTTP as a JSON:API
interface: resource endpoints, relationship endpoints, filtering, and
compound documents, backed by PostgreSQL or SQLite.`,
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
