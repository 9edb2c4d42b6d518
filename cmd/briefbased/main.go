package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumenworks/briefbase/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "briefbased",
		Short: "Briefbase daemon and CLI",
		Long:  "Briefbase daemon for serving the retrieval API and ingesting documents",
	}

	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.IngestCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
