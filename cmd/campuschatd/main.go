package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/univera/campuschat/internal/cli"
	"github.com/univera/campuschat/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "campuschatd",
		Short: "Campuschat daemon and admin CLI",
		Long:  "Campuschat daemon for running the API server and managing the document knowledge base",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.DocsCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
