package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ledgerworks/rfpd/internal/cli"
	"github.com/ledgerworks/rfpd/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "rfpd",
		Short: "RFP answering daemon and CLI",
		Long:  "RFP answering daemon for running the API server and managing organizations, API keys and knowledge imports",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.OrgCmd())
	rootCmd.AddCommand(admin.APIKeyCmd())
	rootCmd.AddCommand(admin.ImportCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
