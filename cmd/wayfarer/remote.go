package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/unowned-ai/wayfarer/pkg/remote"
)

var remoteCmd = &cobra.Command{
	Use:   "remote",
	Short: "Helpers for the hosted backend",
}

var remoteSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the SQL that prepares a Supabase project",
	Long: `Print the table, row-level security policies and change-notification trigger the
remote store expects. Run it once in the Supabase SQL editor.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Print(remote.Schema)
	},
}

func initRemoteCmd() {
	remoteCmd.AddCommand(remoteSchemaCmd)
}
