package main

import (
	"github.com/spf13/cobra"
	"github.com/unowned-ai/wayfarer/pkg/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Show terminal UI",
	Long:  `Display an interactive terminal UI for browsing and editing the journal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Log lines would draw over the alternate screen.
		if logLevel == "" {
			logLevel = "error"
		}
		svc, err := openServices(cmd)
		if err != nil {
			return err
		}
		defer closeServices(svc)

		return tui.ShowTUI(svc.Coordinator, svc.Mode())
	},
}
