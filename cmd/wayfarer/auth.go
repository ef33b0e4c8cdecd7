package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/unowned-ai/wayfarer/pkg/utils"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Check the journal password",
	Long: `Log in with --password or WAYFARER_PASSWORD and report whether it was accepted.
Sessions are not persisted: every write command logs in again.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices(cmd)
		if err != nil {
			return err
		}
		defer closeServices(svc)

		if !svc.Auth.Configured() {
			fmt.Println("This journal has no password; writes are open.")
			return nil
		}
		if err := ensureLogin(cmd, svc); err != nil {
			return err
		}
		fmt.Println("Logged in.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the storage backend and configuration in use",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := openServices(cmd)
		if err != nil {
			return err
		}
		defer closeServices(svc)

		cfg := svc.Config
		fmt.Printf("Storage:      %s\n", svc.Mode())
		if svc.Remote != nil {
			fmt.Printf("Remote URL:   %s\n", cfg.SupabaseURL)
			fmt.Printf("Change feed:  %t\n", cfg.DatabaseURL != "")
		}
		local := cfg.DBPath
		if local == "" {
			local = utils.DefaultDBPath()
		}
		fmt.Printf("Local DB:     %s\n", local)
		fmt.Printf("Image host:   %t\n", svc.Uploader.Configured())
		fmt.Printf("Login needed: %t\n", svc.Auth.Configured())
		fmt.Printf("Logged in:    %t\n", svc.Coordinator.Authenticated())
		fmt.Printf("Memories:     %d\n", len(svc.Coordinator.Records()))
		return nil
	},
}

func initAuthCmds() {
	addPasswordFlag(loginCmd)
}
