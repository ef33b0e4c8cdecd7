package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/unowned-ai/wayfarer/pkg/mcp"
	"go.uber.org/zap"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Wayfarer MCP server (stdio)",
	Long: `Start a Model Context Protocol (MCP) server that exposes the travel journal as MCP
tools via STDIO.

Writes need a login when the journal has a password. Pass --password (or set
WAYFARER_PASSWORD) to log in at startup, or let the client call the 'login' tool.

If --metrics-addr is given, Prometheus metrics for remote store and image host calls
are served on http://<addr>/metrics.

Example:
  wayfarer mcp
  wayfarer mcp --db journal.db --metrics-addr 127.0.0.1:9464`,
	RunE: func(cmd *cobra.Command, args []string) error {
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		svc, err := openServices(cmd)
		if err != nil {
			return err
		}
		defer closeServices(svc)

		password, _ := cmd.Flags().GetString("password")
		if password != "" || os.Getenv(passwordEnv) != "" {
			if err := ensureLogin(cmd, svc); err != nil {
				return err
			}
		}

		if metricsAddr != "" {
			mux := http.NewServeMux()
			mux.Handle("/metrics", svc.Metrics.Handler())
			metricsSrv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
			go func() {
				if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					svc.Logger.Error("metrics server stopped", zap.String("addr", metricsAddr), zap.Error(err))
				}
			}()
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				metricsSrv.Shutdown(ctx)
			}()
		}

		srv := mcp.NewWayfarerMCPServer(svc.Coordinator)
		tools := srv.RegisterAll()

		// Log to stderr so we don't contaminate the JSON-RPC stream on stdout.
		fmt.Fprintf(os.Stderr, "Wayfarer MCP server started. Storage: %s\n", svc.Mode())
		if metricsAddr != "" {
			fmt.Fprintf(os.Stderr, "Metrics on http://%s/metrics\n", metricsAddr)
		}
		fmt.Fprintf(os.Stderr, "Available tools: %s\n", strings.Join(tools, ", "))
		fmt.Fprintln(os.Stderr, "Listening for MCP JSON-RPC on STDIN/STDOUT ... (Ctrl+C to quit)")

		// Run the server (blocks until stdio closes).
		return srv.Start()
	},
}

func initMCPCmd() {
	mcpCmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address (e.g. 127.0.0.1:9464)")
	addPasswordFlag(mcpCmd)
}
