package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/unowned-ai/wayfarer/pkg/app"
	"github.com/unowned-ai/wayfarer/pkg/config"
	"github.com/unowned-ai/wayfarer/pkg/logging"
	"github.com/unowned-ai/wayfarer/pkg/utils"
	"go.uber.org/zap"
)

// passwordEnv supplies the journal password to non-interactive writes.
const passwordEnv = config.EnvPrefix + "PASSWORD"

// loadConfig reads the config file and applies --db and --log-level. A
// missing file is an error only when --config was given explicitly.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := configPath
	mustExist := path != ""
	if path == "" {
		path = utils.DefaultConfigPath()
	}
	path, err := utils.ExpandHome(path)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(path, mustExist, nil)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid --log-level: %w", err)
		}
	}
	return cfg, nil
}

// openServices wires the journal and loads the current record set.
func openServices(cmd *cobra.Command) (*app.Services, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		return nil, err
	}
	svc, err := app.Bootstrap(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, err
	}
	svc.Coordinator.SetNoticeSink(func(n app.Notice) {
		if n.Level != app.NoticeInfo {
			cmd.PrintErrln(n.Message)
		}
	})
	if err := svc.Coordinator.Start(cmd.Context()); err != nil {
		svc.Close()
		return nil, err
	}
	return svc, nil
}

func closeServices(svc *app.Services) {
	svc.Close()
	_ = svc.Logger.Sync()
}

// ensureLogin signs in with --password or WAYFARER_PASSWORD when the
// backend requires it and no session is active.
func ensureLogin(cmd *cobra.Command, svc *app.Services) error {
	if !svc.Auth.Configured() || svc.Coordinator.Authenticated() {
		return nil
	}
	password, _ := cmd.Flags().GetString("password")
	if password == "" {
		password = os.Getenv(passwordEnv)
	}
	if password == "" {
		return fmt.Errorf("this journal requires a login: pass --password or set %s", passwordEnv)
	}
	res, err := svc.Coordinator.Login(cmd.Context(), password)
	if err != nil {
		return err
	}
	if !res.Success {
		if res.Err == nil {
			return errors.New("login failed")
		}
		return fmt.Errorf("login failed: %w", res.Err)
	}
	svc.Logger.Debug("logged in for write", zap.String("mode", svc.Mode()))
	return nil
}

func addPasswordFlag(cmd *cobra.Command) {
	cmd.Flags().String("password", "", fmt.Sprintf("Journal password for writes (or set %s)", passwordEnv))
}
