package main

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"leaveplan/internal/config"
	appLog "leaveplan/internal/log"
)

const version = "0.3.0"

func newRootCmd() *cobra.Command {
	a := &app{}
	var logLevel string

	cmd := &cobra.Command{
		Use:          "leaveplan",
		Short:        "Collect the team leave planning and build reports from it",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := config.LoadEnv(config.DefaultEnvFiles...); err != nil {
				return err
			}
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return errors.Wrap(err, "load config")
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := setupLogging(cfg.Log); err != nil {
				return err
			}
			a.cfg = cfg
			appLog.Debug("config loaded", "path", a.configPath, "data_dir", cfg.DataDir, "output_dir", cfg.OutputDir)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "config.yaml", "Path to config file")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	cmd.AddCommand(newScrapeCmd(a))
	cmd.AddCommand(newReportCmd(a))
	cmd.AddCommand(newCalendarCmd(a))
	cmd.AddCommand(newServeCmd(a))
	cmd.AddCommand(newSessionCmd(a))
	return cmd
}

func setupLogging(c config.LogConfig) error {
	appLog.SetLevel(appLog.ParseLevel(c.Level))
	appLog.SetFormat(c.Format)
	return errors.Wrap(appLog.SetFile(c.File), "open log file")
}
