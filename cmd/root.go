package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/kovalyov-valentin/newspulse/internal/config"
	"github.com/kovalyov-valentin/newspulse/internal/logging"
)

var (
	cfgFile string
	cfg     config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "newspulse",
	Short: "Fintech news aggregation and classification platform",
	Long: `newspulse collects articles from RSS feeds, classifies them into fintech
categories and serves them over a REST API and a Telegram channel.

Example usage:
  newspulse serve              # Run workers, REST API and the Telegram bot
  newspulse fetch              # Fetch all enabled sources once
  newspulse classify           # Classify one batch of pending articles
  newspulse sources            # Show sources with article counts`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "hcl config file (default is ./config.hcl and ./config.local.hcl)")
}

// initConfig читает конфиг и настраивает логгер для всех команд
func initConfig() error {
	var err error
	if cfgFile == "" {
		cfg, err = config.Get()
	} else {
		cfg, err = config.Load(cfgFile)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger = logging.New(cfg.LogLevel)
	logger.Debug("configuration loaded",
		"http_addr", cfg.HTTPAddr,
		"fetch_interval", cfg.FetchInterval,
		"openai_enabled", cfg.OpenAIKey != "",
		"redis_enabled", cfg.RedisURL != "",
		"nats_enabled", cfg.NATSURL != "",
	)

	return nil
}
