package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vk3336/VK7Days/internal/config"
	"github.com/vk3336/VK7Days/internal/logger"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `Validate and inspect VK7Days configuration.`,
}

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate [config-file]",
	Short: "Validate configuration file",
	Long:  `Validate the configuration file and check for errors.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		// Initialize a minimal logger for this command
		log, err := logger.New(logger.Config{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
			os.Exit(1)
		}

		configPath := defaultConfigPath
		if len(args) > 0 {
			configPath = args[0]
		}

		log.Info("Validating configuration", logger.Field{Key: "path", Value: configPath})

		// Load configuration
		cfg, err := config.Load(configPath)
		if err != nil {
			log.Error("Failed to load config", err)
			os.Exit(1)
		}

		// Validate configuration
		errors := cfg.Validate()
		if len(errors) > 0 {
			log.Error("Config validation failed", fmt.Errorf("%d errors", len(errors)))
			for _, e := range errors {
				log.Error("Validation error", e)
			}
			os.Exit(1)
		}

		log.Info("Configuration is valid")
	},
}

// configShowCmd represents the config show command
var configShowCmd = &cobra.Command{
	Use:   "show [config-file]",
	Short: "Show effective configuration",
	Long:  `Print the effective configuration with defaults applied and secrets masked.`,
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		configPath := defaultConfigPath
		if len(args) > 0 {
			configPath = args[0]
		}

		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
			os.Exit(1)
		}

		fmt.Printf("Workspace:            %s\n", cfg.Workspace.Path)
		fmt.Printf("Schedule file:        %s\n", cfg.SchedulePath())
		fmt.Printf("Fired ledger:         %s\n", cfg.LedgerPath())
		fmt.Printf("Clips directory:      %s\n", cfg.ClipsDir())
		fmt.Printf("Foreground interval:  %ds\n", cfg.Alarm.ForegroundIntervalSeconds)
		fmt.Printf("Background interval:  %ds\n", cfg.Alarm.BackgroundIntervalSeconds)
		fmt.Printf("Replay interval:      %dms\n", cfg.Alarm.ReplayIntervalMs)
		fmt.Printf("Ledger retention:     %dd\n", cfg.Alarm.LedgerRetentionDays)
		fmt.Printf("Telegram enabled:     %v\n", cfg.Channels.Telegram.Enabled)
		if cfg.Channels.Telegram.Enabled {
			fmt.Printf("Telegram token:       %s\n", maskToken(cfg.Channels.Telegram.Token))
			fmt.Printf("Telegram chat id:     %d\n", cfg.Channels.Telegram.ChatID)
		}
		fmt.Printf("Player command:       %s\n", cfg.Audio.PlayerCommand)
		fmt.Printf("Default ringtone:     %s\n", cfg.Audio.DefaultRingtone)
		fmt.Printf("Metrics enabled:      %v\n", cfg.Metrics.Enabled)
		if cfg.Metrics.Enabled {
			fmt.Printf("Metrics listen addr:  %s\n", cfg.Metrics.ListenAddr)
		}
	},
}

func maskToken(token string) string {
	if len(token) <= 8 {
		return "****"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}
