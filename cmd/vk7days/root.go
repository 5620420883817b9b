package main

import (
	"github.com/spf13/cobra"
)

// defaultConfigPath is used when no --config flag or argument is given.
const defaultConfigPath = "./config.toml"

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "vk7days",
	Short: "VK7Days - Personal Weekly Task Reminder",
	Long: `VK7Days keeps a weekly task schedule and fires alarms at the
planned minute, with an optional recorded voice clip per task. The serve
command runs the interactive surface; the worker command runs the background
alarm worker that keeps firing while the surface is closed.`,
	Version: Version,
}

func init() {
	// Add subcommands
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(taskCmd)
}
