package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vk3336/VK7Days/internal/version"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Display the version, build time, git commit and Go version of VK7Days.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("VK7Days - Personal Weekly Task Reminder")
		fmt.Println(version.String())
		fmt.Printf("Go Version: %s\n", version.GoVersion)
	},
}
