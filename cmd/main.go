// Package main runs the SocialDev API.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	envFile string
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "socialdev",
	Short:   "SocialDev backend",
	Long:    `socialdev serves the SocialDev REST API and manages its database schema.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "env file read before the environment")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}
