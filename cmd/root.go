/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/kooshamoradpour/G5-TechStore/config"
	"github.com/kooshamoradpour/G5-TechStore/internal/logger"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "techstore",
	Short: "TechStore storefront backend",
	Long: `TechStore serves the storefront GraphQL API and its REST mirror,
and ships the operational commands that go with it.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func loadConfig() (config.Config, zerolog.Logger) {
	cfg := config.LoadConfig()
	return cfg, logger.New(cfg.Log.Level, cfg.Log.Pretty)
}
