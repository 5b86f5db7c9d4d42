package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:           "healthinfo",
		Short:         "Health information assistant: chat answers with fallback and health videos",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to config.yaml (default: ./config/config.yaml if present)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(askCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
