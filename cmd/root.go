// Package cmd wires the ruty command-line interface.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Lothnic/Ruty/pkg/config"
)

var (
	configPath string
	version    = "dev"
)

var rootCmd = &cobra.Command{
	Use:   "ruty",
	Short: "Personal AI assistant with a remote knowledge base",
	Long: `Ruty is a personal conversational assistant. It reasons over a fixed
tool set (memory search, folder sync, shell, system info) backed by a
remote searchable memory store, and checkpoints every conversation so
sessions survive restarts.

Quick Start:
  ruty chat                        # interactive terminal chat
  ruty serve                       # run the HTTP backend
  ruty sync ~/notes                # mirror a folder into the knowledge base
  ruty config show                 # inspect the active provider and model`,
	Version: version,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file location (default ~/.config/ruty/config.json)")
}

func configStore() *config.Store {
	return config.NewStore(configPath)
}
