package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Lothnic/Ruty/pkg/config"
	"github.com/Lothnic/Ruty/pkg/memory"
)

var syncRecursive bool

var syncCmd = &cobra.Command{
	Use:   "sync <path>",
	Short: "Mirror a folder into the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(args[0])
	},
}

func init() {
	syncCmd.Flags().BoolVar(&syncRecursive, "recursive", true, "Descend into subdirectories")
	rootCmd.AddCommand(syncCmd)
}

func runSync(path string) error {
	dir, err := filepath.Abs(expandHome(path))
	if err != nil {
		return err
	}

	cfg := configStore().Get()
	client := memory.NewClient("", func() string {
		return cfg.ResolveMemoryKey(config.Overrides{})
	})

	result, err := client.SyncDir(dir, syncRecursive)
	if err != nil {
		return err
	}
	fmt.Printf("✓ Synced %d files (%d already present, %d failed)\n", result.Synced, result.Skipped, result.Failed)
	return nil
}
