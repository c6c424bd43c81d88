package cmd

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Lothnic/Ruty/pkg/agent"
	"github.com/Lothnic/Ruty/pkg/observability"
	"github.com/Lothnic/Ruty/pkg/server"
	"github.com/Lothnic/Ruty/pkg/session"
)

var (
	serveHost   string
	servePort   int
	serveDBPath string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP backend for the desktop front end",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Listen address")
	serveCmd.Flags().IntVar(&servePort, "port", 3847, "Listen port")
	serveCmd.Flags().StringVar(&serveDBPath, "db", "", "Session database location (default ~/.local/share/ruty/sessions.db)")
	rootCmd.AddCommand(serveCmd)
}

func defaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "ruty", "sessions.db"), nil
}

func runServe() error {
	dbPath := serveDBPath
	if dbPath == "" {
		var err error
		dbPath, err = defaultDBPath()
		if err != nil {
			return err
		}
	}
	store, err := session.OpenSQLite(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	cfg := configStore()
	handler := server.New(agent.New(cfg, store), cfg)

	addr := fmt.Sprintf("%s:%d", serveHost, servePort)
	observability.Logger().Info("ruty backend listening", "addr", addr, "db", dbPath)
	return http.ListenAndServe(addr, handler)
}
