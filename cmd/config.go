package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Lothnic/Ruty/pkg/config"
	"github.com/Lothnic/Ruty/pkg/provider"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change the runtime configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active provider, model and stored keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := configStore().Get()
		fmt.Println("Provider:", cfg.Provider)
		fmt.Println("Model:   ", cfg.CurrentModel())
		for _, id := range sortedKeys(cfg.APIKeys) {
			fmt.Printf("Key %-12s %s\n", id+":", maskedKey(cfg.APIKeys[id]))
		}
		fmt.Println("Key supermemory:", maskedKey(cfg.SupermemoryKey))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set provider, model, theme or hotkey",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, value := strings.ToLower(args[0]), args[1]
		switch field {
		case "provider", "model", "theme", "hotkey":
		default:
			return fmt.Errorf("unknown field %q (expected provider, model, theme or hotkey)", field)
		}
		if field == "provider" && !provider.Known(value) {
			return fmt.Errorf("unknown provider %q", value)
		}
		_, err := configStore().Update(func(c *config.Config) {
			switch field {
			case "provider":
				c.Provider = value
			case "model":
				c.Model = value
			case "theme":
				c.Theme = value
			case "hotkey":
				c.Hotkey = value
			}
		})
		if err != nil {
			return err
		}
		fmt.Printf("✓ %s set to %s\n", field, value)
		return nil
	},
}

var configKeyCmd = &cobra.Command{
	Use:   "key <provider> <api-key>",
	Short: "Store an API key for a provider (or 'supermemory' for the remote store)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, key := args[0], args[1]
		if id != "supermemory" && !provider.Known(id) {
			return fmt.Errorf("unknown provider %q", id)
		}
		_, err := configStore().Update(func(c *config.Config) {
			if id == "supermemory" {
				c.SupermemoryKey = key
				return
			}
			c.APIKeys[id] = key
		})
		if err != nil {
			return err
		}
		fmt.Printf("✓ Stored key for %s\n", id)
		return nil
	},
}

var configProvidersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List available providers and their models",
	RunE: func(cmd *cobra.Command, args []string) error {
		ids := make([]string, 0, len(provider.Providers))
		for id := range provider.Providers {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			p := provider.Providers[id]
			key := "no key required"
			if p.RequiresKey {
				key = "key: " + p.APIKeyEnv
			}
			fmt.Printf("%s (%s, %s)\n", id, p.Name, key)
			for _, m := range p.Models {
				marker := " "
				if m == p.DefaultModel {
					marker = "*"
				}
				fmt.Printf("  %s %s\n", marker, m)
			}
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configSetCmd, configKeyCmd, configProvidersCmd)
	rootCmd.AddCommand(configCmd)
}

func maskedKey(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 4 {
		return "••••"
	}
	return "••••" + key[len(key)-4:]
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
