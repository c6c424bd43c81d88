// Package provider holds the static catalog of reachable model providers.
package provider

// Config describes one OpenAI-compatible provider endpoint.
type Config struct {
	Name         string
	BaseURL      string
	DefaultModel string
	APIKeyEnv    string
	Models       []string
	RequiresKey  bool
}

// DefaultID is used when the configured provider id is unknown.
const DefaultID = "groq"

var Providers = map[string]Config{
	"groq": {
		Name:         "Groq",
		BaseURL:      "https://api.groq.com/openai/v1",
		DefaultModel: "moonshotai/kimi-k2-instruct",
		APIKeyEnv:    "GROQ_API_KEY",
		RequiresKey:  true,
		Models: []string{
			"moonshotai/kimi-k2-instruct",
			"llama-3.3-70b-versatile",
			"llama-3.1-8b-instant",
			"gemma2-9b-it",
			"mixtral-8x7b-32768",
		},
	},
	"openai": {
		Name:         "OpenAI",
		BaseURL:      "https://api.openai.com/v1",
		DefaultModel: "gpt-4o-mini",
		APIKeyEnv:    "OPENAI_API_KEY",
		RequiresKey:  true,
		Models: []string{
			"gpt-4o",
			"gpt-4o-mini",
			"gpt-4-turbo",
			"gpt-3.5-turbo",
		},
	},
	"ollama": {
		Name:         "Ollama (Local)",
		BaseURL:      "http://localhost:11434/v1",
		DefaultModel: "llama3.2",
		APIKeyEnv:    "",
		RequiresKey:  false,
		Models: []string{
			"llama3.2",
			"llama3.1",
			"mistral",
			"codellama",
			"qwen2.5",
		},
	},
	"openrouter": {
		Name:         "OpenRouter",
		BaseURL:      "https://openrouter.ai/api/v1",
		DefaultModel: "anthropic/claude-3.5-sonnet",
		APIKeyEnv:    "OPENROUTER_API_KEY",
		RequiresKey:  true,
		Models: []string{
			"anthropic/claude-3.5-sonnet",
			"anthropic/claude-3-haiku",
			"google/gemini-2.0-flash-exp:free",
			"meta-llama/llama-3.3-70b-instruct",
		},
	},
}

// Get returns the provider for id, falling back to the default provider.
func Get(id string) Config {
	if p, ok := Providers[id]; ok {
		return p
	}
	return Providers[DefaultID]
}

// Known reports whether id names a catalog entry.
func Known(id string) bool {
	_, ok := Providers[id]
	return ok
}

// Description is the UI-facing shape of a provider entry.
type Description struct {
	Name         string   `json:"name"`
	Models       []string `json:"models"`
	DefaultModel string   `json:"default_model"`
	RequiresKey  bool     `json:"requires_key"`
}

// List returns all providers keyed by id.
func List() map[string]Description {
	out := make(map[string]Description, len(Providers))
	for id, p := range Providers {
		out[id] = Description{
			Name:         p.Name,
			Models:       p.Models,
			DefaultModel: p.DefaultModel,
			RequiresKey:  p.RequiresKey,
		}
	}
	return out
}
