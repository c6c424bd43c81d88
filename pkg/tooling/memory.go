package tooling

import (
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"

	"github.com/Lothnic/Ruty/pkg/memory"
)

const searchLimit = 5

var SearchMemoryTool = openai.ChatCompletionToolUnionParam{
	OfFunction: &openai.ChatCompletionFunctionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        "search_memory",
			Description: openai.String("Search your personal knowledge base for relevant information. Always search before answering questions that might relate to stored knowledge."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]string{
						"type":        "string",
						"description": "What to search for in your memories (be specific)",
					},
				},
				"required": []string{"query"},
			},
		},
	},
}

type searchMemoryArguments struct {
	Query string `json:"query"`
}

func (t *Toolset) SearchMemory(rawArgs string) string {
	var args searchMemoryArguments
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return fmt.Sprint("✗ Error calling tool search_memory: ", err)
	}
	if args.Query == "" {
		return "✗ Error calling tool search_memory: parameter query is empty"
	}

	results := t.Memory.Search(args.Query, searchLimit)
	flattened := memory.FlattenResults(results)
	if flattened == "" {
		return "No relevant memories found for this query."
	}
	return flattened
}

var AddMemoryTool = openai.ChatCompletionToolUnionParam{
	OfFunction: &openai.ChatCompletionFunctionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        "add_memory",
			Description: openai.String("Save new information to your knowledge base. Use ONLY when the user explicitly asks to remember something."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"content": map[string]string{
						"type":        "string",
						"description": "The content to remember (be detailed)",
					},
					"title": map[string]string{
						"type":        "string",
						"description": "Optional short title for the memory",
					},
				},
				"required": []string{"content"},
			},
		},
	},
}

type addMemoryArguments struct {
	Content string `json:"content"`
	Title   string `json:"title"`
}

func (t *Toolset) AddMemory(rawArgs string) string {
	var args addMemoryArguments
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return fmt.Sprint("✗ Error calling tool add_memory: ", err)
	}
	if args.Content == "" {
		return "✗ Error calling tool add_memory: parameter content is empty"
	}

	if !t.Memory.Add(args.Content, "", args.Title) {
		return "✗ Failed to save memory"
	}

	preview := args.Title
	if preview == "" {
		// Truncate on a rune boundary so the preview never splits a
		// multi-byte character.
		runes := []rune(args.Content)
		if len(runes) > 50 {
			runes = runes[:50]
		}
		preview = string(runes)
	}
	return fmt.Sprintf("✓ Memory saved: %s...", preview)
}
