package tooling

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"

	"github.com/openai/openai-go/v3"
)

const listDisplayLimit = 30

var ListDocumentsTool = openai.ChatCompletionToolUnionParam{
	OfFunction: &openai.ChatCompletionFunctionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        "list_documents",
			Description: openai.String("List all documents in your knowledge base."),
			Parameters: openai.FunctionParameters{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	},
}

func (t *Toolset) ListDocuments() string {
	records, ok := t.Memory.ListPage(200, 1)
	if !ok || len(records) == 0 {
		return "No documents found in your knowledge base."
	}

	lines := []string{fmt.Sprintf("Found %d documents:", len(records))}
	for i, rec := range records {
		if i >= listDisplayLimit {
			break
		}
		title := rec.Title
		if title == "" {
			title = rec.CustomID
		}
		if title == "" {
			title = rec.ID
		}
		lines = append(lines, "  • "+title)
	}
	if len(records) > listDisplayLimit {
		lines = append(lines, fmt.Sprintf("  ... and %d more", len(records)-listDisplayLimit))
	}
	return strings.Join(lines, "\n")
}

var DeleteDocumentTool = openai.ChatCompletionToolUnionParam{
	OfFunction: &openai.ChatCompletionFunctionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        "delete_document",
			Description: openai.String("Delete a document from your knowledge base by its ID."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"doc_id": map[string]string{
						"type":        "string",
						"description": "ID of the document to delete",
					},
				},
				"required": []string{"doc_id"},
			},
		},
	},
}

type deleteDocumentArguments struct {
	DocID string `json:"doc_id"`
}

func (t *Toolset) DeleteDocument(rawArgs string) string {
	var args deleteDocumentArguments
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return fmt.Sprint("✗ Error calling tool delete_document: ", err)
	}
	if args.DocID == "" {
		return "✗ Error calling tool delete_document: parameter doc_id is empty"
	}

	if !t.Memory.Delete(args.DocID) {
		return fmt.Sprintf("✗ Failed to delete document: %s", args.DocID)
	}
	return fmt.Sprintf("✓ Deleted document: %s", args.DocID)
}

var OpenURLTool = openai.ChatCompletionToolUnionParam{
	OfFunction: &openai.ChatCompletionFunctionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        "open_url",
			Description: openai.String("Open a URL in the user's default web browser."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"url": map[string]string{
						"type":        "string",
						"description": "The URL to open (must start with http:// or https://)",
					},
				},
				"required": []string{"url"},
			},
		},
	},
}

type openURLArguments struct {
	URL string `json:"url"`
}

// openBrowser is swapped out in tests.
var openBrowser = func(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}

func (t *Toolset) OpenURL(rawArgs string) string {
	var args openURLArguments
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return fmt.Sprint("✗ Error calling tool open_url: ", err)
	}

	url := args.URL
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		if strings.Contains(url, ".") && !strings.HasPrefix(url, "/") {
			url = "https://" + url
		} else {
			return fmt.Sprintf("✗ Invalid URL: %s. Must be a valid web address.", args.URL)
		}
	}

	if err := openBrowser(url); err != nil {
		return fmt.Sprint("✗ Failed to open URL: ", err)
	}
	return fmt.Sprintf("✓ Opened %s in your browser", url)
}

var GetSystemInfoTool = openai.ChatCompletionToolUnionParam{
	OfFunction: &openai.ChatCompletionFunctionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        "get_system_info",
			Description: openai.String("Get basic system information: OS, hostname and uptime."),
			Parameters: openai.FunctionParameters{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	},
}

func (t *Toolset) GetSystemInfo() string {
	info := []string{
		fmt.Sprintf("OS: %s", runtime.GOOS),
		fmt.Sprintf("Machine: %s", runtime.GOARCH),
	}

	if host, err := os.Hostname(); err == nil {
		info = append(info, fmt.Sprintf("Hostname: %s", host))
	}

	if data, err := os.ReadFile("/proc/uptime"); err == nil {
		fields := strings.Fields(string(data))
		if len(fields) > 0 {
			if seconds, err := strconv.ParseFloat(fields[0], 64); err == nil {
				hours := int(seconds) / 3600
				minutes := (int(seconds) % 3600) / 60
				info = append(info, fmt.Sprintf("Uptime: %dh %dm", hours, minutes))
			}
		}
	}

	return strings.Join(info, "\n")
}
