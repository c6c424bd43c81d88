package tooling

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/openai/openai-go/v3"

	"github.com/Lothnic/Ruty/pkg/memory"
)

const localContextFileLimit = 5000

var SyncFolderTool = openai.ChatCompletionToolUnionParam{
	OfFunction: &openai.ChatCompletionFunctionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        "sync_folder",
			Description: openai.String("Upload all files from a folder to your knowledge base. Already-synced files are skipped."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]string{
						"type":        "string",
						"description": "Path to the folder to sync (absolute path or ~ for home)",
					},
				},
				"required": []string{"path"},
			},
		},
	},
}

type pathArguments struct {
	Path string `json:"path"`
}

func (t *Toolset) SyncFolder(rawArgs string) string {
	var args pathArguments
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return fmt.Sprint("✗ Error calling tool sync_folder: ", err)
	}
	if args.Path == "" {
		return "✗ Error calling tool sync_folder: parameter path is empty"
	}

	dir := expandPath(args.Path)
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Sprintf("✗ Path not found: %s", dir)
	}
	if !info.IsDir() {
		return fmt.Sprintf("✗ Not a directory: %s", dir)
	}

	result, err := t.Memory.SyncDir(dir, true)
	if err != nil {
		return fmt.Sprint("✗ ", err)
	}

	out := fmt.Sprintf("✓ Synced %d files (%d already present)", result.Synced, result.Skipped)
	if result.Failed > 0 {
		out += fmt.Sprintf(", %d failed", result.Failed)
	}
	return out
}

var UploadFileTool = openai.ChatCompletionToolUnionParam{
	OfFunction: &openai.ChatCompletionFunctionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        "upload_file",
			Description: openai.String("Upload a single file to your knowledge base."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]string{
						"type":        "string",
						"description": "Path to the file to upload",
					},
				},
				"required": []string{"path"},
			},
		},
	},
}

func (t *Toolset) UploadFile(rawArgs string) string {
	var args pathArguments
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return fmt.Sprint("✗ Error calling tool upload_file: ", err)
	}
	if args.Path == "" {
		return "✗ Error calling tool upload_file: parameter path is empty"
	}

	path := expandPath(args.Path)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Sprintf("✗ File not found: %s", path)
	}
	if info.IsDir() {
		return fmt.Sprintf("✗ Not a file: %s", path)
	}

	name := filepath.Base(path)
	customID := "file:" + name

	var ok bool
	if memory.BinaryExtensions[strings.ToLower(filepath.Ext(path))] {
		ok = t.Memory.UploadFile(path, customID)
	} else {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Sprint("✗ Error: ", err)
		}
		ok = t.Memory.Add(string(content), customID, name)
	}

	if !ok {
		return fmt.Sprintf("✗ Failed to upload: %s", name)
	}
	return fmt.Sprintf("✓ Uploaded: %s", name)
}

var LoadLocalContextTool = openai.ChatCompletionToolUnionParam{
	OfFunction: &openai.ChatCompletionFunctionToolParam{
		Function: openai.FunctionDefinitionParam{
			Name:        "load_local_context",
			Description: openai.String("Load local files into context for the current conversation only. Files are NOT uploaded to your knowledge base."),
			Parameters: openai.FunctionParameters{
				"type": "object",
				"properties": map[string]any{
					"path": map[string]string{
						"type":        "string",
						"description": "Path to file or directory to load",
					},
				},
				"required": []string{"path"},
			},
		},
	},
}

func (t *Toolset) LoadLocalContext(rawArgs string) string {
	var args pathArguments
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return fmt.Sprint("✗ Error calling tool load_local_context: ", err)
	}
	if args.Path == "" {
		return "✗ Error calling tool load_local_context: parameter path is empty"
	}

	path := expandPath(args.Path)
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Sprintf("✗ Path not found: %s", path)
	}

	if info.IsDir() {
		return memory.ReadDirContext(path, 0)
	}
	return ReadFileContext(path)
}

// ReadFileContext reads a single file into a fenced block with a path
// header, capped at a bounded size.
func ReadFileContext(path string) string {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Sprint("✗ Error reading file: ", err)
	}
	text := string(content)
	if len(text) > localContextFileLimit {
		text = text[:localContextFileLimit]
	}
	return fmt.Sprintf("### %s\n```\n%s\n```", filepath.Base(path), text)
}
