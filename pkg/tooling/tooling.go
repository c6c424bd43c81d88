// Package tooling provides the assistant's callable tool set: each tool is
// one exported chat-completion tool spec plus one function from structured
// arguments to a human-readable result string. Tools never return errors;
// every failure is encoded as a "✗ ..." result the model can react to.
package tooling

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/openai/openai-go/v3"

	"github.com/Lothnic/Ruty/pkg/memory"
)

// Toolset binds the tools to their collaborators for one request.
type Toolset struct {
	Memory *memory.Client
}

// New builds a toolset around a memory client.
func New(mem *memory.Client) *Toolset {
	return &Toolset{Memory: mem}
}

// Specs returns the schemas of every tool, for binding to a model call.
func (t *Toolset) Specs() []openai.ChatCompletionToolUnionParam {
	return []openai.ChatCompletionToolUnionParam{
		SearchMemoryTool, AddMemoryTool,
		SyncFolderTool, UploadFileTool, LoadLocalContextTool,
		ListDocumentsTool, DeleteDocumentTool,
		OpenURLTool, RunShellTool, GetSystemInfoTool,
	}
}

// Dispatch executes one requested tool call and returns its textual result.
// The match is total over the closed tool set.
func (t *Toolset) Dispatch(call openai.ChatCompletionMessageToolCallUnion) string {
	args := call.Function.Arguments
	switch call.Function.Name {
	case "search_memory":
		return t.SearchMemory(args)
	case "add_memory":
		return t.AddMemory(args)
	case "sync_folder":
		return t.SyncFolder(args)
	case "upload_file":
		return t.UploadFile(args)
	case "load_local_context":
		return t.LoadLocalContext(args)
	case "list_documents":
		return t.ListDocuments()
	case "delete_document":
		return t.DeleteDocument(args)
	case "open_url":
		return t.OpenURL(args)
	case "run_shell":
		return t.RunShell(args)
	case "get_system_info":
		return t.GetSystemInfo()
	default:
		return "✗ Unknown tool: " + call.Function.Name
	}
}

func expandPath(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return p
	}
	return abs
}
