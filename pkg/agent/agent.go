// Package agent runs the reasoning/tool loop: it alternates model calls and
// tool dispatches for one session until the model produces a tool-call-free
// answer, checkpointing the conversation after every turn.
package agent

import (
	"context"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/Lothnic/Ruty/pkg/config"
	"github.com/Lothnic/Ruty/pkg/memory"
	"github.com/Lothnic/Ruty/pkg/session"
	"github.com/Lothnic/Ruty/pkg/tooling"
)

const (
	// historyWindow bounds the view sent to the model; the full history
	// stays in the checkpoint store.
	historyWindow = 20

	// maxIterations bounds one turn's reason/dispatch cycles so a model
	// stuck requesting tools cannot loop forever.
	maxIterations = 16
)

const systemPrompt = `You are Ruty, a personal AI assistant with access to a knowledge base.

You have the following capabilities through your tools:
- **search_memory**: Search your personal knowledge base for relevant information
- **add_memory**: Save ONLY when user EXPLICITLY asks (e.g. "remember this", "save to memory"). DO NOT auto-save preferences.
- **sync_folder**: Upload all files from a folder to your knowledge base
- **upload_file**: Upload a single file to your knowledge base
- **load_local_context**: Temporarily load local files for the current conversation
- **list_documents**: List all documents in your knowledge base
- **delete_document**: Delete a document from your knowledge base
- **open_url**: Open a web page in the user's browser
- **run_shell**: Run a safe shell command on the user's machine
- **get_system_info**: Report OS, hostname and uptime

Guidelines:
1. When the user asks a question, FIRST search your memory to find relevant context
2. Use add_memory ONLY if user explicitly asks you to remember something
3. Preferences and facts are auto-saved on exit - you don't need to save them manually
4. Be conversational and helpful - you're a personal assistant
5. If you don't find relevant information in memory, say so and offer to help anyway
6. Keep responses concise but informative`

// Agent owns the loop's collaborators. Base URLs are overridable so tests
// can point both the model and the store at local fakes.
type Agent struct {
	Config *config.Store
	Store  session.Store

	// ModelBaseURL overrides the configured provider's endpoint when set.
	ModelBaseURL string
	// MemoryBaseURL overrides the hosted memory store endpoint when set.
	MemoryBaseURL string
}

// New builds an agent over a config store and a checkpoint store.
func New(cfg *config.Store, store session.Store) *Agent {
	return &Agent{Config: cfg, Store: store}
}

// TurnRequest is one inbound user message. Overrides carries per-request
// credentials and is only visible to the calls this turn makes.
type TurnRequest struct {
	SessionID    string
	Message      string
	LocalContext string
	Overrides    config.Overrides
}

// TurnResult is the outcome of one completed turn.
type TurnResult struct {
	Answer    string
	ToolsUsed []string
	Session   *session.Session
}

// Run processes one turn to completion and returns the final answer.
func (a *Agent) Run(ctx context.Context, req TurnRequest) (*TurnResult, error) {
	return a.run(ctx, req, nil)
}

func (a *Agent) run(ctx context.Context, req TurnRequest, emit func(Event)) (*TurnResult, error) {
	if emit == nil {
		emit = func(Event) {}
	}

	cfg := a.Config.Get()
	client := a.clientFor(cfg, req.Overrides)
	toolset := tooling.New(a.memoryClient(cfg, req.Overrides))

	sess, err := a.Store.Load(req.SessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", req.SessionID, err)
	}
	if sess == nil {
		sess = session.New(req.SessionID)
	}
	if req.LocalContext != "" {
		sess.LocalContext = req.LocalContext
	}
	sess.Append(session.Message{Role: "user", Content: req.Message})

	var answer string
	var toolsUsed []string

	for iteration := 0; ; iteration++ {
		if iteration >= maxIterations {
			answer = fmt.Sprintf("Error: stopped after %d tool iterations without a final answer", maxIterations)
			sess.Append(session.Message{Role: "assistant", Content: answer})
			break
		}

		completion, err := client.Chat.Completions.New(ctx, a.buildParams(cfg, sess, toolset))
		if err != nil {
			answer = fmt.Sprint("Error: ", err)
			sess.Append(session.Message{Role: "assistant", Content: answer})
			break
		}
		if len(completion.Choices) == 0 {
			answer = "Error: model returned no choices"
			sess.Append(session.Message{Role: "assistant", Content: answer})
			break
		}

		msg := completion.Choices[0].Message
		sess.Append(session.FromCompletion(msg))

		if len(msg.ToolCalls) == 0 {
			answer = msg.Content
			break
		}

		for _, call := range msg.ToolCalls {
			toolsUsed = append(toolsUsed, call.Function.Name)
			emit(Event{Kind: EventToolInvoked, Name: call.Function.Name})
			result := toolset.Dispatch(call)
			sess.Append(session.ToolResult(call.ID, result))
		}
	}

	if err := a.Store.Save(sess); err != nil {
		return nil, fmt.Errorf("save session %s: %w", sess.ID, err)
	}

	emit(Event{Kind: EventAnswer, Content: answer})
	return &TurnResult{Answer: answer, ToolsUsed: toolsUsed, Session: sess}, nil
}

func (a *Agent) buildParams(cfg config.Config, sess *session.Session, toolset *tooling.Toolset) openai.ChatCompletionNewParams {
	messages := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(systemPrompt)}
	if sess.LocalContext != "" {
		messages = append(messages, openai.SystemMessage("[Local Context]\n"+sess.LocalContext))
	}
	messages = append(messages, session.Params(sess.Window(historyWindow))...)

	return openai.ChatCompletionNewParams{
		Model:       cfg.CurrentModel(),
		Messages:    messages,
		Tools:       toolset.Specs(),
		Temperature: openai.Float(0.7),
		MaxTokens:   openai.Int(2000),
	}
}

func (a *Agent) clientFor(cfg config.Config, ov config.Overrides) openai.Client {
	baseURL := a.ModelBaseURL
	if baseURL == "" {
		baseURL = cfg.CurrentProvider().BaseURL
	}
	opts := []option.RequestOption{option.WithBaseURL(baseURL)}
	if key := cfg.ResolveKey(cfg.Provider, ov); key != "" {
		opts = append(opts, option.WithAPIKey(key))
	}
	return openai.NewClient(opts...)
}

func (a *Agent) memoryClient(cfg config.Config, ov config.Overrides) *memory.Client {
	return memory.NewClient(a.MemoryBaseURL, func() string {
		return cfg.ResolveMemoryKey(ov)
	})
}
