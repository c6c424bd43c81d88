package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"

	"github.com/Lothnic/Ruty/pkg/config"
	"github.com/Lothnic/Ruty/pkg/session"
)

const extractionPrompt = `You are an expert memory assistant. Your goal is to extract valuable information from a conversation log.
Analyze the following conversation and extract:
1. User preferences (what they like/dislike, their tech stack, goals)
2. Facts established (e.g., project names, decisions made)
3. Action items or future intentions
4. Context that would be useful for a future session

Ignore pleasantries, system errors, or transient info.
Format the output as a bulleted list of standalone facts that can be stored in a knowledge base.
If nothing is worth remembering, return "NO_MEMORY".

Conversation:
%s`

const noMemorySentinel = "NO_MEMORY"

// ExtractMemories condenses a finished session into durable memory entries.
// It runs once per session teardown, skips when the session already saved
// memories explicitly or holds fewer than two user/assistant turns, and
// reports whether anything was written.
func (a *Agent) ExtractMemories(ctx context.Context, sess *session.Session, ov config.Overrides) bool {
	if sess == nil || sess.HasToolCall("add_memory") {
		return false
	}

	transcript := formatTranscript(sess.Messages)
	if transcript == "" {
		return false
	}

	cfg := a.Config.Get()
	client := a.clientFor(cfg, ov)

	completion, err := client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: cfg.CurrentModel(),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(fmt.Sprintf(extractionPrompt, transcript)),
		},
		Temperature: openai.Float(0.3),
	})
	if err != nil || len(completion.Choices) == 0 {
		return false
	}

	extracted := strings.TrimSpace(completion.Choices[0].Message.Content)
	if extracted == "" || extracted == noMemorySentinel {
		return false
	}

	timestamp := time.Now().Format("2006-01-02 15:04")
	content := fmt.Sprintf("Session ID: %s\nDate: %s\n\n%s", sess.ID, timestamp, extracted)
	title := "Memory Update: " + timestamp

	mem := a.memoryClient(cfg, ov)
	return mem.Add(content, "mem_"+sess.ID, title)
}

// formatTranscript renders the user/assistant exchanges of a history,
// returning "" when fewer than two such turns carry content.
func formatTranscript(messages []session.Message) string {
	var b strings.Builder
	turns := 0
	for _, m := range messages {
		if m.Role != "user" && m.Role != "assistant" {
			continue
		}
		turns++
		if m.Content == "" {
			continue
		}
		role := "User"
		if m.Role == "assistant" {
			role = "Assistant"
		}
		fmt.Fprintf(&b, "%s: %s\n", role, m.Content)
	}
	if turns < 2 {
		return ""
	}
	return b.String()
}
