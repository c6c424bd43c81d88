// Package session handles conversation checkpoints: the yaml-serializable
// session model, its mapping to chat-completion params and the pluggable
// persistence backends.
package session

import "time"

// Session is one logical conversation. The full message history is retained
// here regardless of the bounded view sent to the model.
type Session struct {
	ID           string    `yaml:"id"`
	CreatedAt    time.Time `yaml:"created_at"`
	LocalContext string    `yaml:"local_context,omitempty"`
	Messages     []Message `yaml:"messages"`
}

// Message is one conversational turn.
type Message struct {
	Role       string     `yaml:"role"`
	Content    string     `yaml:"content,omitempty"`
	ToolCallID string     `yaml:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `yaml:"tool_calls,omitempty"`
}

// ToolCall is one tool-call request issued by an assistant message.
type ToolCall struct {
	ID        string `yaml:"id"`
	Name      string `yaml:"name"`
	Arguments string `yaml:"arguments"`
}

// New creates an empty session.
func New(id string) *Session {
	return &Session{ID: id, CreatedAt: time.Now().UTC()}
}

// Append adds a message to the history.
func (s *Session) Append(m Message) {
	s.Messages = append(s.Messages, m)
}

// Window returns the bounded tail view of at most n messages for a model
// call. Leading tool-result messages whose request fell outside the window
// are dropped so the view never starts with an orphan result. The full
// history is untouched.
func (s *Session) Window(n int) []Message {
	msgs := s.Messages
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	for len(msgs) > 0 && msgs[0].Role == "tool" {
		msgs = msgs[1:]
	}
	return msgs
}

// LastAssistantText returns the content of the most recent assistant message.
func (s *Session) LastAssistantText() string {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == "assistant" {
			return s.Messages[i].Content
		}
	}
	return ""
}

// HasToolCall reports whether any assistant message requested the named tool.
func (s *Session) HasToolCall(name string) bool {
	for _, m := range s.Messages {
		for _, tc := range m.ToolCalls {
			if tc.Name == name {
				return true
			}
		}
	}
	return false
}
