package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Lothnic/Ruty/pkg/config"
	"github.com/Lothnic/Ruty/pkg/session"
)

// fakeModel is a scripted OpenAI-compatible provider.
type fakeModel struct {
	mu       sync.Mutex
	queue    [][]byte
	requests []capturedRequest
	respond  func(req capturedRequest) []byte
	delay    time.Duration
	failWith int
}

type capturedRequest struct {
	Auth string
	Body map[string]any
}

func (f *fakeModel) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		req := capturedRequest{Auth: r.Header.Get("Authorization"), Body: body}

		f.mu.Lock()
		f.requests = append(f.requests, req)
		var out []byte
		switch {
		case f.failWith != 0:
			f.mu.Unlock()
			http.Error(w, "provider down", f.failWith)
			return
		case f.respond != nil:
			out = f.respond(req)
		case len(f.queue) > 0:
			out = f.queue[0]
			f.queue = f.queue[1:]
		default:
			out = assistantCompletion("out of script")
		}
		f.mu.Unlock()

		if f.delay > 0 {
			time.Sleep(f.delay)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(out)
	})
	return mux
}

func (f *fakeModel) captured() []capturedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capturedRequest(nil), f.requests...)
}

func assistantCompletion(content string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "test",
		"choices": [{"index": 0, "finish_reason": "stop",
			"message": {"role": "assistant", "content": %q}}]}`, content))
}

func toolCallCompletion(callID, name, args string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "chatcmpl-2", "object": "chat.completion", "created": 1, "model": "test",
		"choices": [{"index": 0, "finish_reason": "tool_calls",
			"message": {"role": "assistant", "content": "",
				"tool_calls": [{"id": %q, "type": "function",
					"function": {"name": %q, "arguments": %q}}]}}]}`, callID, name, args))
}

func messagesOf(req capturedRequest) []map[string]any {
	raw, _ := req.Body["messages"].([]any)
	out := make([]map[string]any, 0, len(raw))
	for _, m := range raw {
		if mm, ok := m.(map[string]any); ok {
			out = append(out, mm)
		}
	}
	return out
}

func newTestAgent(t *testing.T, model *fakeModel) (*Agent, session.Store) {
	t.Helper()
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("SUPERMEMORY_API_KEY", "")

	modelSrv := httptest.NewServer(model.handler())
	t.Cleanup(modelSrv.Close)

	memorySrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"memories": []any{}, "results": []any{}})
	}))
	t.Cleanup(memorySrv.Close)

	store := session.NewMemoryStore()
	ag := New(config.NewStore(filepath.Join(t.TempDir(), "config.json")), store)
	ag.ModelBaseURL = modelSrv.URL
	ag.MemoryBaseURL = memorySrv.URL
	return ag, store
}

func TestLoopTerminatesOnPlainAnswer(t *testing.T) {
	model := &fakeModel{queue: [][]byte{
		toolCallCompletion("call_1", "get_system_info", "{}"),
		assistantCompletion("here is your answer"),
	}}
	ag, _ := newTestAgent(t, model)

	result, err := ag.Run(context.Background(), TurnRequest{SessionID: "s1", Message: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Answer != "here is your answer" {
		t.Fatalf("answer = %q", result.Answer)
	}
	if len(result.ToolsUsed) != 1 || result.ToolsUsed[0] != "get_system_info" {
		t.Fatalf("tools used = %v", result.ToolsUsed)
	}

	msgs := result.Session.Messages
	if last := msgs[len(msgs)-1]; last.Role != "assistant" || last.Content != "here is your answer" {
		t.Fatalf("history does not end with the final answer: %+v", last)
	}
	// user + assistant(tool call) + tool result + assistant answer
	if len(msgs) != 4 {
		t.Fatalf("history length = %d, want 4", len(msgs))
	}
}

func TestToolResultPairing(t *testing.T) {
	model := &fakeModel{queue: [][]byte{
		toolCallCompletion("call_a", "get_system_info", "{}"),
		toolCallCompletion("call_b", "run_shell", `{"command":"echo hi"}`),
		assistantCompletion("done"),
	}}
	ag, _ := newTestAgent(t, model)

	result, err := ag.Run(context.Background(), TurnRequest{SessionID: "s1", Message: "go"})
	if err != nil {
		t.Fatal(err)
	}

	requested := map[string]int{}
	resolved := map[string]int{}
	for _, m := range result.Session.Messages {
		for _, tc := range m.ToolCalls {
			requested[tc.ID]++
		}
		if m.Role == "tool" {
			resolved[m.ToolCallID]++
		}
	}
	for id, n := range requested {
		if resolved[id] != 1 {
			t.Errorf("call %s resolved %d times, want 1 (requested %d)", id, resolved[id], n)
		}
	}
	for id := range resolved {
		if requested[id] == 0 {
			t.Errorf("tool result %s has no matching request", id)
		}
	}
}

func TestTrimmingIsViewOnly(t *testing.T) {
	model := &fakeModel{queue: [][]byte{assistantCompletion("short answer")}}
	ag, store := newTestAgent(t, model)

	sess := session.New("long")
	for i := 0; i < 30; i++ {
		sess.Append(session.Message{Role: "user", Content: fmt.Sprintf("old %d", i)})
		sess.Append(session.Message{Role: "assistant", Content: fmt.Sprintf("re %d", i)})
	}
	if err := store.Save(sess); err != nil {
		t.Fatal(err)
	}

	result, err := ag.Run(context.Background(), TurnRequest{SessionID: "long", Message: "new question"})
	if err != nil {
		t.Fatal(err)
	}

	if got, want := len(result.Session.Messages), 60+2; got != want {
		t.Fatalf("full history length = %d, want %d", got, want)
	}

	sent := messagesOf(model.captured()[0])
	nonSystem := 0
	for _, m := range sent {
		if m["role"] != "system" {
			nonSystem++
		}
	}
	if nonSystem > 20 {
		t.Fatalf("model saw %d conversation messages, want <= 20", nonSystem)
	}
}

func TestIterationCap(t *testing.T) {
	model := &fakeModel{}
	calls := 0
	model.respond = func(capturedRequest) []byte {
		calls++
		return toolCallCompletion(fmt.Sprintf("call_%d", calls), "get_system_info", "{}")
	}
	ag, _ := newTestAgent(t, model)

	result, err := ag.Run(context.Background(), TurnRequest{SessionID: "loop", Message: "spin"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(result.Answer, "Error: stopped after") {
		t.Fatalf("cap not reported: %q", result.Answer)
	}
	if calls != maxIterations {
		t.Fatalf("model called %d times, want %d", calls, maxIterations)
	}
}

func TestModelFailureBecomesAnswer(t *testing.T) {
	model := &fakeModel{failWith: http.StatusBadGateway}
	ag, store := newTestAgent(t, model)

	result, err := ag.Run(context.Background(), TurnRequest{SessionID: "down", Message: "hi"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(result.Answer, "Error: ") {
		t.Fatalf("failure not surfaced in conversation: %q", result.Answer)
	}

	// The failed turn is still checkpointed.
	sess, err := store.Load("down")
	if err != nil || sess == nil {
		t.Fatalf("session not saved: %v", err)
	}
	if sess.LastAssistantText() != result.Answer {
		t.Fatalf("error answer not persisted: %q", sess.LastAssistantText())
	}
}

func TestLocalContextInjectedAsSystemMessage(t *testing.T) {
	model := &fakeModel{queue: [][]byte{assistantCompletion("ok")}}
	ag, _ := newTestAgent(t, model)

	_, err := ag.Run(context.Background(), TurnRequest{
		SessionID:    "ctx",
		Message:      "what does the file say?",
		LocalContext: "### notes.md\nthe answer is 42",
	})
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, m := range messagesOf(model.captured()[0]) {
		content, _ := m["content"].(string)
		if m["role"] == "system" && strings.Contains(content, "[Local Context]") && strings.Contains(content, "the answer is 42") {
			found = true
		}
	}
	if !found {
		t.Fatal("local context system message not sent to the model")
	}
}

func TestStreamEventOrder(t *testing.T) {
	model := &fakeModel{queue: [][]byte{
		toolCallCompletion("call_1", "get_system_info", "{}"),
		assistantCompletion("streamed answer"),
	}}
	ag, _ := newTestAgent(t, model)

	stream := ag.RunStream(context.Background(), TurnRequest{SessionID: "ev", Message: "hi"})
	var kinds []string
	for stream.Next() {
		kinds = append(kinds, stream.Current().Kind)
	}
	want := []string{EventToolInvoked, EventAnswer, EventDone}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("events = %v, want %v", kinds, want)
		}
	}
	if stream.Err() != nil {
		t.Fatalf("stream error: %v", stream.Err())
	}
	if stream.Result() == nil || stream.Result().Answer != "streamed answer" {
		t.Fatalf("stream result = %+v", stream.Result())
	}
}

func TestCredentialIsolationAcrossConcurrentSessions(t *testing.T) {
	model := &fakeModel{delay: 30 * time.Millisecond}
	model.respond = func(capturedRequest) []byte {
		return assistantCompletion("ok")
	}
	ag, _ := newTestAgent(t, model)

	run := func(sessionID, marker, key string) {
		for i := 0; i < 5; i++ {
			ag.Run(context.Background(), TurnRequest{
				SessionID: sessionID,
				Message:   marker,
				Overrides: config.Overrides{APIKeys: map[string]string{"groq": key}},
			})
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); run("sess-a", "marker-A", "key-A") }()
	go func() { defer wg.Done(); run("sess-b", "marker-B", "key-B") }()
	wg.Wait()

	for _, req := range model.captured() {
		var marker string
		for _, m := range messagesOf(req) {
			content, _ := m["content"].(string)
			if strings.Contains(content, "marker-A") {
				marker = "A"
			}
			if strings.Contains(content, "marker-B") {
				marker = "B"
			}
		}
		want := "Bearer key-" + marker
		if req.Auth != want {
			t.Fatalf("request for session %s carried %q, want %q", marker, req.Auth, want)
		}
	}

	// The override never leaks into the persisted configuration.
	if keys := ag.Config.Get().APIKeys; len(keys) != 0 {
		t.Fatalf("override leaked into stored config: %v", keys)
	}
}
