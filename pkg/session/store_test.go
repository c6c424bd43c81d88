package session

import (
	"path/filepath"
	"testing"
)

func sampleSession(id string) *Session {
	sess := New(id)
	sess.LocalContext = "### notes.md\n```\nhello\n```"
	sess.Append(Message{Role: "user", Content: "hi"})
	sess.Append(Message{
		Role: "assistant",
		ToolCalls: []ToolCall{
			{ID: "call_1", Name: "search_memory", Arguments: `{"query":"hi"}`},
		},
	})
	sess.Append(Message{Role: "tool", ToolCallID: "call_1", Content: "No relevant memories found for this query."})
	sess.Append(Message{Role: "assistant", Content: "hello!"})
	return sess
}

func testStoreRoundTrip(t *testing.T, store Store) {
	t.Helper()

	if loaded, err := store.Load("missing"); err != nil || loaded != nil {
		t.Fatalf("Load(missing) = %v, %v; want nil, nil", loaded, err)
	}

	sess := sampleSession("s1")
	if err := store.Save(sess); err != nil {
		t.Fatal(err)
	}

	loaded, err := store.Load("s1")
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil {
		t.Fatal("Load returned nil for a saved session")
	}
	if len(loaded.Messages) != len(sess.Messages) {
		t.Fatalf("loaded %d messages, want %d", len(loaded.Messages), len(sess.Messages))
	}
	if loaded.LocalContext != sess.LocalContext {
		t.Fatalf("local context lost: %q", loaded.LocalContext)
	}
	if loaded.Messages[1].ToolCalls[0].Name != "search_memory" {
		t.Fatalf("tool calls lost: %+v", loaded.Messages[1])
	}
	if loaded.Messages[2].ToolCallID != "call_1" {
		t.Fatalf("tool call id lost: %+v", loaded.Messages[2])
	}

	// Overwrite with more history, then reload.
	loaded.Append(Message{Role: "user", Content: "more"})
	if err := store.Save(loaded); err != nil {
		t.Fatal(err)
	}
	again, err := store.Load("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Messages) != len(sess.Messages)+1 {
		t.Fatalf("overwrite lost messages: %d", len(again.Messages))
	}

	metas, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(metas) != 1 || metas[0].ID != "s1" {
		t.Fatalf("unexpected listing: %+v", metas)
	}

	if err := store.Delete("s1"); err != nil {
		t.Fatal(err)
	}
	if loaded, _ := store.Load("s1"); loaded != nil {
		t.Fatal("session survived deletion")
	}
}

func TestMemoryStore(t *testing.T) {
	testStoreRoundTrip(t, NewMemoryStore())
}

func TestSQLiteStore(t *testing.T) {
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	testStoreRoundTrip(t, store)
}

func TestSQLiteStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")

	store, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Save(sampleSession("restart")); err != nil {
		t.Fatal(err)
	}
	store.Close()

	reopened, err := OpenSQLite(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	loaded, err := reopened.Load("restart")
	if err != nil {
		t.Fatal(err)
	}
	if loaded == nil || len(loaded.Messages) != 4 {
		t.Fatalf("checkpoint lost across restart: %+v", loaded)
	}
}

func TestMemoryStoreSavesCopies(t *testing.T) {
	store := NewMemoryStore()
	sess := sampleSession("copy")
	if err := store.Save(sess); err != nil {
		t.Fatal(err)
	}
	sess.Append(Message{Role: "user", Content: "mutated after save"})

	loaded, err := store.Load("copy")
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Messages) != 4 {
		t.Fatalf("store shared state with caller: %d messages", len(loaded.Messages))
	}
}
