package tooling

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/openai/openai-go/v3"

	"github.com/Lothnic/Ruty/pkg/memory"
)

// fakeStore is a minimal scripted remote memory store.
type fakeStore struct {
	mu            sync.Mutex
	searchResults []map[string]any
	listRecords   []map[string]string
	writes        []string
}

func (f *fakeStore) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/v4/search", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"results": f.searchResults})
	})
	mux.HandleFunc("/v3/documents/list", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"memories": f.listRecords})
	})
	mux.HandleFunc("/v3/memories", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.writes = append(f.writes, "add")
		f.mu.Unlock()
		json.NewEncoder(w).Encode(map[string]string{"id": "ok"})
	})
	mux.HandleFunc("/v3/documents/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodDelete {
			json.NewEncoder(w).Encode(map[string]string{"id": "gone"})
			return
		}
		http.Error(w, "nope", http.StatusBadRequest)
	})
	return mux
}

func newTestToolset(t *testing.T, f *fakeStore) *Toolset {
	t.Helper()
	ts := httptest.NewServer(f.handler())
	t.Cleanup(ts.Close)
	return New(memory.NewClient(ts.URL, func() string { return "test" }))
}

func TestSearchMemoryEmptyKnowledgeBase(t *testing.T) {
	f := &fakeStore{}
	ts := newTestToolset(t, f)

	out := ts.SearchMemory(`{"query":"x"}`)
	if out != "No relevant memories found for this query." {
		t.Fatalf("unexpected result: %q", out)
	}
	if len(f.writes) != 0 {
		t.Fatalf("search triggered %d writes", len(f.writes))
	}
}

func TestSearchMemoryFlattens(t *testing.T) {
	f := &fakeStore{searchResults: []map[string]any{
		{"chunks": []map[string]string{{"content": "likes Go"}, {"content": "works remote"}}},
	}}
	ts := newTestToolset(t, f)

	out := ts.SearchMemory(`{"query":"preferences"}`)
	if out != "likes Go\n\n---\n\nworks remote" {
		t.Fatalf("unexpected result: %q", out)
	}
}

func TestAddMemoryConfirmation(t *testing.T) {
	f := &fakeStore{}
	ts := newTestToolset(t, f)

	out := ts.AddMemory(`{"content":"the project is called atlas","title":"Project name"}`)
	if out != "✓ Memory saved: Project name..." {
		t.Fatalf("unexpected confirmation: %q", out)
	}
	if len(f.writes) != 1 {
		t.Fatalf("expected one write, got %d", len(f.writes))
	}
}

func TestAddMemoryPreviewKeepsRunesIntact(t *testing.T) {
	f := &fakeStore{}
	ts := newTestToolset(t, f)

	content := strings.Repeat("京", 60)
	out := ts.AddMemory(fmt.Sprintf(`{"content":%q}`, content))
	want := "✓ Memory saved: " + strings.Repeat("京", 50) + "..."
	if out != want {
		t.Fatalf("preview = %q", out)
	}
	if !utf8.ValidString(out) {
		t.Fatalf("preview contains a split rune: %q", out)
	}
}

func TestListDocumentsCapsDisplay(t *testing.T) {
	f := &fakeStore{}
	for i := 0; i < 35; i++ {
		f.listRecords = append(f.listRecords, map[string]string{"id": fmt.Sprint(i), "title": fmt.Sprintf("doc %d", i)})
	}
	ts := newTestToolset(t, f)

	out := ts.ListDocuments()
	if !strings.Contains(out, "Found 35 documents:") {
		t.Fatalf("missing count header: %q", out)
	}
	if !strings.Contains(out, "... and 5 more") {
		t.Fatalf("missing overflow note: %q", out)
	}
}

func TestListDocumentsEmpty(t *testing.T) {
	ts := newTestToolset(t, &fakeStore{})
	if out := ts.ListDocuments(); out != "No documents found in your knowledge base." {
		t.Fatalf("unexpected result: %q", out)
	}
}

func TestDeleteDocument(t *testing.T) {
	ts := newTestToolset(t, &fakeStore{})
	if out := ts.DeleteDocument(`{"doc_id":"abc"}`); out != "✓ Deleted document: abc" {
		t.Fatalf("unexpected result: %q", out)
	}
}

func TestOpenURLValidation(t *testing.T) {
	var opened string
	orig := openBrowser
	openBrowser = func(url string) error {
		opened = url
		return nil
	}
	defer func() { openBrowser = orig }()

	ts := New(nil)

	out := ts.OpenURL(`{"url":"example.com/docs"}`)
	if opened != "https://example.com/docs" {
		t.Fatalf("scheme not prepended: %q", opened)
	}
	if !strings.HasPrefix(out, "✓ Opened") {
		t.Fatalf("unexpected result: %q", out)
	}

	opened = ""
	out = ts.OpenURL(`{"url":"not a url"}`)
	if opened != "" {
		t.Fatalf("malformed url opened: %q", opened)
	}
	if !strings.HasPrefix(out, "✗ Invalid URL") {
		t.Fatalf("unexpected result: %q", out)
	}
}

func TestUploadFileMissing(t *testing.T) {
	ts := newTestToolset(t, &fakeStore{})
	out := ts.UploadFile(`{"path":"/does/not/exist.txt"}`)
	if !strings.HasPrefix(out, "✗ File not found") {
		t.Fatalf("unexpected result: %q", out)
	}
}

func TestUploadFileText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.md")
	if err := os.WriteFile(path, []byte("# note"), 0o644); err != nil {
		t.Fatal(err)
	}

	f := &fakeStore{}
	ts := newTestToolset(t, f)
	out := ts.UploadFile(fmt.Sprintf(`{"path":%q}`, path))
	if out != "✓ Uploaded: note.md" {
		t.Fatalf("unexpected result: %q", out)
	}
	if len(f.writes) != 1 {
		t.Fatalf("expected one write, got %d", len(f.writes))
	}
}

func TestLoadLocalContextFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ctx.txt")
	if err := os.WriteFile(path, []byte("context body"), 0o644); err != nil {
		t.Fatal(err)
	}

	ts := New(nil)
	out := ts.LoadLocalContext(fmt.Sprintf(`{"path":%q}`, path))
	if !strings.HasPrefix(out, "### ctx.txt") || !strings.Contains(out, "context body") {
		t.Fatalf("unexpected context: %q", out)
	}
}

func TestGetSystemInfo(t *testing.T) {
	ts := New(nil)
	out := ts.GetSystemInfo()
	if !strings.Contains(out, "OS: ") {
		t.Fatalf("missing OS line: %q", out)
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	ts := New(nil)
	call := openai.ChatCompletionMessageToolCallUnion{ID: "c1"}
	call.Function.Name = "does_not_exist"
	if out := ts.Dispatch(call); out != "✗ Unknown tool: does_not_exist" {
		t.Fatalf("unexpected result: %q", out)
	}
}
