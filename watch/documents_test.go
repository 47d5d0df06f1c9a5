package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Arnav112-l/Notepad/document"
	"github.com/Arnav112-l/Notepad/rpc"
	"github.com/sourcegraph/jsonrpc2"
)

type mockLister struct {
	dir  string
	docs []document.Info
	err  error
}

func (m *mockLister) Dir() string { return m.dir }

func (m *mockLister) List(ctx context.Context) ([]document.Info, error) {
	return m.docs, m.err
}

type notification struct {
	method string
	params any
}

type mockNotifier struct {
	mu    sync.Mutex
	calls []notification
}

func (m *mockNotifier) Notify(ctx context.Context, method string, params any, opts ...jsonrpc2.CallOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, notification{method: method, params: params})
	return nil
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func (m *mockNotifier) last() notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

func TestDocumentWatcher_Subscribe(t *testing.T) {
	lister := &mockLister{
		dir: t.TempDir(),
		docs: []document.Info{
			{Name: "a", FullName: "a.txt"},
			{Name: "b", FullName: "b.txt"},
		},
	}
	w := NewDocumentWatcher(lister)

	id, docs, err := w.Subscribe(&mockNotifier{}, "conn1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(id, "docs_") {
		t.Errorf("expected id with prefix 'docs_', got %q", id)
	}
	if len(docs) != 2 {
		t.Errorf("expected 2 documents, got %d", len(docs))
	}
	if !w.HasSubscriptions() {
		t.Error("expected subscription to be registered")
	}
}

func TestDocumentWatcher_SubscribeListError(t *testing.T) {
	lister := &mockLister{dir: t.TempDir(), err: errors.New("disk gone")}
	w := NewDocumentWatcher(lister)

	if _, _, err := w.Subscribe(&mockNotifier{}, "conn1"); err == nil {
		t.Fatal("expected error")
	}
	if w.HasSubscriptions() {
		t.Error("expected failed subscription to be rolled back")
	}
}

func TestDocumentWatcher_Unsubscribe(t *testing.T) {
	w := NewDocumentWatcher(&mockLister{dir: t.TempDir()})

	id, _, _ := w.Subscribe(&mockNotifier{}, "conn1")
	w.Unsubscribe(id)

	if w.HasSubscriptions() {
		t.Error("expected no subscriptions after unsubscribe")
	}

	// unknown id is a no-op
	w.Unsubscribe("docs_missing")
}

func TestDocumentWatcher_CleanupConnection(t *testing.T) {
	w := NewDocumentWatcher(&mockLister{dir: t.TempDir()})

	w.Subscribe(&mockNotifier{}, "conn1")
	w.Subscribe(&mockNotifier{}, "conn1")
	w.Subscribe(&mockNotifier{}, "conn2")

	removed := w.CleanupConnection("conn1")
	if len(removed) != 2 {
		t.Errorf("expected 2 removed subscriptions, got %d", len(removed))
	}
	if len(w.GetAllSubscriptions()) != 1 {
		t.Errorf("expected 1 remaining subscription, got %d", len(w.GetAllSubscriptions()))
	}
	if removed := w.CleanupConnection("conn1"); removed != nil {
		t.Errorf("expected nil on second cleanup, got %v", removed)
	}
}

func TestDocumentWatcher_NotifiesOnFileChange(t *testing.T) {
	dir := t.TempDir()
	w := NewDocumentWatcher(&mockLister{dir: dir})
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	n := &mockNotifier{}
	id, _, _ := w.Subscribe(n, "conn1")

	// several writes inside the debounce window collapse into one notification
	for i := 0; i < 3; i++ {
		os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644)
	}

	deadline := time.Now().Add(2 * time.Second)
	for n.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if n.count() == 0 {
		t.Fatal("expected a notification")
	}

	time.Sleep(3 * debounceInterval)
	if n.count() != 1 {
		t.Errorf("expected 1 debounced notification, got %d", n.count())
	}

	got := n.last()
	if got.method != "documents.changed" {
		t.Errorf("expected method 'documents.changed', got %q", got.method)
	}
	if p, ok := got.params.(rpc.DocumentsChangedParams); !ok || p.ID != id {
		t.Errorf("expected params with id %q, got %#v", id, got.params)
	}
}

func TestDocumentWatcher_IgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	w := NewDocumentWatcher(&mockLister{dir: dir})
	if err := w.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer w.Stop()

	n := &mockNotifier{}
	w.Subscribe(n, "conn1")

	os.WriteFile(filepath.Join(dir, "README.md"), []byte("x"), 0644)

	time.Sleep(3 * debounceInterval)
	if n.count() != 0 {
		t.Errorf("expected no notification, got %d", n.count())
	}
}

func TestDocumentWatcher_StartMissingDir(t *testing.T) {
	w := NewDocumentWatcher(&mockLister{dir: filepath.Join(t.TempDir(), "missing")})
	if err := w.Start(); err == nil {
		w.Stop()
		t.Fatal("expected error for missing directory")
	}
}
