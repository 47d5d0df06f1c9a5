package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/Arnav112-l/Notepad/document"
	"github.com/Arnav112-l/Notepad/rpc"
	"github.com/fsnotify/fsnotify"
)

const debounceInterval = 100 * time.Millisecond

// Lister returns the current document list.
type Lister interface {
	Dir() string
	List(ctx context.Context) ([]document.Info, error)
}

// DocumentWatcher notifies subscribers when documents are added, changed or
// removed on disk, whether through the API or by another process.
type DocumentWatcher struct {
	*BaseWatcher
	docs    Lister
	watcher *fsnotify.Watcher

	timerMu sync.Mutex
	timer   *time.Timer
}

func NewDocumentWatcher(docs Lister) *DocumentWatcher {
	return &DocumentWatcher{
		BaseWatcher: NewBaseWatcher("docs"),
		docs:        docs,
	}
}

func (w *DocumentWatcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.docs.Dir()); err != nil {
		watcher.Close()
		return err
	}
	w.watcher = watcher

	go w.eventLoop()
	slog.Info("DocumentWatcher started", "dir", w.docs.Dir())
	return nil
}

func (w *DocumentWatcher) Stop() {
	w.Cancel()
	if w.watcher != nil {
		w.watcher.Close()
	}

	w.timerMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.timerMu.Unlock()

	slog.Info("DocumentWatcher stopped")
}

// Subscribe registers a subscriber and returns the subscription ID along with
// the current document list.
func (w *DocumentWatcher) Subscribe(conn Notifier, connID string) (string, []document.Info, error) {
	id := w.GenerateID()
	// Add before listing so a change between the two is not missed.
	w.AddSubscription(&Subscription{ID: id, ConnID: connID, Conn: conn})

	docs, err := w.docs.List(w.Context())
	if err != nil {
		w.RemoveSubscription(id)
		return "", nil, err
	}

	slog.Debug("document subscription added", "watchId", id, "connId", connID)
	return id, docs, nil
}

func (w *DocumentWatcher) Unsubscribe(id string) {
	if sub := w.RemoveSubscription(id); sub != nil {
		slog.Debug("document subscription removed", "watchId", id)
	}
}

func (w *DocumentWatcher) eventLoop() {
	for {
		select {
		case <-w.Context().Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("fsnotify error", "error", err)
		}
	}
}

func (w *DocumentWatcher) handleEvent(event fsnotify.Event) {
	if !strings.HasSuffix(filepath.Base(event.Name), ".txt") {
		return
	}
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}
	w.schedule()
}

// schedule coalesces bursts of events into one notification.
func (w *DocumentWatcher) schedule() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounceInterval, func() {
		w.timerMu.Lock()
		w.timer = nil
		w.timerMu.Unlock()
		w.notifyChange()
	})
}

func (w *DocumentWatcher) notifyChange() {
	if w.Context().Err() != nil || !w.HasSubscriptions() {
		return
	}

	n := w.NotifyAll(rpc.NotifyDocumentsChanged, func(sub *Subscription) any {
		return rpc.DocumentsChangedParams{ID: sub.ID}
	})
	slog.Debug("notified document change", "subscribers", n)
}
