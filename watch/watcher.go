package watch

// Watcher defines the common lifecycle interface for all watchers.
// Subscribe is not included as each watcher returns what it monitors.
type Watcher interface {
	Start() error
	Stop()
	CleanupConnection(connID string) []*Subscription
}

var _ Watcher = (*DocumentWatcher)(nil)
