package controller

import (
	"context"
	"sync"
)

// Level is the severity of a notification.
type Level string

const (
	LevelError Level = "error"
	LevelInfo  Level = "info"
)

// Notification is a non-fatal message for whoever is looking at the
// screen: a toast in the browser, a line on stderr in the terminal.
type Notification struct {
	Level   Level
	Title   string
	Message string
}

// Notifier receives notifications. Implementations must not block.
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Discard drops every notification.
var Discard Notifier = NotifierFunc(func(Notification) {})

// Queue collects notifications until they are drained. The browser
// session uses one per visitor so the next render can show them.
type Queue struct {
	mu    sync.Mutex
	items []Notification
}

func (q *Queue) Notify(n Notification) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, n)
}

// Drain returns the queued notifications and empties the queue.
func (q *Queue) Drain() []Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Len reports how many notifications are waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Confirmer asks whoever is driving the controller to approve deleting
// user id. It stands in for a blocking "are you sure?" prompt so that
// deletion can be driven by a browser form, a terminal prompt or a test.
type Confirmer func(ctx context.Context, id int64) (bool, error)

// Always approves every deletion, e.g. for a --force flag.
func Always(context.Context, int64) (bool, error) { return true, nil }

// Never declines every deletion.
func Never(context.Context, int64) (bool, error) { return false, nil }
