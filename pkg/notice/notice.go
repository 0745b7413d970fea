// Package notice collects short user-facing messages produced while a
// request is handled. They are returned alongside the response and carry
// no control-flow meaning.
package notice

import "sync"

type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Error   Level = "error"
)

type Notice struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// List is safe for concurrent use. A nil *List discards everything.
type List struct {
	mu    sync.Mutex
	items []Notice
}

func New() *List { return &List{} }

func (l *List) add(level Level, msg string) {
	if l == nil {
		return
	}
	l.mu.Lock()
	l.items = append(l.items, Notice{Level: level, Message: msg})
	l.mu.Unlock()
}

func (l *List) Info(msg string)    { l.add(Info, msg) }
func (l *List) Success(msg string) { l.add(Success, msg) }
func (l *List) Error(msg string)   { l.add(Error, msg) }

// Items returns a copy of the collected notices in insertion order.
func (l *List) Items() []Notice {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Notice(nil), l.items...)
}
