// Package notify delivers the transient success/error notifications raised by
// mutations.
package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is one transient message shown to the operator.
type Notification struct {
	Level   Level     `json:"level"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// Notifier receives mutation outcomes.
type Notifier interface {
	Success(message string)
	Error(message string)
}

type logNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier writes notifications to the log.
func NewLogNotifier(logger *zap.Logger) Notifier {
	return &logNotifier{logger: logger}
}

func (n *logNotifier) Success(message string) {
	n.logger.Info(message, zap.String("notification", string(LevelSuccess)))
}

func (n *logNotifier) Error(message string) {
	n.logger.Warn(message, zap.String("notification", string(LevelError)))
}

// Recorder keeps notifications in memory until drained.
type Recorder struct {
	mu    sync.Mutex
	max   int
	items []Notification
	now   func() time.Time
}

// NewRecorder keeps at most max notifications, dropping the oldest.
// max <= 0 keeps everything.
func NewRecorder(max int) *Recorder {
	return &Recorder{max: max, now: time.Now}
}

func (r *Recorder) Success(message string) { r.add(LevelSuccess, message) }

func (r *Recorder) Error(message string) { r.add(LevelError, message) }

func (r *Recorder) add(level Level, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, Notification{Level: level, Message: message, Time: r.now()})
	if r.max > 0 && len(r.items) > r.max {
		r.items = r.items[len(r.items)-r.max:]
	}
}

// Drain returns pending notifications oldest first and empties the recorder.
func (r *Recorder) Drain() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := r.items
	r.items = nil
	return out
}

// Last returns the most recent notification without draining.
func (r *Recorder) Last() (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.items) == 0 {
		return Notification{}, false
	}
	return r.items[len(r.items)-1], true
}

// Multi fans out to every notifier.
type Multi []Notifier

func (m Multi) Success(message string) {
	for _, n := range m {
		n.Success(message)
	}
}

func (m Multi) Error(message string) {
	for _, n := range m {
		n.Error(message)
	}
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Success(string) {}

func (Nop) Error(string) {}
