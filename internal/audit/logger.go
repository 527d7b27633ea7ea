package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Entry represents an audit log entry.
type Entry struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Operation string            `json:"operation"`
	Provider  string            `json:"provider"`
	Status    string            `json:"status"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// Subscriber receives audit entries via a channel.
type Subscriber struct {
	C  chan Entry
	id string
}

// Logger is an async audit logger that decouples the signing path from log
// writes.
type Logger struct {
	entries chan Entry
	out     io.Writer
	log     *zap.Logger

	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	// recent is a ring of the newest entries; next is the slot the next
	// entry is written to and count how many slots are filled.
	recent []Entry
	next   int
	count  int

	done chan struct{}
}

// NewLogger creates a logger with the given buffer size and output writer.
// The same size bounds how many recent entries Query can return.
func NewLogger(bufferSize int, out io.Writer, log *zap.Logger) *Logger {
	bufferSize = max(bufferSize, 1)
	l := &Logger{
		entries:     make(chan Entry, bufferSize),
		recent:      make([]Entry, bufferSize),
		out:         out,
		log:         log,
		subscribers: make(map[string]*Subscriber),
		done:        make(chan struct{}),
	}
	go l.processLoop()
	return l
}

// Log sends an entry to the async processing pipeline. Non-blocking if buffer has capacity.
func (l *Logger) Log(operation, provider, status string, opErr error, metadata map[string]string) {
	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Operation: operation,
		Provider:  provider,
		Status:    status,
		Metadata:  metadata,
	}
	if opErr != nil {
		entry.Error = opErr.Error()
	}

	select {
	case l.entries <- entry:
	default:
		l.log.Warn("audit log buffer full, dropping entry", zap.String("operation", operation))
	}
}

// Subscribe creates a new subscriber that receives entries via a buffered channel.
func (l *Logger) Subscribe() *Subscriber {
	l.mu.Lock()
	defer l.mu.Unlock()

	sub := &Subscriber{
		C:  make(chan Entry, 64),
		id: uuid.NewString(),
	}
	l.subscribers[sub.id] = sub
	return sub
}

// Unsubscribe removes a subscriber.
func (l *Logger) Unsubscribe(sub *Subscriber) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.subscribers[sub.id]; !ok {
		return
	}
	delete(l.subscribers, sub.id)
	close(sub.C)
}

// Query returns retained audit entries matching the filter criteria, newest
// first. Only the most recent entries are retained.
func (l *Logger) Query(provider, operation string, start, end time.Time, limit int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var results []Entry
	size := len(l.recent)
	for i := range l.count {
		e := l.recent[(l.next-1-i+size)%size]
		if provider != "" && e.Provider != provider {
			continue
		}
		if operation != "" && e.Operation != operation {
			continue
		}
		if !start.IsZero() && e.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && e.Timestamp.After(end) {
			continue
		}
		results = append(results, e)
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results
}

// Close stops the processing loop and waits for it to finish.
func (l *Logger) Close() {
	close(l.entries)
	<-l.done
}

func (l *Logger) processLoop() {
	defer close(l.done)

	for entry := range l.entries {
		l.mu.Lock()
		l.recent[l.next] = entry
		l.next = (l.next + 1) % len(l.recent)
		l.count = min(l.count+1, len(l.recent))
		l.mu.Unlock()

		if l.out != nil {
			data, err := json.Marshal(entry)
			if err != nil {
				l.log.Error("audit marshal", zap.Error(err))
				continue
			}
			fmt.Fprintf(l.out, "%s\n", data)
		}

		// Fan-out to subscribers (non-blocking)
		l.mu.RLock()
		for _, sub := range l.subscribers {
			select {
			case sub.C <- entry:
			default:
				// subscriber too slow, drop
			}
		}
		l.mu.RUnlock()
	}
}
