// Package journal records the outcome of every dispatch.
package journal

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/easysms/pkg/messenger"
	"github.com/kart-io/easysms/pkg/phone"
)

// Attempt is the outcome of one gateway in a dispatch
type Attempt struct {
	Gateway string         `json:"gateway"`
	Status  string         `json:"status"`
	Result  map[string]any `json:"result,omitempty"`
	Error   string         `json:"error,omitempty"`
	Code    string         `json:"code,omitempty"`
}

// Entry is one journaled dispatch
type Entry struct {
	DispatchID string    `json:"dispatch_id"`
	To         string    `json:"to"`
	Succeeded  bool      `json:"succeeded"`
	Attempts   []Attempt `json:"attempts"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewEntry builds an Entry from dispatch results
func NewEntry(to *phone.Number, results *messenger.Results) *Entry {
	entry := &Entry{
		DispatchID: results.DispatchID(),
		To:         to.UniversalNumber(),
		Succeeded:  results.AnySucceeded(),
		Attempts:   make([]Attempt, 0, results.Len()),
		CreatedAt:  time.Now().UTC(),
	}
	for _, name := range results.Names() {
		outcome, _ := results.Get(name)
		attempt := Attempt{Gateway: name, Status: string(outcome.Status())}
		if gwErr := outcome.Err(); gwErr != nil {
			attempt.Error = gwErr.Error()
			if gwErr.Code != nil {
				attempt.Code = fmtCode(gwErr.Code)
			}
		} else {
			attempt.Result = outcome.Result()
		}
		entry.Attempts = append(entry.Attempts, attempt)
	}
	return entry
}

// Recorder persists journal entries
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
	Close() error
}

// MemoryRecorder keeps the most recent entries in memory
type MemoryRecorder struct {
	mu      sync.RWMutex
	entries []*Entry
	limit   int
}

// NewMemoryRecorder keeps at most limit entries; limit <= 0 keeps all
func NewMemoryRecorder(limit int) *MemoryRecorder {
	return &MemoryRecorder{limit: limit}
}

// Record appends entry, evicting the oldest beyond the limit
func (m *MemoryRecorder) Record(_ context.Context, entry *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = append(m.entries, entry)
	if m.limit > 0 && len(m.entries) > m.limit {
		m.entries = m.entries[len(m.entries)-m.limit:]
	}
	return nil
}

// Entries returns the recorded entries, oldest first
func (m *MemoryRecorder) Entries() []*Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*Entry(nil), m.entries...)
}

// Close is a no-op
func (m *MemoryRecorder) Close() error { return nil }

type discard struct{}

func (discard) Record(context.Context, *Entry) error { return nil }
func (discard) Close() error { return nil }

// Discard drops every entry
var Discard Recorder = discard{}

func fmtCode(code any) string {
	if s, ok := code.(string); ok {
		return s
	}
	return fmt.Sprint(code)
}
