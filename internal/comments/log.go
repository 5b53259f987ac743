// Package comments implements the per-market append-only activity log.
package comments

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/drolelabs/drole/internal/domain"
)

// MarketInfo is the subset of market data the log needs to seed demo
// comments. Declared locally so the package does not depend on the store.
type MarketInfo struct {
	Question string
	Category domain.Category
}

// Log holds comment threads keyed by market ID. Safe for concurrent use.
type Log struct {
	mu       sync.Mutex
	threads  map[string][]domain.Comment
	now      func() time.Time
	onChange func()
}

// NewLog creates a Log with the given initial threads (nil for empty).
// onChange runs after every mutation; pass nil to disable.
func NewLog(initial map[string][]domain.Comment, onChange func()) *Log {
	if initial == nil {
		initial = make(map[string][]domain.Comment)
	}
	return &Log{
		threads:  initial,
		now:      func() time.Time { return time.Now().UTC() },
		onChange: onChange,
	}
}

// List returns the thread for a market, seeding two demo comments on first
// read so every market detail view starts with activity.
func (l *Log) List(marketID string, info MarketInfo) []domain.Comment {
	l.mu.Lock()

	thread, ok := l.threads[marketID]
	if !ok {
		thread = seedThread(marketID, info, l.now())
		l.threads[marketID] = thread
		l.mu.Unlock()
		if l.onChange != nil {
			l.onChange()
		}
		return append([]domain.Comment(nil), thread...)
	}

	l.mu.Unlock()
	return append([]domain.Comment(nil), thread...)
}

// Add appends a comment to a market's thread and returns it.
func (l *Log) Add(marketID, author, text string) domain.Comment {
	c := domain.Comment{
		ID:        uuid.New().String(),
		Author:    author,
		Text:      text,
		Timestamp: l.now().UTC(),
	}

	l.mu.Lock()
	l.threads[marketID] = append(l.threads[marketID], c)
	l.mu.Unlock()

	if l.onChange != nil {
		l.onChange()
	}
	return c
}

// Export returns a deep copy of all threads for snapshotting.
func (l *Log) Export() map[string][]domain.Comment {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[string][]domain.Comment, len(l.threads))
	for id, thread := range l.threads {
		out[id] = append([]domain.Comment(nil), thread...)
	}
	return out
}

// Restore replaces all threads.
func (l *Log) Restore(threads map[string][]domain.Comment) {
	if threads == nil {
		threads = make(map[string][]domain.Comment)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.threads = threads
}

func seedThread(marketID string, info MarketInfo, now time.Time) []domain.Comment {
	category := string(info.Category)
	if category == "" {
		category = "this market"
	}

	second := "Interesting odds... I might take a position."
	if strings.Contains(info.Question, "Bitcoin") {
		second = "To the moon!"
	}

	return []domain.Comment{
		{
			ID:        fmt.Sprintf("c1-%s", marketID),
			Author:    "MarketMaker",
			Text:      fmt.Sprintf("Liquidity is looking good for %s.", category),
			Timestamp: now.Add(-30 * time.Minute),
		},
		{
			ID:        fmt.Sprintf("c2-%s", marketID),
			Author:    "Anon",
			Text:      second,
			Timestamp: now.Add(-15 * time.Minute),
		},
	}
}
