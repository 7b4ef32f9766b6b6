// Package insights stages short text insights for one-at-a-time delivery.
//
// The queue is FIFO, capped at Capacity entries with the oldest dropped on
// overflow. Push drops any text that overlaps a queued one (case-insensitive
// substring either way). Pop discards entries older than MaxAge from the head
// before returning the next one.
package insights

import (
	"context"
	"strings"
	"time"

	"github.com/dmitrijs2005/companion/internal/client/models"
	"github.com/dmitrijs2005/companion/internal/client/store"
	"github.com/dmitrijs2005/companion/internal/logging"
	"github.com/dmitrijs2005/companion/internal/textx"
	"github.com/dmitrijs2005/companion/internal/timex"
)

const (
	Capacity = 50
	MaxAge   = 14 * 24 * time.Hour
)

type Queue struct {
	store  *store.Store
	clock  timex.Clock
	logger logging.Logger
}

type Option func(*Queue)

func WithClock(c timex.Clock) Option {
	return func(q *Queue) { q.clock = c }
}

func WithLogger(l logging.Logger) Option {
	return func(q *Queue) { q.logger = l }
}

func New(s *store.Store, opts ...Option) *Queue {
	q := &Queue{store: s, clock: timex.SystemClock{}, logger: logging.Nop{}}
	for _, o := range opts {
		o(q)
	}
	q.logger = q.logger.With("module", "insights")
	return q
}

// Push enqueues text and reports whether it was accepted. Blank and
// overlapping texts are rejected without error.
func (q *Queue) Push(ctx context.Context, text string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, nil
	}

	added := false
	_, err := store.Update(ctx, q.store, store.KeyInsightQueue, func(cur []models.InsightEntry, _ bool) ([]models.InsightEntry, error) {
		for _, e := range cur {
			if textx.Overlaps(e.Text, text) {
				return cur, store.ErrSkip
			}
		}
		next := append(cur, models.InsightEntry{Text: text, CreatedAt: q.clock.Now()})
		if len(next) > Capacity {
			next = next[len(next)-Capacity:]
		}
		added = true
		return next, nil
	})
	if err != nil {
		return false, err
	}
	if !added {
		q.logger.Debug(ctx, "duplicate insight dropped", "text", text)
	}
	return added, nil
}

// Pop removes and returns the oldest unexpired entry. Expired entries at the
// head are discarded and the trimmed queue is saved even when nothing is
// left to return.
func (q *Queue) Pop(ctx context.Context) (models.InsightEntry, bool, error) {
	now := q.clock.Now()
	var popped models.InsightEntry
	found := false

	_, err := store.Update(ctx, q.store, store.KeyInsightQueue, func(cur []models.InsightEntry, _ bool) ([]models.InsightEntry, error) {
		i := 0
		for i < len(cur) && now.Sub(cur[i].CreatedAt) > MaxAge {
			i++
		}
		if i == len(cur) {
			if i == 0 {
				return cur, store.ErrSkip
			}
			return []models.InsightEntry{}, nil
		}
		popped, found = cur[i], true
		return cur[i+1:], nil
	})
	if err != nil {
		return models.InsightEntry{}, false, err
	}
	return popped, found, nil
}

func (q *Queue) All(ctx context.Context) []models.InsightEntry {
	entries, _ := store.Load[[]models.InsightEntry](ctx, q.store, store.KeyInsightQueue)
	return entries
}

func (q *Queue) Len(ctx context.Context) int {
	return len(q.All(ctx))
}
