// Package streak tracks consecutive active days.
//
// A day counts once. A gap of up to two calendar days (one skipped day) keeps
// the streak alive. Past that, chat activity restarts the streak at 1 while
// journal activity cannot: journaling only extends a live streak.
package streak

import (
	"context"
	"math"
	"time"

	"github.com/dmitrijs2005/companion/internal/client/models"
	"github.com/dmitrijs2005/companion/internal/client/store"
	"github.com/dmitrijs2005/companion/internal/logging"
	"github.com/dmitrijs2005/companion/internal/timex"
)

type Source string

const (
	SourceChat    Source = "chat"
	SourceJournal Source = "journal"
)

// MaxGap is the largest day gap that still extends a streak.
const MaxGap = 2

func ParseSource(s string) (Source, bool) {
	switch Source(s) {
	case SourceChat, SourceJournal:
		return Source(s), true
	}
	return "", false
}

// Apply returns the streak after activity from src at now and whether
// anything changed.
func Apply(s models.Streak, src Source, now time.Time) (models.Streak, bool) {
	today := timex.DayKey(now)
	if s.LastActiveDayKey == today {
		return s, false
	}
	if src == SourceJournal && s.Current == 0 {
		return s, false
	}

	gap, ok := timex.DaysBetween(s.LastActiveDayKey, now)
	if !ok {
		gap = math.MaxInt
	}

	switch {
	case gap < 0:
		// last activity is in the future; the clock moved backwards
		return s, false
	case gap <= MaxGap:
		s.Current++
	case src == SourceChat:
		s.Current = 1
	default:
		return s, false
	}

	s.Longest = max(s.Longest, s.Current)
	s.LastActiveDayKey = today
	return s, true
}

type Tracker struct {
	store  *store.Store
	clock  timex.Clock
	logger logging.Logger
}

type Option func(*Tracker)

func WithClock(c timex.Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

func WithLogger(l logging.Logger) Option {
	return func(t *Tracker) { t.logger = l }
}

func New(s *store.Store, opts ...Option) *Tracker {
	t := &Tracker{store: s, clock: timex.SystemClock{}, logger: logging.Nop{}}
	for _, o := range opts {
		o(t)
	}
	t.logger = t.logger.With("module", "streak")
	return t
}

func (t *Tracker) Current(ctx context.Context) models.Streak {
	s, _ := store.Load[models.Streak](ctx, t.store, store.KeyStreak)
	return s
}

// RecordActivity applies one activity and persists the result when it
// changed the streak.
func (t *Tracker) RecordActivity(ctx context.Context, src Source) (models.Streak, bool, error) {
	now := t.clock.Now()
	changed := false
	s, err := store.Update(ctx, t.store, store.KeyStreak, func(cur models.Streak, _ bool) (models.Streak, error) {
		next, ok := Apply(cur, src, now)
		if !ok {
			return cur, store.ErrSkip
		}
		changed = true
		return next, nil
	})
	if err != nil {
		return models.Streak{}, false, err
	}
	if changed {
		t.logger.Debug(ctx, "streak updated", "source", src, "current", s.Current, "longest", s.Longest)
	}
	return s, changed, nil
}
