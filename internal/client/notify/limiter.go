// Package notify bounds how many non-critical notifications may be scheduled
// per calendar week.
package notify

import (
	"context"
	"time"

	"github.com/dmitrijs2005/companion/internal/client/store"
	"github.com/dmitrijs2005/companion/internal/logging"
	"github.com/dmitrijs2005/companion/internal/timex"
)

const DefaultBudget = 3

type Limiter struct {
	store     *store.Store
	clock     timex.Clock
	budget    int
	weekStart time.Weekday
	logger    logging.Logger
}

type Option func(*Limiter)

func WithClock(c timex.Clock) Option {
	return func(l *Limiter) { l.clock = c }
}

func WithBudget(n int) Option {
	return func(l *Limiter) { l.budget = n }
}

// WithWeekStart sets the weekday a budget window opens on (default Monday).
func WithWeekStart(d time.Weekday) Option {
	return func(l *Limiter) { l.weekStart = d }
}

func WithLogger(lg logging.Logger) Option {
	return func(l *Limiter) { l.logger = lg }
}

func New(s *store.Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:     s,
		clock:     timex.SystemClock{},
		budget:    DefaultBudget,
		weekStart: time.Monday,
		logger:    logging.Nop{},
	}
	for _, o := range opts {
		o(l)
	}
	l.logger = l.logger.With("module", "notify")
	return l
}

// window loads the counter, resetting it when the stored window start is
// missing or precedes the current week. A reset is persisted immediately.
func (l *Limiter) window(tx *store.Tx) (int, error) {
	now := l.clock.Now()
	weekStart := timex.StartOfWeek(now, l.weekStart)

	count, _ := store.TxLoad[int](tx, store.KeyNotificationCount)
	startKey, _ := store.TxLoad[string](tx, store.KeyNotificationWindowStart)

	start, ok := timex.ParseDayKey(startKey, now.Location())
	if ok && !start.Before(weekStart) {
		return count, nil
	}

	if err := store.TxSave(tx, store.KeyNotificationCount, 0); err != nil {
		return 0, err
	}
	if err := store.TxSave(tx, store.KeyNotificationWindowStart, timex.DayKey(weekStart)); err != nil {
		return 0, err
	}
	return 0, nil
}

// CanSend reports whether the weekly budget has room left.
func (l *Limiter) CanSend(ctx context.Context) (bool, error) {
	n, err := l.Remaining(ctx)
	return n > 0, err
}

func (l *Limiter) Remaining(ctx context.Context) (int, error) {
	var remaining int
	err := l.store.Locked(ctx, func(tx *store.Tx) error {
		count, err := l.window(tx)
		if err != nil {
			return err
		}
		remaining = max(l.budget-count, 0)
		return nil
	})
	return remaining, err
}

// Allow consumes one unit of budget if any is left and reports whether the
// notification may be scheduled.
func (l *Limiter) Allow(ctx context.Context) (bool, error) {
	allowed := false
	err := l.store.Locked(ctx, func(tx *store.Tx) error {
		count, err := l.window(tx)
		if err != nil {
			return err
		}
		if count >= l.budget {
			return nil
		}
		allowed = true
		return store.TxSave(tx, store.KeyNotificationCount, count+1)
	})
	if err != nil {
		return false, err
	}
	if !allowed {
		l.logger.Debug(ctx, "notification budget exhausted", "budget", l.budget)
	}
	return allowed, nil
}
