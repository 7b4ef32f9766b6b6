package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/companion/internal/client/insights"
	"github.com/dmitrijs2005/companion/internal/client/models"
	"github.com/dmitrijs2005/companion/internal/client/store"
	"github.com/dmitrijs2005/companion/internal/client/streak"
	"github.com/dmitrijs2005/companion/internal/timex"
)

// The user-state aggregate (usage, streak, vibe, summary, analysis counter,
// insight queue) is pushed as one remote record. Every local change to it
// stamps KeyUserStateUpdatedAt, which becomes the record's UpdatedAt.

func (o *Orchestrator) touchUserState(tx *store.Tx, now time.Time) error {
	return store.TxSave(tx, store.KeyUserStateUpdatedAt, now)
}

// updateState runs fn under the store lock, stamps the aggregate and
// schedules its push. fn returning store.ErrSkip means nothing changed.
func (o *Orchestrator) updateState(ctx context.Context, fn func(tx *store.Tx, now time.Time) error) error {
	now := o.clock.Now()
	changed := true
	err := o.store.Locked(ctx, func(tx *store.Tx) error {
		if err := fn(tx, now); err != nil {
			return err
		}
		return o.touchUserState(tx, now)
	})
	if errors.Is(err, store.ErrSkip) {
		changed, err = false, nil
	}
	if err != nil {
		return err
	}
	if changed {
		o.schedule(ctx, "user_state", o.pushUserState)
	}
	return nil
}

// rollUsage returns u, or a fresh zero record if u belongs to another day.
func rollUsage(u models.DailyUsage, now time.Time) models.DailyUsage {
	today := timex.DayKey(now)
	if u.DayKey != today {
		return models.DailyUsage{DayKey: today}
	}
	return u
}

// LoadUsage returns today's usage; a record from an earlier day reads as a
// fresh zero count.
func (o *Orchestrator) LoadUsage(ctx context.Context) models.DailyUsage {
	u, _ := store.Load[models.DailyUsage](ctx, o.store, store.KeyDailyUsage)
	return rollUsage(u, o.clock.Now())
}

func (o *Orchestrator) SaveUsage(ctx context.Context, u models.DailyUsage) error {
	return o.updateState(ctx, func(tx *store.Tx, _ time.Time) error {
		return store.TxSave(tx, store.KeyDailyUsage, u)
	})
}

// IncrementUsage counts one message against today.
func (o *Orchestrator) IncrementUsage(ctx context.Context) (models.DailyUsage, error) {
	var u models.DailyUsage
	err := o.updateState(ctx, func(tx *store.Tx, now time.Time) error {
		cur, _ := store.TxLoad[models.DailyUsage](tx, store.KeyDailyUsage)
		u = rollUsage(cur, now)
		u.MessageCount++
		return store.TxSave(tx, store.KeyDailyUsage, u)
	})
	return u, err
}

func (o *Orchestrator) LoadMessagesSinceAnalysis(ctx context.Context) int {
	n, _ := store.Load[int](ctx, o.store, store.KeyMessagesSinceAnalysis)
	return n
}

func (o *Orchestrator) IncrementMessagesSinceAnalysis(ctx context.Context) (int, error) {
	var n int
	err := o.updateState(ctx, func(tx *store.Tx, _ time.Time) error {
		n, _ = store.TxLoad[int](tx, store.KeyMessagesSinceAnalysis)
		n++
		return store.TxSave(tx, store.KeyMessagesSinceAnalysis, n)
	})
	return n, err
}

func (o *Orchestrator) ResetMessagesSinceAnalysis(ctx context.Context) error {
	return o.updateState(ctx, func(tx *store.Tx, _ time.Time) error {
		return store.TxSave(tx, store.KeyMessagesSinceAnalysis, 0)
	})
}

func (o *Orchestrator) LoadVibe(ctx context.Context) (models.Vibe, bool) {
	return store.Load[models.Vibe](ctx, o.store, store.KeyVibe)
}

func (o *Orchestrator) SaveVibe(ctx context.Context, v models.Vibe) error {
	return o.updateState(ctx, func(tx *store.Tx, now time.Time) error {
		if v.UpdatedAt.IsZero() {
			v.UpdatedAt = now
		}
		return store.TxSave(tx, store.KeyVibe, v)
	})
}

func (o *Orchestrator) LoadSummary(ctx context.Context) (models.Summary, bool) {
	return store.Load[models.Summary](ctx, o.store, store.KeySummary)
}

func (o *Orchestrator) SaveSummary(ctx context.Context, s models.Summary) error {
	return o.updateState(ctx, func(tx *store.Tx, now time.Time) error {
		if s.CreatedAt.IsZero() {
			s.CreatedAt = now
		}
		return store.TxSave(tx, store.KeySummary, s)
	})
}

func (o *Orchestrator) LoadStreak(ctx context.Context) models.Streak {
	return o.streak.Current(ctx)
}

// RecordActivity feeds the streak tracker and pushes the aggregate when the
// streak moved.
func (o *Orchestrator) RecordActivity(ctx context.Context, src streak.Source) (models.Streak, error) {
	s, changed, err := o.streak.RecordActivity(ctx, src)
	if err != nil || !changed {
		return s, err
	}
	if err := o.stampState(ctx); err != nil {
		return s, err
	}
	return s, nil
}

func (o *Orchestrator) LoadInsights(ctx context.Context) []models.InsightEntry {
	return o.insights.All(ctx)
}

// PushInsight queues text for later delivery; see insights.Queue.Push.
func (o *Orchestrator) PushInsight(ctx context.Context, text string) (bool, error) {
	added, err := o.insights.Push(ctx, text)
	if err != nil || !added {
		return added, err
	}
	return true, o.stampState(ctx)
}

// PopInsight takes the next unexpired insight; see insights.Queue.Pop.
func (o *Orchestrator) PopInsight(ctx context.Context) (models.InsightEntry, bool, error) {
	before := o.insights.Len(ctx)
	e, ok, err := o.insights.Pop(ctx)
	if err != nil {
		return e, ok, err
	}
	if ok || o.insights.Len(ctx) != before {
		if err := o.stampState(ctx); err != nil {
			return e, ok, err
		}
	}
	return e, ok, nil
}

func (o *Orchestrator) stampState(ctx context.Context) error {
	return o.updateState(ctx, func(*store.Tx, time.Time) error { return nil })
}

// localStateTouched is the newest of the usage day, the streak's last active
// day and the last local aggregate change.
func localStateTouched(tx *store.Tx, loc *time.Location) time.Time {
	var latest time.Time
	if u, ok := store.TxLoad[models.DailyUsage](tx, store.KeyDailyUsage); ok {
		if t, ok := timex.ParseDayKey(u.DayKey, loc); ok && t.After(latest) {
			latest = t
		}
	}
	if s, ok := store.TxLoad[models.Streak](tx, store.KeyStreak); ok {
		if t, ok := timex.ParseDayKey(s.LastActiveDayKey, loc); ok && t.After(latest) {
			latest = t
		}
	}
	if t, ok := store.TxLoad[time.Time](tx, store.KeyUserStateUpdatedAt); ok && t.After(latest) {
		latest = t
	}
	return latest
}

// userState snapshots the aggregate as it will be pushed.
func (o *Orchestrator) userState(ctx context.Context) (models.UserState, error) {
	var st models.UserState
	err := o.store.Locked(ctx, func(tx *store.Tx) error {
		now := o.clock.Now()
		u, _ := store.TxLoad[models.DailyUsage](tx, store.KeyDailyUsage)
		st.Usage = rollUsage(u, now)
		st.Streak, _ = store.TxLoad[models.Streak](tx, store.KeyStreak)
		if v, ok := store.TxLoad[models.Vibe](tx, store.KeyVibe); ok {
			st.Vibe = &v
		}
		if s, ok := store.TxLoad[models.Summary](tx, store.KeySummary); ok {
			st.Summary = &s
		}
		st.MessagesSinceAnalysis, _ = store.TxLoad[int](tx, store.KeyMessagesSinceAnalysis)
		st.Insights, _ = store.TxLoad[[]models.InsightEntry](tx, store.KeyInsightQueue)
		st.UpdatedAt, _ = store.TxLoad[time.Time](tx, store.KeyUserStateUpdatedAt)
		return nil
	})
	return st, err
}

// replaceUserState overwrites every local aggregate record with st.
func replaceUserState(tx *store.Tx, st models.UserState) error {
	if err := store.TxSave(tx, store.KeyDailyUsage, st.Usage); err != nil {
		return err
	}
	if err := store.TxSave(tx, store.KeyStreak, st.Streak); err != nil {
		return err
	}
	if st.Vibe != nil {
		if err := store.TxSave(tx, store.KeyVibe, *st.Vibe); err != nil {
			return err
		}
	} else if err := tx.Delete(store.KeyVibe); err != nil {
		return err
	}
	if st.Summary != nil {
		if err := store.TxSave(tx, store.KeySummary, *st.Summary); err != nil {
			return err
		}
	} else if err := tx.Delete(store.KeySummary); err != nil {
		return err
	}
	if err := store.TxSave(tx, store.KeyMessagesSinceAnalysis, st.MessagesSinceAnalysis); err != nil {
		return err
	}
	queue := st.Insights
	if len(queue) > insights.Capacity {
		queue = queue[len(queue)-insights.Capacity:]
	}
	if err := store.TxSave(tx, store.KeyInsightQueue, queue); err != nil {
		return err
	}
	return store.TxSave(tx, store.KeyUserStateUpdatedAt, st.UpdatedAt)
}
