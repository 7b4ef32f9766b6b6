package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/companion/internal/client/models"
	"github.com/dmitrijs2005/companion/internal/client/remote"
	"github.com/dmitrijs2005/companion/internal/client/store"
	"github.com/dmitrijs2005/companion/internal/client/streak"
	"github.com/dmitrijs2005/companion/internal/gatewayrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncFromCloud_Offline(t *testing.T) {
	h := newHarness(t, false)

	ran, err := h.o.SyncFromCloud(context.Background())
	require.ErrorIs(t, err, remote.ErrOffline)
	assert.False(t, ran)
}

// A collection saved with three records, shrunk to two locally and then
// pulled again comes back with three for goals, journal and vision items.
func TestSyncFromCloud_LocalRemovalsReappear(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	goals := []models.Goal{{ID: "g1", UpdatedAt: t0}, {ID: "g2", UpdatedAt: t0}, {ID: "g3", UpdatedAt: t0}}
	journal := []models.JournalEntry{{ID: "j1"}, {ID: "j2"}, {ID: "j3"}}
	vision := []models.VisionItem{{ID: "v1"}, {ID: "v2"}, {ID: "v3"}}

	require.NoError(t, h.o.SaveGoals(ctx, goals))
	require.NoError(t, h.o.SaveJournalEntries(ctx, journal))
	require.NoError(t, h.o.SaveVisionItems(ctx, vision))
	h.o.Wait()

	require.NoError(t, h.o.SaveGoals(ctx, goals[:2]))
	require.NoError(t, h.o.SaveJournalEntries(ctx, journal[:2]))
	require.NoError(t, h.o.SaveVisionItems(ctx, vision[:2]))
	h.o.Wait()
	require.Len(t, h.o.LoadGoals(ctx), 2)

	ran, err := h.o.SyncFromCloud(ctx)
	require.NoError(t, err)
	require.True(t, ran)

	assert.Equal(t, []string{"g1", "g2", "g3"}, ids(h.o.LoadGoals(ctx)))
	assert.Equal(t, []string{"j1", "j2", "j3"}, ids(h.o.LoadJournalEntries(ctx)))
	assert.Equal(t, []string{"v1", "v2", "v3"}, ids(h.o.LoadVisionItems(ctx)))
}

func TestSyncFromCloud_GoalsServerWinsOnlyIfNewer(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	require.NoError(t, h.o.SaveGoals(ctx, []models.Goal{
		{ID: "tie", Title: "local", Status: models.GoalActive, UpdatedAt: t0},
		{ID: "stale", Title: "local", Status: models.GoalActive, UpdatedAt: t0},
	}))
	require.NoError(t, h.o.SaveJournalEntries(ctx, []models.JournalEntry{{ID: "j1", Title: "local", UpdatedAt: t0}}))

	h.gw.seed(t, gatewayrpc.EntityGoals,
		models.Goal{ID: "tie", Title: "remote", Status: models.GoalActive, UpdatedAt: t0},
		models.Goal{ID: "stale", Title: "remote", Status: models.GoalCompleted, UpdatedAt: t0.Add(time.Minute)},
	)
	h.gw.seed(t, gatewayrpc.EntityJournalEntries, models.JournalEntry{ID: "j1", Title: "remote", UpdatedAt: t0.Add(time.Hour)})

	h.conn.online.Store(true)
	_, err := h.o.SyncFromCloud(ctx)
	require.NoError(t, err)

	goals := h.o.LoadGoals(ctx)
	require.Len(t, goals, 2)
	assert.Equal(t, "local", goals[0].Title)
	assert.Equal(t, "remote", goals[1].Title)
	assert.Equal(t, models.GoalCompleted, goals[1].Status)

	// journal is additive only: the newer remote copy does not replace local
	assert.Equal(t, "local", h.o.LoadJournalEntries(ctx)[0].Title)
}

func TestSyncFromCloud_ConversationsAndMessages(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	at := func(m int) time.Time { return t0.Add(time.Duration(m) * time.Minute) }

	require.NoError(t, h.o.SaveConversations(ctx, []models.Conversation{{ID: "c1", Title: "old", UpdatedAt: t0}}))
	require.NoError(t, h.o.SaveMessages(ctx, "c1", []models.Message{
		{ID: "m1", ConversationID: "c1", Role: models.RoleUser, Text: "local", CreatedAt: at(1)},
		{ID: "m3", ConversationID: "c1", Role: models.RoleUser, CreatedAt: at(3)},
	}))

	h.gw.seed(t, gatewayrpc.EntityConversations,
		models.Conversation{ID: "c1", Title: "renamed", UpdatedAt: at(10)},
		models.Conversation{ID: "c2", Title: "other", UpdatedAt: at(10)},
	)
	h.gw.seed(t, gatewayrpc.EntityMessages,
		models.Message{ID: "m1", ConversationID: "c1", Text: "remote", CreatedAt: at(1)},
		models.Message{ID: "m2", ConversationID: "c1", Role: models.RoleAssistant, CreatedAt: at(2)},
		models.Message{ID: "m4", ConversationID: "c2", CreatedAt: at(4)},
	)

	h.conn.online.Store(true)
	_, err := h.o.SyncFromCloud(ctx)
	require.NoError(t, err)

	convs := h.o.LoadConversations(ctx)
	require.Equal(t, []string{"c1", "c2"}, ids(convs))
	assert.Equal(t, "renamed", convs[0].Title)

	c1 := h.o.LoadMessages(ctx, "c1")
	require.Equal(t, []string{"m1", "m2", "m3"}, ids(c1))
	assert.Equal(t, "local", c1[0].Text)
	assert.Equal(t, models.RoleAssistant, c1[1].Role)

	assert.Equal(t, []string{"m4"}, ids(h.o.LoadMessages(ctx, "c2")))
}

func TestSyncFromCloud_Profile(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	h.gw.seed(t, gatewayrpc.EntityProfiles, models.Profile{ID: testUserID, DisplayName: "remote", UpdatedAt: t0})
	_, err := h.o.SyncFromCloud(ctx)
	require.NoError(t, err)

	p, ok := h.o.LoadProfile(ctx)
	require.True(t, ok)
	assert.Equal(t, "remote", p.DisplayName)
	assert.Equal(t, models.TierFree, p.Tier)

	// local edit is newer than the remote copy and survives the next pull
	h.conn.online.Store(false)
	h.clock.Advance(time.Hour)
	p.DisplayName = "local"
	require.NoError(t, h.o.SaveProfile(ctx, p))
	h.conn.online.Store(true)

	_, err = h.o.SyncFromCloud(ctx)
	require.NoError(t, err)
	p, _ = h.o.LoadProfile(ctx)
	assert.Equal(t, "local", p.DisplayName)
}

func TestSyncFromCloud_UserStateReplacedOnlyWhenNewer(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	_, err := h.o.IncrementUsage(ctx)
	require.NoError(t, err)
	_, err = h.o.RecordActivity(ctx, streak.SourceChat)
	require.NoError(t, err)

	seedState := func(updatedAt time.Time) {
		raw, err := remote.EncodeUserState(testUserID, models.UserState{
			Usage:                 models.DailyUsage{DayKey: "2026-03-10", MessageCount: 7},
			Streak:                models.Streak{Current: 5, Longest: 9, LastActiveDayKey: "2026-03-10"},
			Vibe:                  &models.Vibe{Mood: "calm", Energy: 3},
			MessagesSinceAnalysis: 4,
			Insights:              []models.InsightEntry{{Text: "likes mornings", CreatedAt: t0}},
			UpdatedAt:             updatedAt,
		})
		require.NoError(t, err)
		h.gw.put(gatewayrpc.EntityUserState, raw)
	}
	h.conn.online.Store(true)

	seedState(t0.Add(-time.Hour))
	_, err = h.o.SyncFromCloud(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, h.o.LoadUsage(ctx).MessageCount)
	assert.Equal(t, 1, h.o.LoadStreak(ctx).Current)

	seedState(t0.Add(time.Hour))
	_, err = h.o.SyncFromCloud(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, h.o.LoadUsage(ctx).MessageCount)
	assert.Equal(t, models.Streak{Current: 5, Longest: 9, LastActiveDayKey: "2026-03-10"}, h.o.LoadStreak(ctx))
	assert.Equal(t, 4, h.o.LoadMessagesSinceAnalysis(ctx))
	vibe, ok := h.o.LoadVibe(ctx)
	require.True(t, ok)
	assert.Equal(t, "calm", vibe.Mood)
	assert.Len(t, h.o.LoadInsights(ctx), 1)
}

func TestSyncFromCloud_UserStateOlderThanLocalStampKept(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()

	// local edits at 15:00; usage and streak only record the day
	h.clock.Advance(3 * time.Hour)
	_, err := h.o.IncrementUsage(ctx)
	require.NoError(t, err)
	_, err = h.o.RecordActivity(ctx, streak.SourceJournal)
	require.NoError(t, err)

	remoteAt := t0
	dayStart := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	require.True(t, remoteAt.After(dayStart))
	require.True(t, remoteAt.Before(h.clock.Now()))

	raw, err := remote.EncodeUserState(testUserID, models.UserState{
		Usage:     models.DailyUsage{DayKey: "2026-03-10", MessageCount: 9},
		Streak:    models.Streak{Current: 4, Longest: 4, LastActiveDayKey: "2026-03-10"},
		UpdatedAt: remoteAt,
	})
	require.NoError(t, err)
	h.gw.put(gatewayrpc.EntityUserState, raw)
	h.conn.online.Store(true)

	_, err = h.o.SyncFromCloud(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, h.o.LoadUsage(ctx).MessageCount)
	assert.Equal(t, 1, h.o.LoadStreak(ctx).Current)
}

func TestSyncFromCloud_StepFailureDoesNotAbortOthers(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	h.gw.fetchErr[gatewayrpc.EntityGoals] = errors.New("goals table locked")
	h.gw.seed(t, gatewayrpc.EntityAffirmations, models.Affirmation{ID: "a1", Text: "I am enough"})
	h.gw.seed(t, gatewayrpc.EntityUserFacts, models.UserFact{ID: "f1", Text: "has a dog"})

	ran, err := h.o.SyncFromCloud(ctx)
	require.True(t, ran)
	require.ErrorContains(t, err, "goals table locked")

	assert.Len(t, h.o.LoadAffirmations(ctx), 1)
	assert.Len(t, h.o.LoadUserFacts(ctx), 1)
	assert.False(t, h.o.IsSyncing())
}

func TestSyncFromCloud_CorruptRecordSkipped(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	h.gw.seed(t, gatewayrpc.EntityJournalEntries,
		map[string]any{"id": "j1", "title": "ok"},
		map[string]any{"title": "no id"},
	)

	_, err := h.o.SyncFromCloud(ctx)
	var decodeErr *remote.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, []string{"j1"}, ids(h.o.LoadJournalEntries(ctx)))
}

func TestSyncFromCloud_SingleFlight(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	h.gw.onFetch = func(entity string) {
		if entity != gatewayrpc.EntityProfiles {
			return
		}
		once.Do(func() {
			close(entered)
			<-release
		})
	}

	type result struct {
		ran bool
		err error
	}
	first := make(chan result, 1)
	go func() {
		ran, err := h.o.SyncFromCloud(ctx)
		first <- result{ran, err}
	}()

	<-entered
	require.True(t, h.o.IsSyncing())
	ran, err := h.o.SyncFromCloud(ctx)
	require.NoError(t, err)
	require.False(t, ran)

	close(release)
	res := <-first
	require.NoError(t, res.err)
	require.True(t, res.ran)

	assert.Equal(t, 1, h.gw.fetchCount(gatewayrpc.EntityProfiles))
	assert.Equal(t, 1, h.gw.fetchCount(gatewayrpc.EntityGoals))
	assert.False(t, h.o.IsSyncing())
}

func TestSyncFromCloud_NoChangesNoWrites(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	_, err := h.o.SyncFromCloud(ctx)
	require.NoError(t, err)

	_, found := store.Load[[]models.Goal](ctx, h.o.store, store.KeyGoals)
	assert.False(t, found)
}
