package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/companion/internal/client/models"
	"github.com/dmitrijs2005/companion/internal/client/store"
	"github.com/dmitrijs2005/companion/internal/gatewayrpc"
	"github.com/dmitrijs2005/companion/internal/textx"
)

var ErrNoConversation = errors.New("message has no conversation id")

func (o *Orchestrator) LoadProfile(ctx context.Context) (models.Profile, bool) {
	return store.Load[models.Profile](ctx, o.store, store.KeyProfile)
}

// SaveProfile persists p as a local edit. UpdatedAt is always set to the
// current time so the edit outranks older remote copies in the next pull;
// every other field is stored as given.
func (o *Orchestrator) SaveProfile(ctx context.Context, p models.Profile) error {
	p.UpdatedAt = o.clock.Now()
	if err := store.Save(ctx, o.store, store.KeyProfile, p); err != nil {
		return err
	}
	o.schedule(ctx, "profile", o.pushProfile)
	return nil
}

// AddBehavioralLoops merges tags into the profile, skipping any tag that
// overlaps one already present (case-insensitive substring either way).
func (o *Orchestrator) AddBehavioralLoops(ctx context.Context, tags []string) (models.Profile, error) {
	now := o.clock.Now()
	changed := false
	p, err := store.Update(ctx, o.store, store.KeyProfile, func(cur models.Profile, _ bool) (models.Profile, error) {
		merged := textx.MergeUnique(cur.BehavioralLoops, tags)
		if len(merged) == len(cur.BehavioralLoops) {
			return cur, store.ErrSkip
		}
		cur.BehavioralLoops = merged
		cur.UpdatedAt = now
		changed = true
		return cur, nil
	})
	if err != nil {
		return models.Profile{}, err
	}
	if changed {
		o.schedule(ctx, "profile", o.pushProfile)
	}
	return p, nil
}

func (o *Orchestrator) LoadConversations(ctx context.Context) []models.Conversation {
	convs, _ := store.Load[[]models.Conversation](ctx, o.store, store.KeyConversations)
	return convs
}

func (o *Orchestrator) SaveConversations(ctx context.Context, convs []models.Conversation) error {
	if err := store.Save(ctx, o.store, store.KeyConversations, convs); err != nil {
		return err
	}
	o.schedule(ctx, "conversations", o.pushConversations)
	return nil
}

// SaveConversation inserts or replaces one conversation by id, stamping
// UpdatedAt (and CreatedAt for a new one).
func (o *Orchestrator) SaveConversation(ctx context.Context, c models.Conversation) (models.Conversation, error) {
	now := o.clock.Now()
	if c.ID == "" {
		c.ID = models.NewID()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	_, err := store.Update(ctx, o.store, store.KeyConversations, func(cur []models.Conversation, _ bool) ([]models.Conversation, error) {
		return upsertByID(cur, c), nil
	})
	if err != nil {
		return models.Conversation{}, err
	}
	o.schedule(ctx, "conversations", o.pushConversations)
	return c, nil
}

func (o *Orchestrator) LoadMessages(ctx context.Context, conversationID string) []models.Message {
	msgs, _ := store.Load[[]models.Message](ctx, o.store, store.MessagesKey(conversationID))
	return msgs
}

func (o *Orchestrator) SaveMessages(ctx context.Context, conversationID string, msgs []models.Message) error {
	if err := store.Save(ctx, o.store, store.MessagesKey(conversationID), msgs); err != nil {
		return err
	}
	o.scheduleMessages(ctx, conversationID)
	return nil
}

// AppendMessage adds m to its conversation's bucket, replacing any message
// with the same id.
func (o *Orchestrator) AppendMessage(ctx context.Context, m models.Message) (models.Message, error) {
	if m.ConversationID == "" {
		return models.Message{}, ErrNoConversation
	}
	if m.ID == "" {
		m.ID = models.NewID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = o.clock.Now()
	}

	_, err := store.Update(ctx, o.store, store.MessagesKey(m.ConversationID), func(cur []models.Message, _ bool) ([]models.Message, error) {
		return upsertByID(cur, m), nil
	})
	if err != nil {
		return models.Message{}, err
	}
	o.scheduleMessages(ctx, m.ConversationID)
	return m, nil
}

func (o *Orchestrator) scheduleMessages(ctx context.Context, conversationID string) {
	o.schedule(ctx, "messages", func(ctx context.Context) error {
		return o.pushMessages(ctx, conversationID)
	})
}

func (o *Orchestrator) LoadJournalEntries(ctx context.Context) []models.JournalEntry {
	entries, _ := store.Load[[]models.JournalEntry](ctx, o.store, store.KeyJournalEntries)
	return entries
}

func (o *Orchestrator) SaveJournalEntries(ctx context.Context, entries []models.JournalEntry) error {
	return saveCollection(ctx, o, store.KeyJournalEntries, gatewayrpc.EntityJournalEntries, entries)
}

func (o *Orchestrator) LoadGoals(ctx context.Context) []models.Goal {
	goals, _ := store.Load[[]models.Goal](ctx, o.store, store.KeyGoals)
	return goals
}

func (o *Orchestrator) SaveGoals(ctx context.Context, goals []models.Goal) error {
	return saveCollection(ctx, o, store.KeyGoals, gatewayrpc.EntityGoals, goals)
}

// SaveGoal inserts or replaces one goal by id and stamps UpdatedAt. Moving a
// goal to completed records CompletedAt if the caller did not.
func (o *Orchestrator) SaveGoal(ctx context.Context, g models.Goal) (models.Goal, error) {
	now := o.clock.Now()
	if g.ID == "" {
		g.ID = models.NewID()
	}
	if g.Status == "" {
		g.Status = models.GoalActive
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = now
	}
	if g.Status == models.GoalCompleted && g.CompletedAt == nil {
		g.CompletedAt = &now
	}
	g.UpdatedAt = now

	_, err := store.Update(ctx, o.store, store.KeyGoals, func(cur []models.Goal, _ bool) ([]models.Goal, error) {
		return upsertByID(cur, g), nil
	})
	if err != nil {
		return models.Goal{}, err
	}
	o.schedule(ctx, gatewayrpc.EntityGoals, func(ctx context.Context) error {
		return pushCollection[models.Goal](ctx, o, store.KeyGoals, gatewayrpc.EntityGoals)
	})
	return g, nil
}

func (o *Orchestrator) LoadAffirmations(ctx context.Context) []models.Affirmation {
	items, _ := store.Load[[]models.Affirmation](ctx, o.store, store.KeyAffirmations)
	return items
}

func (o *Orchestrator) SaveAffirmations(ctx context.Context, items []models.Affirmation) error {
	return saveCollection(ctx, o, store.KeyAffirmations, gatewayrpc.EntityAffirmations, items)
}

func (o *Orchestrator) LoadUserFacts(ctx context.Context) []models.UserFact {
	facts, _ := store.Load[[]models.UserFact](ctx, o.store, store.KeyUserFacts)
	return facts
}

func (o *Orchestrator) SaveUserFacts(ctx context.Context, facts []models.UserFact) error {
	return saveCollection(ctx, o, store.KeyUserFacts, gatewayrpc.EntityUserFacts, facts)
}

func (o *Orchestrator) LoadVisionItems(ctx context.Context) []models.VisionItem {
	items, _ := store.Load[[]models.VisionItem](ctx, o.store, store.KeyVisionItems)
	return items
}

func (o *Orchestrator) SaveVisionItems(ctx context.Context, items []models.VisionItem) error {
	if err := store.Save(ctx, o.store, store.KeyVisionItems, items); err != nil {
		return err
	}
	o.schedule(ctx, gatewayrpc.EntityVisionItems, o.pushVisionItems)
	return nil
}

func saveCollection[T any](ctx context.Context, o *Orchestrator, key, entity string, items []T) error {
	if err := store.Save(ctx, o.store, key, items); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	o.schedule(ctx, entity, func(ctx context.Context) error {
		return pushCollection[T](ctx, o, key, entity)
	})
	return nil
}
