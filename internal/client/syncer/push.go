package syncer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/companion/internal/client/models"
	"github.com/dmitrijs2005/companion/internal/client/remote"
	"github.com/dmitrijs2005/companion/internal/client/store"
	"github.com/dmitrijs2005/companion/internal/gatewayrpc"
)

// defaultStateID keys the user-state record when no user id is configured.
// The backend scopes records by the caller anyway.
const defaultStateID = "current"

// Every push re-reads the collection from the store at send time, so a late
// push never resurrects an older snapshot and replays are harmless.

func (o *Orchestrator) pushProfile(ctx context.Context) error {
	p, ok := o.LoadProfile(ctx)
	if !ok {
		return nil
	}
	if p.ID == "" {
		p.ID = o.userID
	}
	if p.ID == "" {
		o.logger.Debug(ctx, "profile has no id yet, not pushed")
		return nil
	}
	raw, err := remote.Encode(p)
	if err != nil {
		return err
	}
	return o.gateway.Upsert(ctx, gatewayrpc.EntityProfiles, []json.RawMessage{raw})
}

func (o *Orchestrator) stateID() string {
	if o.userID != "" {
		return o.userID
	}
	return defaultStateID
}

func (o *Orchestrator) pushUserState(ctx context.Context) error {
	st, err := o.userState(ctx)
	if err != nil {
		return err
	}
	raw, err := remote.EncodeUserState(o.stateID(), st)
	if err != nil {
		return err
	}
	return o.gateway.Upsert(ctx, gatewayrpc.EntityUserState, []json.RawMessage{raw})
}

func (o *Orchestrator) pushConversations(ctx context.Context) error {
	return pushCollection[models.Conversation](ctx, o, store.KeyConversations, gatewayrpc.EntityConversations)
}

func (o *Orchestrator) pushMessages(ctx context.Context, conversationID string) error {
	msgs := o.LoadMessages(ctx, conversationID)
	for i := range msgs {
		if msgs[i].ConversationID == "" {
			msgs[i].ConversationID = conversationID
		}
	}
	raws, err := remote.EncodeAll(msgs)
	if err != nil {
		return err
	}
	return o.gateway.Upsert(ctx, gatewayrpc.EntityMessages, raws)
}

func pushCollection[T any](ctx context.Context, o *Orchestrator, key, entity string) error {
	items, _ := store.Load[[]T](ctx, o.store, key)
	raws, err := remote.EncodeAll(items)
	if err != nil {
		return err
	}
	return o.gateway.Upsert(ctx, entity, raws)
}

// conversationIDs lists conversations known locally, from the conversation
// list and from message buckets on disk.
func (o *Orchestrator) conversationIDs(ctx context.Context) []string {
	out := ids(o.LoadConversations(ctx))
	seen := make(map[string]struct{}, len(out))
	for _, id := range out {
		seen[id] = struct{}{}
	}
	onDisk, err := o.store.ConversationIDs(ctx)
	if err != nil {
		o.logger.Warn(ctx, "failed to list message buckets", "error", err)
	}
	for _, id := range onDisk {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// PushAllToCloud upserts every local collection. It clears the pending flag
// up front and sets it again if any step fails. Steps are independent; all
// failures are joined into the returned error.
func (o *Orchestrator) PushAllToCloud(ctx context.Context) error {
	if !o.conn.Online() {
		o.pending.Store(true)
		return remote.ErrOffline
	}
	o.pending.Store(false)

	var errs []error
	step := func(name string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("push %s: %w", name, err))
		}
	}

	step("profile", o.pushProfile(ctx))
	step("user state", o.pushUserState(ctx))
	step("conversations", o.pushConversations(ctx))
	for _, id := range o.conversationIDs(ctx) {
		step("messages of "+id, o.pushMessages(ctx, id))
	}
	step("journal", pushCollection[models.JournalEntry](ctx, o, store.KeyJournalEntries, gatewayrpc.EntityJournalEntries))
	step("goals", pushCollection[models.Goal](ctx, o, store.KeyGoals, gatewayrpc.EntityGoals))
	step("affirmations", pushCollection[models.Affirmation](ctx, o, store.KeyAffirmations, gatewayrpc.EntityAffirmations))
	step("vision", o.pushVisionItems(ctx))
	step("user facts", pushCollection[models.UserFact](ctx, o, store.KeyUserFacts, gatewayrpc.EntityUserFacts))

	if len(errs) > 0 {
		o.pending.Store(true)
		return errors.Join(errs...)
	}
	o.logger.Info(ctx, "pushed all collections")
	return nil
}
