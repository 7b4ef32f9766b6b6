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

// SyncFromCloud pulls every collection and merges it into the store. It
// returns false without doing anything when another pull is running. Steps
// are independent: a failing step is logged and joined into the error while
// the rest still run. Network calls are never made under the store lock.
func (o *Orchestrator) SyncFromCloud(ctx context.Context) (bool, error) {
	if !o.conn.Online() {
		return false, remote.ErrOffline
	}
	if !o.syncing.CompareAndSwap(false, true) {
		o.logger.Debug(ctx, "pull already running, skipped")
		return false, nil
	}
	defer o.syncing.Store(false)

	var errs []error
	step := func(name string, err error) {
		if err != nil {
			o.logger.Warn(ctx, "pull step failed", "step", name, "error", err)
			errs = append(errs, fmt.Errorf("pull %s: %w", name, err))
		}
	}

	step("profile", o.pullProfile(ctx))
	step("conversations", o.pullConversations(ctx))
	step("user state", o.pullUserState(ctx))
	step("journal", pullAdditive(ctx, o, store.KeyJournalEntries, gatewayrpc.EntityJournalEntries, remote.DecodeJournalEntry))
	step("affirmations", pullAdditive(ctx, o, store.KeyAffirmations, gatewayrpc.EntityAffirmations, remote.DecodeAffirmation))
	step("user facts", pullAdditive(ctx, o, store.KeyUserFacts, gatewayrpc.EntityUserFacts, remote.DecodeUserFact))
	step("goals", pullNewer(ctx, o, store.KeyGoals, gatewayrpc.EntityGoals, remote.DecodeGoal))
	step("vision", o.pullVisionItems(ctx))

	if len(errs) > 0 {
		return true, errors.Join(errs...)
	}
	o.logger.Info(ctx, "pulled all collections")
	return true, nil
}

// fetchOne returns the first record matching id, or found=false.
func fetchOne[T any](ctx context.Context, o *Orchestrator, entity, id string, decode func(json.RawMessage) (T, error)) (T, bool, error) {
	var zero T
	recs, err := o.gateway.Fetch(ctx, entity, remote.Filter{ID: id})
	if err != nil {
		return zero, false, err
	}
	if len(recs) == 0 {
		return zero, false, nil
	}
	v, err := decode(recs[0])
	if err != nil {
		return zero, false, err
	}
	return v, true, nil
}

func (o *Orchestrator) pullProfile(ctx context.Context) error {
	p, found, err := fetchOne(ctx, o, gatewayrpc.EntityProfiles, o.userID, remote.DecodeProfile)
	if err != nil || !found {
		return err
	}
	_, err = store.Update(ctx, o.store, store.KeyProfile, func(cur models.Profile, ok bool) (models.Profile, error) {
		if ok && !p.UpdatedAt.After(cur.UpdatedAt) {
			return cur, store.ErrSkip
		}
		return p, nil
	})
	return err
}

// pullConversations merges the conversation list server-wins-if-newer, then
// unions the messages of every remote conversation.
func (o *Orchestrator) pullConversations(ctx context.Context) error {
	recs, err := o.gateway.Fetch(ctx, gatewayrpc.EntityConversations, remote.Filter{})
	if err != nil {
		return err
	}
	incoming, decodeErr := remote.DecodeAll(recs, remote.DecodeConversation)
	errs := []error{decodeErr}

	_, err = store.Update(ctx, o.store, store.KeyConversations, func(cur []models.Conversation, _ bool) ([]models.Conversation, error) {
		merged, changed := mergeNewer(cur, incoming)
		if !changed {
			return cur, store.ErrSkip
		}
		return merged, nil
	})
	errs = append(errs, err)

	for _, c := range incoming {
		if err := o.pullMessages(ctx, c.ID); err != nil {
			errs = append(errs, fmt.Errorf("messages of %s: %w", c.ID, err))
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) pullMessages(ctx context.Context, conversationID string) error {
	recs, err := o.gateway.Fetch(ctx, gatewayrpc.EntityMessages, remote.Filter{ParentID: conversationID})
	if err != nil {
		return err
	}
	incoming, decodeErr := remote.DecodeAll(recs, remote.DecodeMessage)
	for i := range incoming {
		incoming[i].ConversationID = conversationID
	}

	_, err = store.Update(ctx, o.store, store.MessagesKey(conversationID), func(cur []models.Message, _ bool) ([]models.Message, error) {
		merged := mergeMessages(cur, incoming)
		if len(merged) <= len(cur) {
			return cur, store.ErrSkip
		}
		return merged, nil
	})
	return errors.Join(decodeErr, err)
}

// pullUserState replaces the whole local aggregate when the remote copy is
// newer than anything touched locally.
func (o *Orchestrator) pullUserState(ctx context.Context) error {
	st, found, err := fetchOne(ctx, o, gatewayrpc.EntityUserState, o.stateID(), remote.DecodeUserState)
	if err != nil || !found {
		return err
	}
	loc := o.clock.Now().Location()
	return o.store.Locked(ctx, func(tx *store.Tx) error {
		touched := localStateTouched(tx, loc)
		if !st.UpdatedAt.After(touched) {
			return nil
		}
		o.logger.Info(ctx, "remote user state is newer, replacing local", "remote", st.UpdatedAt, "local", touched)
		return replaceUserState(tx, st)
	})
}

// pullAdditive appends remote records whose id is missing locally. Local
// records are never replaced or removed.
func pullAdditive[T models.Identified](ctx context.Context, o *Orchestrator, key, entity string, decode func(json.RawMessage) (T, error)) error {
	recs, err := o.gateway.Fetch(ctx, entity, remote.Filter{})
	if err != nil {
		return err
	}
	incoming, decodeErr := remote.DecodeAll(recs, decode)
	_, err = store.Update(ctx, o.store, key, func(cur []T, _ bool) ([]T, error) {
		merged, added := unionAdditive(cur, incoming)
		if added == 0 {
			return cur, store.ErrSkip
		}
		return merged, nil
	})
	return errors.Join(decodeErr, err)
}

// pullNewer is a union by id where shared records take the remote copy only
// when it is strictly newer.
func pullNewer[T models.Versioned](ctx context.Context, o *Orchestrator, key, entity string, decode func(json.RawMessage) (T, error)) error {
	recs, err := o.gateway.Fetch(ctx, entity, remote.Filter{})
	if err != nil {
		return err
	}
	incoming, decodeErr := remote.DecodeAll(recs, decode)
	_, err = store.Update(ctx, o.store, key, func(cur []T, _ bool) ([]T, error) {
		merged, changed := mergeNewer(cur, incoming)
		if !changed {
			return cur, store.ErrSkip
		}
		return merged, nil
	})
	return errors.Join(decodeErr, err)
}
