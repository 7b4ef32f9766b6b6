package syncer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/dmitrijs2005/companion/internal/client/models"
	"github.com/dmitrijs2005/companion/internal/client/remote"
	"github.com/dmitrijs2005/companion/internal/client/store"
	"github.com/dmitrijs2005/companion/internal/common"
	"github.com/dmitrijs2005/companion/internal/gatewayrpc"
)

// DeleteConversation removes a conversation and its messages remotely and
// then locally. It needs connectivity: offline, or when the remote delete
// fails, nothing is deleted and false is returned. The backend drops the
// conversation's messages along with it.
func (o *Orchestrator) DeleteConversation(ctx context.Context, id string) bool {
	if !o.conn.Online() {
		o.logger.Info(ctx, "offline, conversation not deleted", "conversation", id)
		return false
	}
	err := o.gateway.Delete(ctx, gatewayrpc.EntityConversations, id)
	if err != nil && !errors.Is(err, remote.ErrNotFound) {
		o.logger.Warn(ctx, "remote conversation delete failed", "conversation", id, "error", err)
		return false
	}

	err = o.store.Locked(ctx, func(tx *store.Tx) error {
		convs, _ := store.TxLoad[[]models.Conversation](tx, store.KeyConversations)
		kept := slices.DeleteFunc(slices.Clone(convs), func(c models.Conversation) bool { return c.ID == id })
		if len(kept) != len(convs) {
			if err := store.TxSave(tx, store.KeyConversations, kept); err != nil {
				return err
			}
		}
		return tx.Delete(store.MessagesKey(id))
	})
	if err != nil {
		o.logger.Error(ctx, "local conversation delete failed", "conversation", id, "error", err)
		return false
	}
	return true
}

// wipeCollections are the per-id entities a remote wipe enumerates.
// Messages go with their conversations.
var wipeCollections = []string{
	gatewayrpc.EntityConversations,
	gatewayrpc.EntityJournalEntries,
	gatewayrpc.EntityGoals,
	gatewayrpc.EntityAffirmations,
	gatewayrpc.EntityVisionItems,
	gatewayrpc.EntityUserFacts,
}

// wipeSet is what a remote wipe has to delete. It starts from the local
// store, captured before it is cleared, and is widened with whatever the
// backend lists.
type wipeSet struct {
	records map[string][]string
	blobs   []string
}

func (w *wipeSet) addRecord(entity, id string) {
	if id != "" && !slices.Contains(w.records[entity], id) {
		w.records[entity] = append(w.records[entity], id)
	}
}

func (w *wipeSet) addBlob(p string) {
	if p != "" && !slices.Contains(w.blobs, p) {
		w.blobs = append(w.blobs, p)
	}
}

func (o *Orchestrator) snapshotForWipe(ctx context.Context) wipeSet {
	w := wipeSet{records: make(map[string][]string)}
	w.records[gatewayrpc.EntityConversations] = o.conversationIDs(ctx)
	w.records[gatewayrpc.EntityJournalEntries] = ids(o.LoadJournalEntries(ctx))
	w.records[gatewayrpc.EntityGoals] = ids(o.LoadGoals(ctx))
	w.records[gatewayrpc.EntityAffirmations] = ids(o.LoadAffirmations(ctx))
	w.records[gatewayrpc.EntityUserFacts] = ids(o.LoadUserFacts(ctx))

	vision := o.LoadVisionItems(ctx)
	w.records[gatewayrpc.EntityVisionItems] = ids(vision)
	for _, it := range vision {
		w.addBlob(it.RemotePath)
	}
	return w
}

// ClearAll wipes the local store synchronously and resets the sync flags.
// When online, the remote copy is wiped in the background, including records
// this device never pulled.
func (o *Orchestrator) ClearAll(ctx context.Context) error {
	w := o.snapshotForWipe(ctx)

	buckets, err := o.store.ClearAll(ctx)
	if err != nil {
		return err
	}
	for _, id := range buckets {
		w.addRecord(gatewayrpc.EntityConversations, id)
	}

	o.pending.Store(false)
	o.syncing.Store(false)

	if !o.conn.Online() {
		o.logger.Info(ctx, "offline, remote wipe skipped")
		return nil
	}
	o.background(ctx, func(ctx context.Context) {
		if err := o.wipeRemote(ctx, w); err != nil {
			o.logger.Warn(ctx, "remote wipe incomplete", "error", err)
			return
		}
		o.logger.Info(ctx, "remote data wiped")
	})
	return nil
}

// listRemote adds every id the backend holds to w. A collection that cannot
// be listed is still wiped by its local ids.
func (o *Orchestrator) listRemote(ctx context.Context, w *wipeSet) error {
	var errs []error
	for _, entity := range wipeCollections {
		raws, err := o.gateway.Fetch(ctx, entity, remote.Filter{})
		if err != nil {
			errs = append(errs, fmt.Errorf("list %s: %w", entity, err))
			continue
		}
		for _, raw := range raws {
			if entity == gatewayrpc.EntityVisionItems {
				if it, err := remote.DecodeVisionItem(raw); err == nil {
					w.addRecord(entity, it.ID)
					w.addBlob(it.RemotePath)
					if strings.HasPrefix(it.ImageRef, common.UserBlobPrefix) {
						w.addBlob(it.ImageRef)
					}
					continue
				}
			}
			id, err := remote.DecodeID(entity, raw)
			if err != nil {
				o.logger.Warn(ctx, "remote record without id left in place", "entity", entity, "error", err)
				continue
			}
			w.addRecord(entity, id)
		}
	}
	return errors.Join(errs...)
}

func (o *Orchestrator) wipeRemote(ctx context.Context, w wipeSet) error {
	errs := []error{o.listRemote(ctx, &w)}
	del := func(entity, id string) {
		if err := o.gateway.Delete(ctx, entity, id); err != nil && !errors.Is(err, remote.ErrNotFound) {
			errs = append(errs, err)
		}
	}

	for _, entity := range wipeCollections {
		for _, id := range w.records[entity] {
			del(entity, id)
		}
	}
	for _, p := range w.blobs {
		if err := o.gateway.Remove(ctx, p); err != nil && !errors.Is(err, remote.ErrNotFound) {
			errs = append(errs, err)
		}
	}
	del(gatewayrpc.EntityUserState, o.stateID())
	if o.userID != "" {
		del(gatewayrpc.EntityProfiles, o.userID)
	}
	return errors.Join(errs...)
}
