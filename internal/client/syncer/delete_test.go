package syncer

import (
	"context"
	"errors"
	"testing"

	"github.com/dmitrijs2005/companion/internal/client/models"
	"github.com/dmitrijs2005/companion/internal/gatewayrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedConversation(t *testing.T, h *harness) {
	t.Helper()
	ctx := context.Background()
	_, err := h.o.SaveConversation(ctx, models.Conversation{ID: "c1"})
	require.NoError(t, err)
	_, err = h.o.SaveConversation(ctx, models.Conversation{ID: "c2"})
	require.NoError(t, err)
	_, err = h.o.AppendMessage(ctx, models.Message{ID: "m1", ConversationID: "c1"})
	require.NoError(t, err)
	h.o.Wait()
}

func TestDeleteConversation_OfflineKeepsEverything(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	seedConversation(t, h)

	assert.False(t, h.o.DeleteConversation(ctx, "c1"))
	assert.Equal(t, []string{"c1", "c2"}, ids(h.o.LoadConversations(ctx)))
	assert.Len(t, h.o.LoadMessages(ctx, "c1"), 1)
}

func TestDeleteConversation_Online(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	seedConversation(t, h)
	require.Equal(t, []string{"m1"}, h.gw.ids(gatewayrpc.EntityMessages))

	require.True(t, h.o.DeleteConversation(ctx, "c1"))

	assert.Equal(t, []string{"c2"}, ids(h.o.LoadConversations(ctx)))
	assert.Empty(t, h.o.LoadMessages(ctx, "c1"))
	assert.Equal(t, []string{"c2"}, h.gw.ids(gatewayrpc.EntityConversations))
	assert.Empty(t, h.gw.ids(gatewayrpc.EntityMessages))
}

func TestDeleteConversation_MissingRemotelyStillDeletesLocal(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	seedConversation(t, h)
	h.conn.online.Store(true)

	require.True(t, h.o.DeleteConversation(ctx, "c1"))
	assert.Equal(t, []string{"c2"}, ids(h.o.LoadConversations(ctx)))
}

func TestDeleteConversation_RemoteFailureKeepsLocal(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	seedConversation(t, h)
	h.gw.deleteErr = errors.New("backend down")

	assert.False(t, h.o.DeleteConversation(ctx, "c1"))
	assert.Equal(t, []string{"c1", "c2"}, ids(h.o.LoadConversations(ctx)))
	assert.Len(t, h.o.LoadMessages(ctx, "c1"), 1)
}

func TestClearAll_WipesLocalAndRemote(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	seedConversation(t, h)

	require.NoError(t, h.o.SaveProfile(ctx, models.Profile{DisplayName: "Sam"}))
	require.NoError(t, h.o.SaveJournalEntries(ctx, []models.JournalEntry{{ID: "j1"}}))
	require.NoError(t, h.o.SaveGoals(ctx, []models.Goal{{ID: "g1"}}))
	_, err := h.o.IncrementUsage(ctx)
	require.NoError(t, err)
	h.o.Wait()
	require.NotEmpty(t, h.gw.ids(gatewayrpc.EntityUserState))

	require.NoError(t, h.o.ClearAll(ctx))

	_, ok := h.o.LoadProfile(ctx)
	assert.False(t, ok)
	assert.Empty(t, h.o.LoadConversations(ctx))
	assert.Empty(t, h.o.LoadMessages(ctx, "c1"))
	assert.Empty(t, h.o.LoadJournalEntries(ctx))
	assert.Equal(t, 0, h.o.LoadUsage(ctx).MessageCount)
	assert.False(t, h.o.HasPendingChanges())

	h.o.Wait()
	for _, entity := range []string{
		gatewayrpc.EntityProfiles,
		gatewayrpc.EntityConversations,
		gatewayrpc.EntityMessages,
		gatewayrpc.EntityJournalEntries,
		gatewayrpc.EntityGoals,
		gatewayrpc.EntityUserState,
	} {
		assert.Empty(t, h.gw.ids(entity), entity)
	}
}

func TestClearAll_WipesRecordsOnlyTheBackendHas(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()

	const blob = "users/u1/vision/v-remote.jpg"
	const pushedRef = "users/u1/vision/v-other.png"
	h.gw.seed(t, gatewayrpc.EntityJournalEntries, models.JournalEntry{ID: "other-device", UpdatedAt: t0})
	h.gw.seed(t, gatewayrpc.EntityProfiles, models.Profile{ID: testUserID, DisplayName: "remote", UpdatedAt: t0})
	h.gw.seed(t, gatewayrpc.EntityConversations, models.Conversation{ID: "c-remote", UpdatedAt: t0})
	h.gw.seed(t, gatewayrpc.EntityMessages, models.Message{ID: "m-remote", ConversationID: "c-remote", CreatedAt: t0})
	h.gw.seed(t, gatewayrpc.EntityVisionItems,
		models.VisionItem{ID: "v-remote", RemotePath: blob, UpdatedAt: t0},
		models.VisionItem{ID: "v-other", ImageRef: pushedRef, UpdatedAt: t0})
	require.NoError(t, h.gw.Upload(ctx, blob, []byte("jpg"), "image/jpeg"))
	require.NoError(t, h.gw.Upload(ctx, pushedRef, []byte("png"), "image/png"))

	require.NoError(t, h.o.ClearAll(ctx))
	h.o.Wait()

	for _, entity := range []string{
		gatewayrpc.EntityJournalEntries,
		gatewayrpc.EntityProfiles,
		gatewayrpc.EntityConversations,
		gatewayrpc.EntityMessages,
		gatewayrpc.EntityVisionItems,
	} {
		assert.Empty(t, h.gw.ids(entity), entity)
	}
	for _, p := range []string{blob, pushedRef} {
		_, ok := h.gw.blob(p)
		assert.False(t, ok, p)
	}

	_, err := h.o.SyncFromCloud(ctx)
	require.NoError(t, err)
	assert.Empty(t, h.o.LoadJournalEntries(ctx))
	assert.Empty(t, h.o.LoadConversations(ctx))
	_, found := h.o.LoadProfile(ctx)
	assert.False(t, found)
}

func TestClearAll_ListFailureStillWipesLocalIDs(t *testing.T) {
	h := newHarness(t, true)
	ctx := context.Background()
	require.NoError(t, h.o.SaveJournalEntries(ctx, []models.JournalEntry{{ID: "j1"}}))
	h.o.Wait()
	require.Equal(t, []string{"j1"}, h.gw.ids(gatewayrpc.EntityJournalEntries))

	h.gw.fetchErr[gatewayrpc.EntityJournalEntries] = errors.New("listing down")
	require.NoError(t, h.o.ClearAll(ctx))
	h.o.Wait()

	assert.Empty(t, h.gw.ids(gatewayrpc.EntityJournalEntries))
	assert.Contains(t, h.gw.deleted, gatewayrpc.EntityJournalEntries+"/j1")
}

func TestClearAll_OfflineSkipsRemote(t *testing.T) {
	h := newHarness(t, false)
	ctx := context.Background()
	require.NoError(t, h.o.SaveJournalEntries(ctx, []models.JournalEntry{{ID: "j1"}}))
	require.True(t, h.o.HasPendingChanges())

	require.NoError(t, h.o.ClearAll(ctx))
	h.o.Wait()

	assert.Empty(t, h.o.LoadJournalEntries(ctx))
	assert.False(t, h.o.HasPendingChanges())
	assert.Empty(t, h.gw.deleted)
}
