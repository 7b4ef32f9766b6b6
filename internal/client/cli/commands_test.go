package cli

import (
	"testing"

	"github.com/dmitrijs2005/companion/internal/client/remote"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatus(t *testing.T) {
	out, err := execute(t, testOpener(t, newOnlineGateway()), "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "mode: online")
	assert.Contains(t, out, "notifications left this week: 3")

	out, err = execute(t, testOpener(t, remote.Offline{}), "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "mode: offline")
}

func TestJournalAddAndList(t *testing.T) {
	open := testOpener(t, remote.Offline{})

	out, err := execute(t, open, "", "journal", "add", "Morning", "pages", "--body", "slept well", "--mood", "calm")
	require.NoError(t, err)
	assert.Contains(t, out, "added ")

	out, err = execute(t, open, "", "journal", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "2026-03-11")
	assert.Contains(t, out, "Morning pages")

	out, err = execute(t, open, "", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "pending changes: false", "pending flag lives only for one process")
}

func TestJournalAdd_BodyFromStdin(t *testing.T) {
	open := testOpener(t, remote.Offline{})

	_, err := execute(t, open, "line one\nline two\n\n", "journal", "add", "Evening")
	require.NoError(t, err)

	out, err := execute(t, open, "", "journal", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Evening")
}

func TestStreakRecord(t *testing.T) {
	open := testOpener(t, remote.Offline{})

	out, err := execute(t, open, "", "streak", "record", "chat")
	require.NoError(t, err)
	assert.Equal(t, "streak: 1 (longest 1)\n", out)

	out, err = execute(t, open, "", "streak", "record", "journal")
	require.NoError(t, err)
	assert.Equal(t, "streak: 1 (longest 1)\n", out)

	_, err = execute(t, open, "", "streak", "record", "nap")
	require.ErrorContains(t, err, "unknown activity")
}

func TestNotifyBudget(t *testing.T) {
	open := testOpener(t, remote.Offline{})

	for i := 0; i < 3; i++ {
		out, err := execute(t, open, "", "notify", "allow")
		require.NoError(t, err)
		assert.Equal(t, "allowed\n", out)
	}
	out, err := execute(t, open, "", "notify", "allow")
	require.NoError(t, err)
	assert.Equal(t, "budget exhausted\n", out)

	out, err = execute(t, open, "", "notify", "check")
	require.NoError(t, err)
	assert.Equal(t, "can send: false (0 left)\n", out)
}

func TestInsightPushPop(t *testing.T) {
	open := testOpener(t, remote.Offline{})

	out, err := execute(t, open, "", "insight", "push", "Works", "late", "on", "Sundays")
	require.NoError(t, err)
	assert.Equal(t, "queued\n", out)

	out, err = execute(t, open, "", "insight", "push", "works late")
	require.NoError(t, err)
	assert.Contains(t, out, "not queued")

	out, err = execute(t, open, "", "insight", "pop")
	require.NoError(t, err)
	assert.Equal(t, "Works late on Sundays\n", out)

	out, err = execute(t, open, "", "insight", "pop")
	require.NoError(t, err)
	assert.Equal(t, "queue empty\n", out)
}

func TestConversationDelete(t *testing.T) {
	_, err := execute(t, testOpener(t, remote.Offline{}), "", "conversation", "delete", "c1")
	require.ErrorContains(t, err, "not deleted")

	gw := newOnlineGateway()
	out, err := execute(t, testOpener(t, gw), "", "conversation", "delete", "c1")
	require.NoError(t, err)
	assert.Equal(t, "deleted\n", out)
	assert.Equal(t, []string{"conversations/c1"}, gw.deleted)
}

func TestPushAndSync(t *testing.T) {
	gw := newOnlineGateway()
	open := testOpener(t, gw)

	_, err := execute(t, open, "", "journal", "add", "x", "--body", "y")
	require.NoError(t, err)

	out, err := execute(t, open, "", "push")
	require.NoError(t, err)
	assert.Equal(t, "pushed\n", out)
	gw.mu.Lock()
	assert.Equal(t, 2, gw.upserts["journal_entries"], "one background push from add, one from push")
	gw.mu.Unlock()

	out, err = execute(t, open, "", "sync")
	require.NoError(t, err)
	assert.Equal(t, "synced\n", out)

	_, err = execute(t, testOpener(t, remote.Offline{}), "", "sync")
	require.ErrorIs(t, err, remote.ErrOffline)
}

func TestWipe(t *testing.T) {
	open := testOpener(t, remote.Offline{})
	_, err := execute(t, open, "", "journal", "add", "x", "--body", "y")
	require.NoError(t, err)

	_, err = execute(t, open, "no\n", "wipe")
	require.ErrorContains(t, err, "aborted")

	out, err := execute(t, open, "wipe\n", "wipe")
	require.NoError(t, err)
	assert.Contains(t, out, "wiped")

	out, err = execute(t, open, "", "journal", "list")
	require.NoError(t, err)
	assert.Equal(t, "no entries\n", out)
}
