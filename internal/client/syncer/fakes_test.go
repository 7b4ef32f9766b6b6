package syncer

import (
	"context"
	"encoding/json"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/companion/internal/client/remote"
	"github.com/dmitrijs2005/companion/internal/client/store/storetest"
	"github.com/dmitrijs2005/companion/internal/gatewayrpc"
	"github.com/dmitrijs2005/companion/internal/timex"
	"github.com/stretchr/testify/require"
)

const testUserID = "u1"

var t0 = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

// fakeGateway keeps records per entity and id, like the backend's upsert
// table, and blobs by path.
type fakeGateway struct {
	mu      sync.Mutex
	records map[string]map[string]json.RawMessage
	blobs   map[string][]byte
	types   map[string]string
	deleted []string
	removed []string

	fetchErr  map[string]error
	upsertErr error
	deleteErr error
	fetches   map[string]int
	upserts   map[string]int

	onFetch func(entity string)
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		records:  make(map[string]map[string]json.RawMessage),
		blobs:    make(map[string][]byte),
		types:    make(map[string]string),
		fetchErr: make(map[string]error),
		fetches:  make(map[string]int),
		upserts:  make(map[string]int),
	}
}

func recordID(raw json.RawMessage) string {
	var head struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(raw, &head)
	return head.ID
}

func recordParent(raw json.RawMessage) string {
	var head struct {
		ConversationID string `json:"conversation_id"`
	}
	_ = json.Unmarshal(raw, &head)
	return head.ConversationID
}

// seed stores v as a remote record, bypassing the orchestrator.
func (g *fakeGateway) seed(t *testing.T, entity string, items ...any) {
	t.Helper()
	for _, v := range items {
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		g.put(entity, raw)
	}
}

func (g *fakeGateway) put(entity string, raw json.RawMessage) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.records[entity] == nil {
		g.records[entity] = make(map[string]json.RawMessage)
	}
	g.records[entity][recordID(raw)] = raw
}

func (g *fakeGateway) ids(entity string) []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.records[entity]))
	for id := range g.records[entity] {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

func (g *fakeGateway) record(entity, id string) (json.RawMessage, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	raw, ok := g.records[entity][id]
	return raw, ok
}

func (g *fakeGateway) blob(path string) ([]byte, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.blobs[path]
	return b, ok
}

func (g *fakeGateway) fetchCount(entity string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.fetches[entity]
}

func (g *fakeGateway) Fetch(_ context.Context, entity string, filter remote.Filter) ([]json.RawMessage, error) {
	if g.onFetch != nil {
		g.onFetch(entity)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fetches[entity]++
	if err := g.fetchErr[entity]; err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(g.records[entity]))
	for id := range g.records[entity] {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	var out []json.RawMessage
	for _, id := range ids {
		raw := g.records[entity][id]
		if filter.ID != "" && id != filter.ID {
			continue
		}
		if filter.ParentID != "" && recordParent(raw) != filter.ParentID {
			continue
		}
		out = append(out, raw)
	}
	return out, nil
}

func (g *fakeGateway) Upsert(_ context.Context, entity string, records []json.RawMessage) error {
	g.mu.Lock()
	g.upserts[entity]++
	err := g.upsertErr
	g.mu.Unlock()
	if err != nil {
		return err
	}
	for _, raw := range records {
		g.put(entity, raw)
	}
	return nil
}

func (g *fakeGateway) Delete(_ context.Context, entity, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.deleteErr != nil {
		return g.deleteErr
	}
	if _, ok := g.records[entity][id]; !ok {
		return remote.ErrNotFound
	}
	delete(g.records[entity], id)
	g.deleted = append(g.deleted, entity+"/"+id)
	if entity == gatewayrpc.EntityConversations {
		for mid, raw := range g.records[gatewayrpc.EntityMessages] {
			if recordParent(raw) == id {
				delete(g.records[gatewayrpc.EntityMessages], mid)
			}
		}
	}
	return nil
}

func (g *fakeGateway) Upload(_ context.Context, path string, data []byte, contentType string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blobs[path] = slices.Clone(data)
	g.types[path] = contentType
	return nil
}

func (g *fakeGateway) Download(_ context.Context, path string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	b, ok := g.blobs[path]
	if !ok {
		return nil, remote.ErrNotFound
	}
	return slices.Clone(b), nil
}

func (g *fakeGateway) Sign(_ context.Context, path string, _ time.Duration) (string, error) {
	return "https://blobs.test/" + path, nil
}

func (g *fakeGateway) Remove(_ context.Context, path string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.blobs[path]; !ok {
		return remote.ErrNotFound
	}
	delete(g.blobs, path)
	g.removed = append(g.removed, path)
	return nil
}

func (g *fakeGateway) Ping(context.Context) error { return nil }

type fakeConn struct {
	online atomic.Bool
	edges  chan struct{}
}

func newFakeConn(online bool) *fakeConn {
	c := &fakeConn{edges: make(chan struct{}, 1)}
	c.online.Store(online)
	return c
}

func (c *fakeConn) Online() bool                 { return c.online.Load() }
func (c *fakeConn) Reconnected() <-chan struct{} { return c.edges }

func (c *fakeConn) reconnect() {
	c.online.Store(true)
	c.edges <- struct{}{}
}

type harness struct {
	o        *Orchestrator
	gw       *fakeGateway
	conn     *fakeConn
	clock    *timex.ManualClock
	imageDir string
}

func newHarness(t *testing.T, online bool) *harness {
	t.Helper()
	h := &harness{
		gw:       newFakeGateway(),
		conn:     newFakeConn(online),
		clock:    timex.NewManualClock(t0),
		imageDir: filepath.Join(t.TempDir(), "images"),
	}
	h.o = New(storetest.New(t), h.gw, h.conn,
		WithClock(h.clock),
		WithUserID(testUserID),
		WithImageDir(h.imageDir),
	)
	t.Cleanup(h.o.Wait)
	return h
}
