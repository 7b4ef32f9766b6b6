package grpc

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"github.com/dmitrijs2005/companion/internal/common"
	"github.com/dmitrijs2005/companion/internal/gatewayrpc"
	"github.com/dmitrijs2005/companion/internal/logging"
)

type fakeRecords struct {
	mu   sync.Mutex
	data map[string]map[string]json.RawMessage // user/entity -> id -> body
	err  error
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{data: map[string]map[string]json.RawMessage{}}
}

func (f *fakeRecords) Fetch(_ context.Context, userID, entity string, flt gatewayrpc.Filter) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	bucket := f.data[userID+"/"+entity]
	ids := make([]string, 0, len(bucket))
	for id := range bucket {
		if flt.ID == "" || flt.ID == id {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	out := make([]json.RawMessage, 0, len(ids))
	for _, id := range ids {
		out = append(out, bucket[id])
	}
	return out, nil
}

func (f *fakeRecords) Upsert(_ context.Context, userID, entity string, records []json.RawMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	key := userID + "/" + entity
	if f.data[key] == nil {
		f.data[key] = map[string]json.RawMessage{}
	}
	for _, r := range records {
		var head struct {
			ID string `json:"id"`
		}
		if err := json.Unmarshal(r, &head); err != nil || head.ID == "" {
			return common.ErrorInvalidInput
		}
		f.data[key][head.ID] = r
	}
	return nil
}

func (f *fakeRecords) Delete(_ context.Context, userID, entity, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	bucket := f.data[userID+"/"+entity]
	if _, ok := bucket[id]; !ok {
		return common.ErrorNotFound
	}
	delete(bucket, id)
	return nil
}

type fakeBlobs struct {
	mu      sync.Mutex
	signed  []gatewayrpc.SignRequest
	removed []string
	err     error
}

func (f *fakeBlobs) Sign(_ context.Context, userID string, req gatewayrpc.SignRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.signed = append(f.signed, req)
	return "https://blobs.example/" + userID + "/" + req.Method + "/" + req.Path, nil
}

func (f *fakeBlobs) Remove(_ context.Context, _ string, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.removed = append(f.removed, path)
	return nil
}

const testSecret = "test-secret"

func newTestServer() (*GRPCServer, *fakeRecords, *fakeBlobs) {
	r, b := newFakeRecords(), &fakeBlobs{}
	return NewGRPCServer("127.0.0.1:0", logging.Nop{}, r, b, testSecret), r, b
}

func withUser(userID string) context.Context {
	return context.WithValue(context.Background(), UserIDKey, userID)
}
