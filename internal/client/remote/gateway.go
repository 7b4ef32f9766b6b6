// Package remote is the client side of the Remote Gateway: per-entity record
// fetch/upsert/delete and blob transfer against the companion backend.
//
// Records cross the boundary as raw JSON objects. Decode* functions turn them
// into models with tolerant field parsing; Encode goes the other way.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrijs2005/companion/internal/gatewayrpc"
)

var (
	ErrOffline      = errors.New("gateway offline")
	ErrUnavailable  = errors.New("gateway unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

type Filter = gatewayrpc.Filter

type Records interface {
	Fetch(ctx context.Context, entity string, filter Filter) ([]json.RawMessage, error)
	Upsert(ctx context.Context, entity string, records []json.RawMessage) error
	Delete(ctx context.Context, entity string, id string) error
}

type Blobs interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) error
	Download(ctx context.Context, path string) ([]byte, error)
	Sign(ctx context.Context, path string, ttl time.Duration) (string, error)
	Remove(ctx context.Context, path string) error
}

// Gateway is everything the sync orchestrator needs from the backend.
type Gateway interface {
	Records
	Blobs
	Ping(ctx context.Context) error
}

// Offline is a Gateway for running without a backend. Every call fails with
// ErrOffline.
type Offline struct{}

func (Offline) Fetch(context.Context, string, Filter) ([]json.RawMessage, error) {
	return nil, ErrOffline
}
func (Offline) Upsert(context.Context, string, []json.RawMessage) error { return ErrOffline }
func (Offline) Delete(context.Context, string, string) error            { return ErrOffline }
func (Offline) Upload(context.Context, string, []byte, string) error    { return ErrOffline }
func (Offline) Download(context.Context, string) ([]byte, error)        { return nil, ErrOffline }
func (Offline) Sign(context.Context, string, time.Duration) (string, error) {
	return "", ErrOffline
}
func (Offline) Remove(context.Context, string) error { return ErrOffline }
func (Offline) Ping(context.Context) error           { return ErrOffline }
