// Package syncer mediates every read and write between feature code and the
// local store, and reconciles the store with the remote gateway.
//
// Reads only ever touch the store. Writes land in the store synchronously and
// then schedule a best-effort background push. A push that cannot run
// (offline, push slots exhausted) or that fails sets the pending flag; the
// next reconnect edge clears it and pushes everything. SyncFromCloud pulls
// and merges each collection independently and is single-flight.
package syncer

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/dmitrijs2005/companion/internal/client/insights"
	"github.com/dmitrijs2005/companion/internal/client/remote"
	"github.com/dmitrijs2005/companion/internal/client/store"
	"github.com/dmitrijs2005/companion/internal/client/streak"
	"github.com/dmitrijs2005/companion/internal/logging"
	"github.com/dmitrijs2005/companion/internal/timex"
	"golang.org/x/sync/semaphore"
)

// Connectivity is the part of the connectivity monitor the orchestrator reads.
type Connectivity interface {
	Online() bool
	Reconnected() <-chan struct{}
}

type Orchestrator struct {
	store    *store.Store
	gateway  remote.Gateway
	conn     Connectivity
	streak   *streak.Tracker
	insights *insights.Queue

	clock           timex.Clock
	logger          logging.Logger
	userID          string
	imageDir        string
	pushConcurrency int

	pushSlots *semaphore.Weighted
	wg        sync.WaitGroup

	pending atomic.Bool
	syncing atomic.Bool
}

type Option func(*Orchestrator)

func WithLogger(l logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithClock(c timex.Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithUserID names the account; it keys the user-state record and blob paths.
func WithUserID(id string) Option {
	return func(o *Orchestrator) { o.userID = id }
}

// WithImageDir is where downloaded vision images are written.
func WithImageDir(dir string) Option {
	return func(o *Orchestrator) { o.imageDir = dir }
}

// WithPushConcurrency caps in-flight background pushes. When every slot is
// busy a new push is skipped and the pending flag set instead.
func WithPushConcurrency(n int) Option {
	return func(o *Orchestrator) { o.pushConcurrency = n }
}

func New(s *store.Store, gw remote.Gateway, conn Connectivity, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:           s,
		gateway:         gw,
		conn:            conn,
		clock:           timex.SystemClock{},
		logger:          logging.Nop{},
		pushConcurrency: 4 * runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.pushConcurrency < 1 {
		o.pushConcurrency = 1
	}
	o.logger = o.logger.With("module", "syncer")
	o.pushSlots = semaphore.NewWeighted(int64(o.pushConcurrency))
	o.streak = streak.New(s, streak.WithClock(o.clock), streak.WithLogger(o.logger))
	o.insights = insights.New(s, insights.WithClock(o.clock), insights.WithLogger(o.logger))
	return o
}

// HasPendingChanges reports whether some local write has not been pushed.
func (o *Orchestrator) HasPendingChanges() bool {
	return o.pending.Load()
}

// IsSyncing reports whether a pull-merge is running.
func (o *Orchestrator) IsSyncing() bool {
	return o.syncing.Load()
}

// Wait blocks until every background push and remote wipe has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// schedule runs push in the background. Its outcome is never reported to the
// caller; failures only set the pending flag.
func (o *Orchestrator) schedule(ctx context.Context, what string, push func(ctx context.Context) error) {
	if !o.conn.Online() {
		o.pending.Store(true)
		o.logger.Debug(ctx, "offline, push deferred", "what", what)
		return
	}
	if !o.pushSlots.TryAcquire(1) {
		o.pending.Store(true)
		o.logger.Warn(ctx, "push slots exhausted, push deferred", "what", what)
		return
	}

	ctx = context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.pushSlots.Release(1)

		if err := push(ctx); err != nil {
			o.pending.Store(true)
			o.logger.Warn(ctx, "background push failed", "what", what, "error", err)
		}
	}()
}

// background runs fn detached from the caller without taking a push slot.
func (o *Orchestrator) background(ctx context.Context, fn func(ctx context.Context)) {
	ctx = context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		fn(ctx)
	}()
}

// Run listens for reconnect edges until ctx is done. On each edge with
// pending changes it clears the flag and pushes every collection.
func (o *Orchestrator) Run(ctx context.Context) {
	for {
		select {
		case <-o.conn.Reconnected():
			if !o.pending.CompareAndSwap(true, false) {
				continue
			}
			o.logger.Info(ctx, "reconnected with pending changes, pushing all")
			if err := o.PushAllToCloud(ctx); err != nil {
				o.logger.Warn(ctx, "push after reconnect incomplete", "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}
