package vote

import (
	"context"
	"fmt"
	"sync"

	"github.com/pscheid92/threadpulse/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Board keeps one Reconciler per entity so that every view of the same
// thread or comment shares its vote state.
type Board struct {
	endpoints Endpoints
	opts      []Option

	mu      sync.Mutex
	entries map[string]*Reconciler
}

func NewBoard(endpoints Endpoints, opts ...Option) *Board {
	return &Board{
		endpoints: endpoints,
		opts:      opts,
		entries:   make(map[string]*Reconciler),
	}
}

// Track registers ref with freshly loaded state. An existing reconciler is
// refreshed unless it has a request in flight.
func (b *Board) Track(ref domain.EntityRef, loaded domain.Tally) *Reconciler {
	b.mu.Lock()
	defer b.mu.Unlock()

	if rec, ok := b.entries[ref.Key()]; ok {
		rec.Refresh(loaded)
		return rec
	}
	rec := NewReconciler(ref, loaded, b.endpoints, b.opts...)
	b.entries[ref.Key()] = rec
	return rec
}

func (b *Board) Get(ref domain.EntityRef) (*Reconciler, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rec, ok := b.entries[ref.Key()]
	return rec, ok
}

// State returns the displayed tally of a tracked entity.
func (b *Board) State(ref domain.EntityRef) (domain.Tally, bool) {
	rec, ok := b.Get(ref)
	if !ok {
		return domain.Tally{}, false
	}
	return rec.State(), true
}

// Cast votes on a tracked entity.
func (b *Board) Cast(ctx context.Context, actor *domain.User, ref domain.EntityRef, requested domain.Vote) (domain.Tally, error) {
	rec, ok := b.Get(ref)
	if !ok {
		return domain.Tally{}, fmt.Errorf("vote on %s: entity not loaded", ref.Key())
	}
	return rec.Cast(ctx, actor, requested)
}

// Forget drops ref. A request in flight still settles on the detached
// reconciler.
func (b *Board) Forget(ref domain.EntityRef) {
	b.mu.Lock()
	delete(b.entries, ref.Key())
	b.mu.Unlock()
}

func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Wait blocks until every tracked reconciler has settled.
func (b *Board) Wait(ctx context.Context) error {
	b.mu.Lock()
	recs := make([]*Reconciler, 0, len(b.entries))
	for _, rec := range b.entries {
		recs = append(recs, rec)
	}
	b.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, rec := range recs {
		g.Go(func() error { return rec.Wait(gctx) })
	}
	return g.Wait()
}
