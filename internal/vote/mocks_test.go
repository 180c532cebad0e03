package vote

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pscheid92/threadpulse/internal/domain"
)

// --- Mock implementations ---

type mockEndpoints struct {
	upVoteFn      func(ctx context.Context, ref domain.EntityRef) (domain.VoteResult, error)
	downVoteFn    func(ctx context.Context, ref domain.EntityRef) (domain.VoteResult, error)
	neutralVoteFn func(ctx context.Context, ref domain.EntityRef) (domain.VoteResult, error)
}

func (m *mockEndpoints) UpVote(ctx context.Context, ref domain.EntityRef) (domain.VoteResult, error) {
	if m.upVoteFn != nil {
		return m.upVoteFn(ctx, ref)
	}
	return domain.VoteResult{}, fmt.Errorf("not implemented")
}

func (m *mockEndpoints) DownVote(ctx context.Context, ref domain.EntityRef) (domain.VoteResult, error) {
	if m.downVoteFn != nil {
		return m.downVoteFn(ctx, ref)
	}
	return domain.VoteResult{}, fmt.Errorf("not implemented")
}

func (m *mockEndpoints) NeutralVote(ctx context.Context, ref domain.EntityRef) (domain.VoteResult, error) {
	if m.neutralVoteFn != nil {
		return m.neutralVoteFn(ctx, ref)
	}
	return domain.VoteResult{}, fmt.Errorf("not implemented")
}

// gatedEndpoints parks every request until the test answers it.
type gatedEndpoints struct {
	calls chan *pendingCall
}

type pendingCall struct {
	ref    domain.EntityRef
	target domain.Vote
	reply  chan callReply
}

type callReply struct {
	res domain.VoteResult
	err error
}

func newGatedEndpoints() *gatedEndpoints {
	return &gatedEndpoints{calls: make(chan *pendingCall, 16)}
}

func (g *gatedEndpoints) do(ctx context.Context, ref domain.EntityRef, target domain.Vote) (domain.VoteResult, error) {
	c := &pendingCall{ref: ref, target: target, reply: make(chan callReply, 1)}
	g.calls <- c
	select {
	case r := <-c.reply:
		return r.res, r.err
	case <-ctx.Done():
		return domain.VoteResult{}, ctx.Err()
	}
}

func (g *gatedEndpoints) UpVote(ctx context.Context, ref domain.EntityRef) (domain.VoteResult, error) {
	return g.do(ctx, ref, domain.VoteUp)
}

func (g *gatedEndpoints) DownVote(ctx context.Context, ref domain.EntityRef) (domain.VoteResult, error) {
	return g.do(ctx, ref, domain.VoteDown)
}

func (g *gatedEndpoints) NeutralVote(ctx context.Context, ref domain.EntityRef) (domain.VoteResult, error) {
	return g.do(ctx, ref, domain.VoteNone)
}

func (g *gatedEndpoints) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case c := <-g.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("expected a vote request")
		return nil
	}
}

func (g *gatedEndpoints) assertNoCall(t *testing.T) {
	t.Helper()
	select {
	case c := <-g.calls:
		t.Fatalf("unexpected %s request", c.target)
	case <-time.After(50 * time.Millisecond):
	}
}

func (c *pendingCall) succeed(res domain.VoteResult) { c.reply <- callReply{res: res} }
func (c *pendingCall) fail(err error)                { c.reply <- callReply{err: err} }

type recordingNotifier struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *recordingNotifier) Notify(notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *recordingNotifier) all() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice(nil), n.notices...)
}

type countingRecorder struct {
	mu        sync.Mutex
	started   int
	settled   map[Outcome]int
	coalesced int
	elapsed   []time.Duration
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{settled: make(map[Outcome]int)}
}

func (r *countingRecorder) RequestStarted(domain.EntityKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started++
}

func (r *countingRecorder) RequestSettled(_ domain.EntityKind, outcome Outcome, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settled[outcome]++
	r.elapsed = append(r.elapsed, elapsed)
}

func (r *countingRecorder) Coalesced(domain.EntityKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coalesced++
}

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func waitSettled(t *testing.T, r *Reconciler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Wait(ctx); err != nil {
		t.Fatalf("reconciler did not settle: %v", err)
	}
}

var testUser = &domain.User{ID: "user-1", Name: "alice"}
