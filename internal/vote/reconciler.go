package vote

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/threadpulse/internal/domain"
	"github.com/pscheid92/threadpulse/internal/platform/correlation"
)

const defaultRequestTimeout = 5 * time.Second

// Endpoints persists a vote on the entity ref points at. The forum API client
// implements it for both threads and comments.
type Endpoints interface {
	UpVote(ctx context.Context, ref domain.EntityRef) (domain.VoteResult, error)
	DownVote(ctx context.Context, ref domain.EntityRef) (domain.VoteResult, error)
	NeutralVote(ctx context.Context, ref domain.EntityRef) (domain.VoteResult, error)
}

type settings struct {
	clock    clockwork.Clock
	timeout  time.Duration
	notifier Notifier
	recorder Recorder
	onChange func(domain.EntityRef)
}

type Option func(*settings)

func WithClock(clock clockwork.Clock) Option {
	return func(s *settings) { s.clock = clock }
}

// WithTimeout bounds each persistence request.
func WithTimeout(d time.Duration) Option {
	return func(s *settings) { s.timeout = d }
}

func WithNotifier(n Notifier) Option {
	return func(s *settings) { s.notifier = n }
}

func WithRecorder(r Recorder) Option {
	return func(s *settings) { s.recorder = r }
}

// WithOnChange registers a callback invoked after the displayed tally changed
// because a request settled. Cast callers get the new tally as return value.
// Callbacks run outside the lock, so calls for the same ref may arrive out of
// order; read the tally from State instead of tracking it.
func WithOnChange(fn func(domain.EntityRef)) Option {
	return func(s *settings) { s.onChange = fn }
}

func newSettings(opts []Option) settings {
	s := settings{
		clock:    clockwork.NewRealClock(),
		timeout:  defaultRequestTimeout,
		notifier: discardNotifier{},
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Reconciler holds the vote state of a single entity.
type Reconciler struct {
	ref       domain.EntityRef
	endpoints Endpoints
	settings

	mu        sync.Mutex
	confirmed domain.Tally // last state the server agreed to
	display   domain.Tally
	desired   domain.Vote
	inFlight  bool
	idle      chan struct{} // closed once no request is in flight
}

func NewReconciler(ref domain.EntityRef, initial domain.Tally, endpoints Endpoints, opts ...Option) *Reconciler {
	initial = normalize(initial)
	idle := make(chan struct{})
	close(idle)
	return &Reconciler{
		ref:       ref,
		endpoints: endpoints,
		settings:  newSettings(opts),
		confirmed: initial,
		display:   initial,
		desired:   initial.Mine,
		idle:      idle,
	}
}

func (r *Reconciler) Ref() domain.EntityRef { return r.ref }

// State returns the displayed tally.
func (r *Reconciler) State() domain.Tally {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.display
}

// Pending reports whether a request is in flight.
func (r *Reconciler) Pending() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight
}

// Cast toggles the actor's vote. The returned tally is already displayed;
// persistence happens in the background. A nil actor is ignored.
func (r *Reconciler) Cast(ctx context.Context, actor *domain.User, requested domain.Vote) (domain.Tally, error) {
	if requested != domain.VoteUp && requested != domain.VoteDown {
		return r.State(), fmt.Errorf("%w: cast accepts up or down, got %s", domain.ErrInvalidVote, requested)
	}
	if actor == nil {
		return r.State(), nil
	}

	r.mu.Lock()
	target := Resolve(r.display.Mine, requested)
	r.display = Apply(r.display, target)
	r.desired = target
	snapshot := r.display

	if r.inFlight {
		r.mu.Unlock()
		r.recorder.Coalesced(r.ref.Kind)
		return snapshot, nil
	}
	r.begin()
	r.mu.Unlock()

	go r.persist(detach(ctx), target)
	return snapshot, nil
}

// Refresh replaces the state with freshly loaded data. It is ignored while a
// request is in flight, since the outcome of that request takes precedence.
func (r *Reconciler) Refresh(t domain.Tally) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inFlight {
		return false
	}
	t = normalize(t)
	r.confirmed = t
	r.display = t
	r.desired = t.Mine
	return true
}

// Wait blocks until the last request has settled, including its change
// callback and notice, or until ctx is done.
func (r *Reconciler) Wait(ctx context.Context) error {
	for {
		r.mu.Lock()
		idle := r.idle
		r.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}

		r.mu.Lock()
		settled := r.idle == idle
		r.mu.Unlock()
		if settled {
			return nil
		}
	}
}

// begin marks a request as in flight. Callers hold r.mu.
func (r *Reconciler) begin() {
	r.inFlight = true
	r.idle = make(chan struct{})
	r.recorder.RequestStarted(r.ref.Kind)
}

// finish clears the in-flight flag and hands back the channel to close once
// callbacks have run. Callers hold r.mu.
func (r *Reconciler) finish() chan struct{} {
	r.inFlight = false
	return r.idle
}

// persist sends target and then any follow-up the user asked for while the
// previous request was in flight.
func (r *Reconciler) persist(ctx context.Context, target domain.Vote) {
	for {
		reqCtx, cancel := clockwork.WithTimeout(ctx, r.clock, r.timeout)
		start := r.clock.Now()
		res, err := r.call(reqCtx, target)
		cancel()
		elapsed := r.clock.Since(start)

		if err != nil {
			r.recorder.RequestSettled(r.ref.Kind, OutcomeFailure, elapsed)
			r.rollback(ctx, target, err)
			return
		}
		r.recorder.RequestSettled(r.ref.Kind, OutcomeSuccess, elapsed)

		next, again := r.reconcile(ctx, target, res)
		if !again {
			return
		}
		target = next
	}
}

func (r *Reconciler) call(ctx context.Context, target domain.Vote) (domain.VoteResult, error) {
	switch target {
	case domain.VoteUp:
		return r.endpoints.UpVote(ctx, r.ref)
	case domain.VoteDown:
		return r.endpoints.DownVote(ctx, r.ref)
	default:
		return r.endpoints.NeutralVote(ctx, r.ref)
	}
}

// reconcile folds a successful response into the confirmed state and reports
// whether a follow-up request for the desired vote is needed.
func (r *Reconciler) reconcile(ctx context.Context, target domain.Vote, res domain.VoteResult) (domain.Vote, bool) {
	r.mu.Lock()
	r.confirmed = Correct(Apply(r.confirmed, target), res)
	next := r.desired

	// Follow up only if the user changed their mind while the request was in
	// flight. Otherwise the server's answer stands, flags included.
	followUp := next != target && next != r.confirmed.Mine
	if followUp {
		r.display = Apply(r.confirmed, next)
	} else {
		r.display = r.confirmed
		r.desired = r.confirmed.Mine
	}
	var done chan struct{}
	if followUp {
		r.recorder.RequestStarted(r.ref.Kind)
	} else {
		done = r.finish()
	}
	snapshot := r.display
	r.mu.Unlock()

	slog.DebugContext(ctx, "Vote confirmed",
		"entity", r.ref.Key(),
		"target", target.String(),
		"up", snapshot.Up,
		"down", snapshot.Down,
		"follow_up", followUp)

	r.changed()
	if done != nil {
		close(done)
	}
	return next, followUp
}

func (r *Reconciler) rollback(ctx context.Context, target domain.Vote, err error) {
	r.mu.Lock()
	r.display = r.confirmed
	r.desired = r.confirmed.Mine
	done := r.finish()
	snapshot := r.display
	r.mu.Unlock()

	msg := domain.ErrorMessage(err)
	slog.WarnContext(ctx, "Vote rolled back",
		"entity", r.ref.Key(),
		"target", target.String(),
		"error", err)

	r.changed()
	r.notifier.Notify(Notice{
		Ref:      r.ref,
		Target:   target,
		Restored: snapshot,
		Message:  msg,
		Err:      err,
	})
	close(done)
}

func (r *Reconciler) changed() {
	if r.onChange != nil {
		r.onChange(r.ref)
	}
}

// detach keeps request-scoped values such as the correlation ID but drops the
// caller's cancellation: the caller never waits for the request.
func detach(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return correlation.Ensure(context.WithoutCancel(ctx))
}

func normalize(t domain.Tally) domain.Tally {
	t.Up = max(t.Up, 0)
	t.Down = max(t.Down, 0)
	return t
}
