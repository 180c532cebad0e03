package vote

import (
	"time"

	"github.com/pscheid92/threadpulse/internal/domain"
)

// Notice reports a vote that could not be persisted and was rolled back.
type Notice struct {
	Ref      domain.EntityRef
	Target   domain.Vote
	Restored domain.Tally
	Message  string
	Err      error
}

// Notifier surfaces rollback notices to the user.
type Notifier interface {
	Notify(Notice)
}

type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

type discardNotifier struct{}

func (discardNotifier) Notify(Notice) {}

// Outcome labels a settled vote request.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Recorder receives reconciler telemetry. The metrics adapter implements it.
type Recorder interface {
	RequestStarted(kind domain.EntityKind)
	RequestSettled(kind domain.EntityKind, outcome Outcome, elapsed time.Duration)
	Coalesced(kind domain.EntityKind)
}

type nopRecorder struct{}

func (nopRecorder) RequestStarted(domain.EntityKind)                          {}
func (nopRecorder) RequestSettled(domain.EntityKind, Outcome, time.Duration) {}
func (nopRecorder) Coalesced(domain.EntityKind)                              {}
