package forumapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
)

// breakerTransport stops calling the API while it keeps failing. Transport
// errors, timeouts and 5xx answers count as failures; client errors and
// requests the caller cancelled do not.
//
// The per-attempt timeout lives here rather than on http.Client: the client
// cancels the request context when its own timer fires, which would look
// the same as the caller cancelling.
type breakerTransport struct {
	base    http.RoundTripper
	timeout time.Duration
	cb      circuitbreaker.CircuitBreaker[*http.Response]
}

func newBreakerTransport(base http.RoundTripper, timeout time.Duration) *breakerTransport {
	cb := circuitbreaker.NewBuilder[*http.Response]().
		WithFailureRateThreshold(0.6, 5, 10*time.Second).
		WithDelay(15 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", "forumapi",
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
		}).
		Build()
	return &breakerTransport{base: base, timeout: timeout, cb: cb}
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.cb.TryAcquirePermit() {
		return nil, fmt.Errorf("%s %s rejected: %w", req.Method, req.URL.Path, circuitbreaker.ErrOpen)
	}

	caller := req.Context()
	ctx, cancel := caller, context.CancelFunc(func() {})
	if t.timeout > 0 {
		ctx, cancel = context.WithTimeout(caller, t.timeout)
	}

	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		cancel()
		if errors.Is(caller.Err(), context.Canceled) {
			// Caller gave up; says nothing about the server.
			t.cb.RecordSuccess()
		} else {
			t.cb.RecordError(err)
		}
		return nil, err
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		t.cb.RecordError(fmt.Errorf("server error: %s", resp.Status))
	} else {
		t.cb.RecordSuccess()
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// cancelOnClose keeps the attempt context alive until the body is consumed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
