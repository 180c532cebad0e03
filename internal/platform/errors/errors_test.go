package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConstructors_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    *Error
		typ    ErrorType
		status int
	}{
		{"validation", ValidationError("bad title"), TypeValidation, http.StatusBadRequest},
		{"unauthorized", UnauthorizedError("missing token"), TypeUnauthorized, http.StatusUnauthorized},
		{"forbidden", ForbiddenError("not the owner"), TypeForbidden, http.StatusForbidden},
		{"not found", NotFoundError("thread not found"), TypeNotFound, http.StatusNotFound},
		{"conflict", ConflictError("email taken"), TypeConflict, http.StatusConflict},
		{"rate limited", RateLimitedError("slow down"), TypeRateLimited, http.StatusTooManyRequests},
		{"internal", InternalError("boom", nil), TypeInternal, http.StatusInternalServerError},
		{"external", ExternalError("redis down", nil), TypeExternal, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.err.Type)
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
			assert.NotNil(t, tt.err.Context)
			assert.Contains(t, tt.err.Error(), string(tt.typ))
		})
	}
}

func TestInternalError_WrapsCause(t *testing.T) {
	cause := fmt.Errorf("database connection failed")
	err := InternalError("failed to save thread", cause)

	assert.Equal(t, cause, err.Cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "failed to save thread")
	assert.Contains(t, err.Error(), "database connection failed")
}

func TestInternalErrorWithoutCause(t *testing.T) {
	err := InternalError("something went wrong", nil)
	assert.NotContains(t, err.Error(), "<nil>")
}

func TestUnknownType_DefaultsTo500(t *testing.T) {
	err := &Error{Type: "mystery", Message: "?"}
	assert.Equal(t, http.StatusInternalServerError, err.HTTPStatus())
}

func TestWithField_Chains(t *testing.T) {
	err := NotFoundError("comment not found").
		WithField("thread_id", "t1").
		WithField("comment_id", "c1")

	assert.Equal(t, "t1", err.Context["thread_id"])
	assert.Equal(t, "c1", err.Context["comment_id"])
}

func TestWithField_NilContext(t *testing.T) {
	err := &Error{Type: TypeValidation, Message: "x"}
	err.WithField("k", "v")
	assert.Equal(t, "v", err.Context["k"])
}

func TestToResponse_HidesCause(t *testing.T) {
	err := InternalError("failed to load threads", errors.New("pq: secret detail")).WithField("start", 0)
	resp := err.ToResponse()

	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "failed to load threads", resp.Message)
	assert.Equal(t, TypeInternal, resp.Type)
	assert.Equal(t, 0, resp.Context["start"])
	assert.NotContains(t, resp.Message, "secret")
}

func TestAsStructuredError(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, AsStructuredError(nil))
	})

	t.Run("already structured", func(t *testing.T) {
		orig := ConflictError("dup")
		assert.Same(t, orig, AsStructuredError(orig))
	})

	t.Run("wrapped structured", func(t *testing.T) {
		orig := NotFoundError("thread not found")
		wrapped := fmt.Errorf("handler: %w", orig)
		assert.Same(t, orig, AsStructuredError(wrapped))
	})

	t.Run("plain error", func(t *testing.T) {
		plain := errors.New("plain")
		got := AsStructuredError(plain)
		require.NotNil(t, got)
		assert.Equal(t, TypeInternal, got.Type)
		assert.ErrorIs(t, got, plain)
	})
}
