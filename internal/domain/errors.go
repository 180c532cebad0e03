package domain

import (
	"errors"
	"strings"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrThreadNotFound     = errors.New("thread not found")
	ErrCommentNotFound    = errors.New("comment not found")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthenticated    = errors.New("not signed in")
	ErrForbidden          = errors.New("not allowed")
	ErrInvalidVote        = errors.New("invalid vote")
	ErrVoteRateLimited    = errors.New("too many votes, slow down")
)

const fallbackMessage = "An unexpected error occurred"

// ErrorMessage returns text fit for a user-facing notification. Errors that
// carry a server-provided message expose it through a UserMessage method.
func ErrorMessage(err error) string {
	if err == nil {
		return fallbackMessage
	}
	var m interface{ UserMessage() string }
	if errors.As(err, &m) {
		if msg := strings.TrimSpace(m.UserMessage()); msg != "" {
			return msg
		}
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallbackMessage
}
