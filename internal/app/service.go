package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/threadpulse/internal/adapter/metrics"
	"github.com/pscheid92/threadpulse/internal/domain"
	apperrors "github.com/pscheid92/threadpulse/internal/platform/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	maxNameLength    = 100
	maxTitleLength   = 200
	maxBodyLength    = 20000
	maxCommentLength = 5000
	maxCategoryLen   = 50
	maxPasswordBytes = 72 // bcrypt input limit

	defaultLeaderboardSize = 20
	maxLeaderboardSize     = 100
)

// Config holds the tunables of the service.
type Config struct {
	SessionTTL        time.Duration
	PasswordMinLength int
}

// Deps groups the collaborators of the service. Limiter and VoteMetrics may be nil.
type Deps struct {
	Users       domain.UserRepository
	Threads     domain.ThreadRepository
	Comments    domain.CommentRepository
	Votes       domain.VoteRepository
	Sessions    domain.SessionStore
	Limiter     domain.VoteLimiter
	VoteMetrics *metrics.VoteMetrics
	Clock       clockwork.Clock
}

// Service is the application layer. It is the only component that references
// multiple domain components.
type Service struct {
	users       domain.UserRepository
	threads     domain.ThreadRepository
	comments    domain.CommentRepository
	votes       domain.VoteRepository
	sessions    domain.SessionStore
	limiter     domain.VoteLimiter
	voteMetrics *metrics.VoteMetrics
	clock       clockwork.Clock
	cfg         Config
}

func NewService(deps Deps, cfg Config) *Service {
	clock := deps.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if cfg.PasswordMinLength < 1 {
		cfg.PasswordMinLength = 8
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}
	return &Service{
		users:       deps.Users,
		threads:     deps.Threads,
		comments:    deps.Comments,
		votes:       deps.Votes,
		sessions:    deps.Sessions,
		limiter:     deps.Limiter,
		voteMetrics: deps.VoteMetrics,
		clock:       clock,
		cfg:         cfg,
	}
}

// Register creates an account. The password is stored as a bcrypt hash.
func (s *Service) Register(ctx context.Context, reg domain.Registration) (*domain.User, error) {
	name := strings.TrimSpace(reg.Name)
	email := strings.TrimSpace(reg.Email)

	switch {
	case name == "":
		return nil, apperrors.ValidationError("name is required")
	case utf8.RuneCountInString(name) > maxNameLength:
		return nil, apperrors.ValidationError(fmt.Sprintf("name must be at most %d characters", maxNameLength))
	case !validEmail(email):
		return nil, apperrors.ValidationError("email is invalid")
	case len(reg.Password) < s.cfg.PasswordMinLength:
		return nil, apperrors.ValidationError(fmt.Sprintf("password must be at least %d characters", s.cfg.PasswordMinLength))
	case len(reg.Password) > maxPasswordBytes:
		return nil, apperrors.ValidationError(fmt.Sprintf("password must be at most %d bytes", maxPasswordBytes))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, name, email, string(hash))
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "User registered", "user_id", user.ID)
	return user, nil
}

// Login checks credentials and issues a bearer token.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (string, error) {
	user, err := s.users.GetByEmail(ctx, strings.TrimSpace(creds.Email))
	if errors.Is(err, domain.ErrUserNotFound) {
		return "", domain.ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(creds.Password)); err != nil {
		return "", domain.ErrInvalidCredentials
	}

	token, err := s.sessions.Create(ctx, user.ID, s.cfg.SessionTTL)
	if err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "User logged in", "user_id", user.ID)
	return token, nil
}

func (s *Service) Logout(ctx context.Context, token string) error {
	return s.sessions.Revoke(ctx, token)
}

// Authenticate resolves a bearer token to its user.
func (s *Service) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	userID, err := s.sessions.Resolve(ctx, token)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		// Account vanished behind a live token.
		return nil, domain.ErrUnauthenticated
	}
	return user, err
}

func (s *Service) ListThreads(ctx context.Context, params domain.ListParams, viewer *domain.User) (*domain.Page[domain.Thread], error) {
	return s.threads.List(ctx, params, viewerID(viewer))
}

func (s *Service) CreateThread(ctx context.Context, author *domain.User, in domain.NewThread) (*domain.Thread, error) {
	if author == nil {
		return nil, domain.ErrUnauthenticated
	}
	in, err := validThread(in)
	if err != nil {
		return nil, err
	}

	thread, err := s.threads.Create(ctx, author.ID, in)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Thread created", "thread_id", thread.ID, "user_id", author.ID)
	return thread, nil
}

// GetThread returns the thread with its first page of comments.
func (s *Service) GetThread(ctx context.Context, threadID string, viewer *domain.User) (*domain.ThreadDetail, error) {
	thread, err := s.threads.Get(ctx, threadID, viewerID(viewer))
	if err != nil {
		return nil, err
	}
	page, err := s.comments.List(ctx, threadID, domain.ListParams{Length: domain.MaxPageLength}, viewerID(viewer))
	if err != nil {
		return nil, err
	}
	return &domain.ThreadDetail{Thread: *thread, Comments: page.Data}, nil
}

// DeleteThread removes a thread. Only its author may do so.
func (s *Service) DeleteThread(ctx context.Context, actor *domain.User, threadID string) error {
	if actor == nil {
		return domain.ErrUnauthenticated
	}
	thread, err := s.threads.Get(ctx, threadID, "")
	if err != nil {
		return err
	}
	if thread.UserID != actor.ID {
		return domain.ErrForbidden
	}
	if err := s.threads.Delete(ctx, threadID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Thread deleted", "thread_id", threadID, "user_id", actor.ID)
	return nil
}

// UpdateThread replaces title, body and category. Only the author may edit.
func (s *Service) UpdateThread(ctx context.Context, actor *domain.User, threadID string, in domain.NewThread) (*domain.Thread, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	thread, err := s.threads.Get(ctx, threadID, "")
	if err != nil {
		return nil, err
	}
	if thread.UserID != actor.ID {
		return nil, domain.ErrForbidden
	}
	in, err = validThread(in)
	if err != nil {
		return nil, err
	}
	if err := s.threads.Update(ctx, threadID, in); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "Thread updated", "thread_id", threadID, "user_id", actor.ID)
	return s.threads.Get(ctx, threadID, actor.ID)
}

func validThread(in domain.NewThread) (domain.NewThread, error) {
	in = in.Normalize()
	switch {
	case in.Title == "":
		return in, apperrors.ValidationError("title is required")
	case utf8.RuneCountInString(in.Title) > maxTitleLength:
		return in, apperrors.ValidationError(fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	case in.Body == "":
		return in, apperrors.ValidationError("body is required")
	case utf8.RuneCountInString(in.Body) > maxBodyLength:
		return in, apperrors.ValidationError(fmt.Sprintf("body must be at most %d characters", maxBodyLength))
	case utf8.RuneCountInString(in.Category) > maxCategoryLen:
		return in, apperrors.ValidationError(fmt.Sprintf("category must be at most %d characters", maxCategoryLen))
	}
	if in.Category == "" {
		in.Category = "general"
	}
	return in, nil
}

func (s *Service) ListComments(ctx context.Context, threadID string, params domain.ListParams, viewer *domain.User) (*domain.Page[domain.Comment], error) {
	return s.comments.List(ctx, threadID, params, viewerID(viewer))
}

func (s *Service) CreateComment(ctx context.Context, author *domain.User, threadID, content string) (*domain.Comment, error) {
	if author == nil {
		return nil, domain.ErrUnauthenticated
	}
	content, err := validContent(content)
	if err != nil {
		return nil, err
	}
	return s.comments.Create(ctx, threadID, author.ID, content)
}

// UpdateComment replaces the comment's content. Only its author may edit.
func (s *Service) UpdateComment(ctx context.Context, actor *domain.User, threadID, commentID, content string) (*domain.Comment, error) {
	if _, err := s.ownComment(ctx, actor, threadID, commentID); err != nil {
		return nil, err
	}
	content, err := validContent(content)
	if err != nil {
		return nil, err
	}
	if err := s.comments.Update(ctx, threadID, commentID, content); err != nil {
		return nil, err
	}
	return s.comments.Get(ctx, threadID, commentID, actor.ID)
}

// DeleteComment removes the comment and its votes. Only its author may do so.
func (s *Service) DeleteComment(ctx context.Context, actor *domain.User, threadID, commentID string) error {
	if _, err := s.ownComment(ctx, actor, threadID, commentID); err != nil {
		return err
	}
	if err := s.comments.Delete(ctx, threadID, commentID); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Comment deleted", "thread_id", threadID, "comment_id", commentID, "user_id", actor.ID)
	return nil
}

func (s *Service) ownComment(ctx context.Context, actor *domain.User, threadID, commentID string) (*domain.Comment, error) {
	if actor == nil {
		return nil, domain.ErrUnauthenticated
	}
	c, err := s.comments.Get(ctx, threadID, commentID, "")
	if err != nil {
		return nil, err
	}
	if c.UserID != actor.ID {
		return nil, domain.ErrForbidden
	}
	return c, nil
}

func validContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	switch {
	case content == "":
		return "", apperrors.ValidationError("content is required")
	case utf8.RuneCountInString(content) > maxCommentLength:
		return "", apperrors.ValidationError(fmt.Sprintf("content must be at most %d characters", maxCommentLength))
	}
	return content, nil
}

// CastVote stores the voter's vote on ref and returns the recounted totals
// together with the voter's resulting vote.
func (s *Service) CastVote(ctx context.Context, voter *domain.User, ref domain.EntityRef, target domain.Vote) (domain.VoteResult, error) {
	if voter == nil {
		return domain.VoteResult{}, domain.ErrUnauthenticated
	}
	if err := ref.Validate(); err != nil {
		s.rejected("invalid")
		return domain.VoteResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidVote, err)
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, voter.ID)
		if err != nil {
			// Fail open: a limiter outage must not block voting.
			slog.WarnContext(ctx, "Vote limiter unavailable", "user_id", voter.ID, "error", err)
		} else if !allowed {
			s.rejected("rate_limited")
			return domain.VoteResult{}, domain.ErrVoteRateLimited
		}
	}

	start := s.clock.Now()
	totals, err := s.votes.Cast(ctx, voter.ID, ref, target)
	if s.voteMetrics != nil {
		s.voteMetrics.StoreDuration.Observe(s.clock.Since(start).Seconds())
	}
	if err != nil {
		if errors.Is(err, domain.ErrThreadNotFound) || errors.Is(err, domain.ErrCommentNotFound) {
			s.rejected("not_found")
		}
		return domain.VoteResult{}, err
	}

	if s.voteMetrics != nil {
		s.voteMetrics.VotesCast.WithLabelValues(string(ref.Kind), target.String()).Inc()
	}
	slog.DebugContext(ctx, "Vote stored",
		"entity", ref.Key(),
		"user_id", voter.ID,
		"target", target.String(),
		"up", totals.Up,
		"down", totals.Down)

	return domain.NewVoteResult(ref, voter.ID, target, totals), nil
}

func (s *Service) Leaderboard(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = defaultLeaderboardSize
	}
	limit = min(limit, maxLeaderboardSize)
	return s.users.Leaderboard(ctx, limit)
}

func (s *Service) rejected(reason string) {
	if s.voteMetrics != nil {
		s.voteMetrics.VotesRejected.WithLabelValues(reason).Inc()
	}
}

func viewerID(u *domain.User) string {
	if u == nil {
		return ""
	}
	return u.ID
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
