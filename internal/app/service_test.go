package app

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/pscheid92/threadpulse/internal/adapter/metrics"
	"github.com/pscheid92/threadpulse/internal/domain"
	apperrors "github.com/pscheid92/threadpulse/internal/platform/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func requireValidation(t *testing.T, err error) {
	t.Helper()
	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperrors.TypeValidation, appErr.Type)
}

// --- Accounts ---

func TestRegister_HashesPassword(t *testing.T) {
	d := newTestDeps()
	var storedHash string
	d.users.createFn = func(_ context.Context, name, email, hash string) (*domain.User, error) {
		assert.Equal(t, "Ada", name)
		assert.Equal(t, "ada@example.com", email)
		storedHash = hash
		return &domain.User{ID: "u1", Name: name, Email: email}, nil
	}

	user, err := d.service().Register(context.Background(), domain.Registration{
		Name: "  Ada ", Email: " ada@example.com", Password: "correct horse",
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.NotEqual(t, "correct horse", storedHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(storedHash), []byte("correct horse")))
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		reg  domain.Registration
	}{
		{"missing name", domain.Registration{Email: "a@example.com", Password: "longenough"}},
		{"long name", domain.Registration{Name: strings.Repeat("x", 101), Email: "a@example.com", Password: "longenough"}},
		{"bad email", domain.Registration{Name: "a", Email: "not-an-email", Password: "longenough"}},
		{"display name email", domain.Registration{Name: "a", Email: "A <a@example.com>", Password: "longenough"}},
		{"short password", domain.Registration{Name: "a", Email: "a@example.com", Password: "short"}},
		{"password over bcrypt limit", domain.Registration{Name: "a", Email: "a@example.com", Password: strings.Repeat("x", 80)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			d.users.createFn = func(context.Context, string, string, string) (*domain.User, error) {
				t.Fatal("repository must not be called")
				return nil, nil
			}
			_, err := d.service().Register(context.Background(), tt.reg)
			requireValidation(t, err)
		})
	}
}

func TestRegister_EmailTaken(t *testing.T) {
	d := newTestDeps()
	d.users.createFn = func(context.Context, string, string, string) (*domain.User, error) {
		return nil, domain.ErrEmailTaken
	}
	_, err := d.service().Register(context.Background(), domain.Registration{
		Name: "a", Email: "a@example.com", Password: "longenough",
	})
	assert.ErrorIs(t, err, domain.ErrEmailTaken)
}

func hashed(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestLogin(t *testing.T) {
	d := newTestDeps()
	hash := hashed(t, "right-password")
	d.users.getByEmailFn = func(_ context.Context, email string) (*domain.User, error) {
		if email == "a@example.com" {
			return &domain.User{ID: "u1", PasswordHash: hash}, nil
		}
		return nil, domain.ErrUserNotFound
	}
	var ttl time.Duration
	d.sessions.createFn = func(_ context.Context, userID string, got time.Duration) (string, error) {
		ttl = got
		return "tok-" + userID, nil
	}
	svc := d.service()

	token, err := svc.Login(context.Background(), domain.Credentials{Email: "a@example.com", Password: "right-password"})
	require.NoError(t, err)
	assert.Equal(t, "tok-u1", token)
	assert.Equal(t, time.Hour, ttl)

	_, err = svc.Login(context.Background(), domain.Credentials{Email: "a@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), domain.Credentials{Email: "nobody@example.com", Password: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidCredentials, "unknown email looks like a bad password")
}

func TestLogin_StoreErrorPropagates(t *testing.T) {
	d := newTestDeps()
	d.users.getByEmailFn = func(context.Context, string) (*domain.User, error) {
		return nil, errors.New("db down")
	}
	_, err := d.service().Login(context.Background(), domain.Credentials{Email: "a@example.com"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrInvalidCredentials)
}

func TestAuthenticate(t *testing.T) {
	d := newTestDeps()
	d.sessions.resolveFn = func(_ context.Context, token string) (string, error) {
		switch token {
		case "good":
			return "u1", nil
		case "orphan":
			return "gone", nil
		}
		return "", domain.ErrUnauthenticated
	}
	d.users.getByIDFn = func(_ context.Context, id string) (*domain.User, error) {
		if id == "u1" {
			return &domain.User{ID: "u1"}, nil
		}
		return nil, domain.ErrUserNotFound
	}
	svc := d.service()

	user, err := svc.Authenticate(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)

	_, err = svc.Authenticate(context.Background(), "bad")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = svc.Authenticate(context.Background(), "orphan")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestLogout_RevokesToken(t *testing.T) {
	d := newTestDeps()
	var revoked string
	d.sessions.revokeFn = func(_ context.Context, token string) error {
		revoked = token
		return nil
	}
	require.NoError(t, d.service().Logout(context.Background(), "tok"))
	assert.Equal(t, "tok", revoked)
}

// --- Threads and comments ---

func TestCreateThread_NormalizesInput(t *testing.T) {
	d := newTestDeps()
	var got domain.NewThread
	d.threads.createFn = func(_ context.Context, userID string, in domain.NewThread) (*domain.Thread, error) {
		assert.Equal(t, "u1", userID)
		got = in
		return &domain.Thread{ID: "t1"}, nil
	}

	_, err := d.service().CreateThread(context.Background(), &domain.User{ID: "u1"}, domain.NewThread{
		Title: "  Hello ", Body: " world ", Category: " ",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.NewThread{Title: "Hello", Body: "world", Category: "general"}, got)
}

func TestCreateThread_Validation(t *testing.T) {
	svc := newTestDeps().service()
	author := &domain.User{ID: "u1"}

	_, err := svc.CreateThread(context.Background(), author, domain.NewThread{Body: "b"})
	requireValidation(t, err)
	_, err = svc.CreateThread(context.Background(), author, domain.NewThread{Title: "t"})
	requireValidation(t, err)
	_, err = svc.CreateThread(context.Background(), author, domain.NewThread{Title: strings.Repeat("t", 201), Body: "b"})
	requireValidation(t, err)

	_, err = svc.CreateThread(context.Background(), nil, domain.NewThread{Title: "t", Body: "b"})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestGetThread_IncludesComments(t *testing.T) {
	d := newTestDeps()
	d.threads.getFn = func(_ context.Context, id, viewer string) (*domain.Thread, error) {
		assert.Equal(t, "viewer", viewer)
		return &domain.Thread{ID: id, Title: "T"}, nil
	}
	d.comments.listFn = func(_ context.Context, id string, params domain.ListParams, viewer string) (*domain.Page[domain.Comment], error) {
		assert.Equal(t, domain.MaxPageLength, params.Length)
		return &domain.Page[domain.Comment]{Data: []domain.Comment{{ID: "c1", ThreadID: id}}}, nil
	}

	detail, err := d.service().GetThread(context.Background(), "t1", &domain.User{ID: "viewer"})
	require.NoError(t, err)
	assert.Equal(t, "T", detail.Title)
	require.Len(t, detail.Comments, 1)
	assert.Equal(t, "c1", detail.Comments[0].ID)
}

func TestGetThread_AnonymousViewer(t *testing.T) {
	d := newTestDeps()
	d.threads.getFn = func(_ context.Context, id, viewer string) (*domain.Thread, error) {
		assert.Empty(t, viewer)
		return &domain.Thread{ID: id}, nil
	}
	_, err := d.service().GetThread(context.Background(), "t1", nil)
	require.NoError(t, err)
}

func TestDeleteThread_OwnerOnly(t *testing.T) {
	d := newTestDeps()
	d.threads.getFn = func(_ context.Context, id, _ string) (*domain.Thread, error) {
		return &domain.Thread{ID: id, UserID: "owner"}, nil
	}
	deleted := 0
	d.threads.deleteFn = func(context.Context, string) error {
		deleted++
		return nil
	}
	svc := d.service()

	err := svc.DeleteThread(context.Background(), &domain.User{ID: "stranger"}, "t1")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Zero(t, deleted)

	require.NoError(t, svc.DeleteThread(context.Background(), &domain.User{ID: "owner"}, "t1"))
	assert.Equal(t, 1, deleted)
}

func TestDeleteThread_NotFound(t *testing.T) {
	err := newTestDeps().service().DeleteThread(context.Background(), &domain.User{ID: "u"}, "missing")
	assert.ErrorIs(t, err, domain.ErrThreadNotFound)
}

func TestCreateComment(t *testing.T) {
	d := newTestDeps()
	svc := d.service()

	c, err := svc.CreateComment(context.Background(), &domain.User{ID: "u1"}, "t1", "  nice  ")
	require.NoError(t, err)
	assert.Equal(t, "nice", c.Content)

	_, err = svc.CreateComment(context.Background(), &domain.User{ID: "u1"}, "t1", "   ")
	requireValidation(t, err)

	_, err = svc.CreateComment(context.Background(), nil, "t1", "hi")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestUpdateThread_OwnerOnly(t *testing.T) {
	d := newTestDeps()
	stored := domain.Thread{ID: "t1", UserID: "owner", Title: "old", Body: "old body", Category: "general"}
	d.threads.getFn = func(_ context.Context, id, _ string) (*domain.Thread, error) {
		if id != stored.ID {
			return nil, domain.ErrThreadNotFound
		}
		cp := stored
		return &cp, nil
	}
	var written []domain.NewThread
	d.threads.updateFn = func(_ context.Context, _ string, in domain.NewThread) error {
		written = append(written, in)
		stored.Title, stored.Body, stored.Category = in.Title, in.Body, in.Category
		return nil
	}
	svc := d.service()
	edit := domain.NewThread{Title: "  new  ", Body: "new body"}

	_, err := svc.UpdateThread(context.Background(), &domain.User{ID: "stranger"}, "t1", edit)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.UpdateThread(context.Background(), nil, "t1", edit)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = svc.UpdateThread(context.Background(), &domain.User{ID: "owner"}, "missing", edit)
	assert.ErrorIs(t, err, domain.ErrThreadNotFound)

	_, err = svc.UpdateThread(context.Background(), &domain.User{ID: "owner"}, "t1", domain.NewThread{Title: "x"})
	requireValidation(t, err)
	assert.Empty(t, written)

	got, err := svc.UpdateThread(context.Background(), &domain.User{ID: "owner"}, "t1", edit)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
	require.Len(t, written, 1)
	assert.Equal(t, "general", written[0].Category)
}

func TestUpdateComment_OwnerOnly(t *testing.T) {
	d := newTestDeps()
	content := "old"
	d.comments.getFn = func(_ context.Context, threadID, commentID, _ string) (*domain.Comment, error) {
		if threadID != "t1" || commentID != "c1" {
			return nil, domain.ErrCommentNotFound
		}
		return &domain.Comment{ID: "c1", ThreadID: "t1", UserID: "owner", Content: content}, nil
	}
	updates := 0
	d.comments.updateFn = func(_ context.Context, _, _, c string) error {
		updates++
		content = c
		return nil
	}
	svc := d.service()

	_, err := svc.UpdateComment(context.Background(), &domain.User{ID: "stranger"}, "t1", "c1", "mine now")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.UpdateComment(context.Background(), &domain.User{ID: "owner"}, "t2", "c1", "moved")
	assert.ErrorIs(t, err, domain.ErrCommentNotFound)

	_, err = svc.UpdateComment(context.Background(), &domain.User{ID: "owner"}, "t1", "c1", "  ")
	requireValidation(t, err)
	assert.Zero(t, updates)

	got, err := svc.UpdateComment(context.Background(), &domain.User{ID: "owner"}, "t1", "c1", " fixed ")
	require.NoError(t, err)
	assert.Equal(t, "fixed", got.Content)
	assert.Equal(t, 1, updates)
}

func TestDeleteComment_OwnerOnly(t *testing.T) {
	d := newTestDeps()
	d.comments.getFn = func(_ context.Context, threadID, commentID, _ string) (*domain.Comment, error) {
		return &domain.Comment{ID: commentID, ThreadID: threadID, UserID: "owner"}, nil
	}
	var deleted []string
	d.comments.deleteFn = func(_ context.Context, threadID, commentID string) error {
		deleted = append(deleted, threadID+"/"+commentID)
		return nil
	}
	svc := d.service()

	err := svc.DeleteComment(context.Background(), &domain.User{ID: "stranger"}, "t1", "c1")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	err = svc.DeleteComment(context.Background(), nil, "t1", "c1")
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
	assert.Empty(t, deleted)

	require.NoError(t, svc.DeleteComment(context.Background(), &domain.User{ID: "owner"}, "t1", "c1"))
	assert.Equal(t, []string{"t1/c1"}, deleted)
}

// --- Votes ---

func TestCastVote_ReturnsTotalsAndFlags(t *testing.T) {
	d := newTestDeps()
	d.votes.castFn = func(_ context.Context, userID string, ref domain.EntityRef, target domain.Vote) (domain.VoteTotals, error) {
		assert.Equal(t, "u1", userID)
		assert.Equal(t, domain.VoteDown, target)
		return domain.VoteTotals{Up: 3, Down: 2, Comments: 7}, nil
	}

	res, err := d.service().CastVote(context.Background(), &domain.User{ID: "u1"}, domain.ThreadRef("t1"), domain.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, 3, *res.TotalUpVotes)
	assert.Equal(t, 2, *res.TotalDownVotes)
	assert.Equal(t, 7, *res.TotalComments)
	mine, ok := res.Mine()
	assert.True(t, ok)
	assert.Equal(t, domain.VoteDown, mine)
}

func TestCastVote_CommentHasNoCommentTotal(t *testing.T) {
	d := newTestDeps()
	d.votes.castFn = func(context.Context, string, domain.EntityRef, domain.Vote) (domain.VoteTotals, error) {
		return domain.VoteTotals{Up: 1}, nil
	}
	res, err := d.service().CastVote(context.Background(), &domain.User{ID: "u1"}, domain.CommentRef("t1", "c1"), domain.VoteNone)
	require.NoError(t, err)
	assert.Nil(t, res.TotalComments)
	assert.Equal(t, "c1", res.CommentID)
	mine, _ := res.Mine()
	assert.Equal(t, domain.VoteNone, mine)
}

func TestCastVote_RateLimited(t *testing.T) {
	d := newTestDeps()
	d.limiter.allowFn = func(context.Context, string) (bool, error) { return false, nil }
	reg := prometheus.NewRegistry()
	vm := metrics.NewVoteMetrics(reg)
	svc := NewService(Deps{
		Users: d.users, Threads: d.threads, Comments: d.comments,
		Votes: d.votes, Sessions: d.sessions, Limiter: d.limiter, VoteMetrics: vm,
	}, Config{})

	_, err := svc.CastVote(context.Background(), &domain.User{ID: "u1"}, domain.ThreadRef("t1"), domain.VoteUp)
	assert.ErrorIs(t, err, domain.ErrVoteRateLimited)
	assert.Equal(t, 1.0, testutil.ToFloat64(vm.VotesRejected.WithLabelValues("rate_limited")))
}

func TestCastVote_LimiterOutageFailsOpen(t *testing.T) {
	d := newTestDeps()
	d.limiter.allowFn = func(context.Context, string) (bool, error) { return false, errors.New("redis down") }
	d.votes.castFn = func(context.Context, string, domain.EntityRef, domain.Vote) (domain.VoteTotals, error) {
		return domain.VoteTotals{Up: 1}, nil
	}
	_, err := d.service().CastVote(context.Background(), &domain.User{ID: "u1"}, domain.ThreadRef("t1"), domain.VoteUp)
	assert.NoError(t, err)
}

func TestCastVote_Rejections(t *testing.T) {
	svc := newTestDeps().service()

	_, err := svc.CastVote(context.Background(), nil, domain.ThreadRef("t1"), domain.VoteUp)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)

	_, err = svc.CastVote(context.Background(), &domain.User{ID: "u1"}, domain.EntityRef{Kind: domain.KindComment, ThreadID: "t1"}, domain.VoteUp)
	assert.ErrorIs(t, err, domain.ErrInvalidVote)
}

func TestCastVote_RecordsMetrics(t *testing.T) {
	d := newTestDeps()
	d.votes.castFn = func(context.Context, string, domain.EntityRef, domain.Vote) (domain.VoteTotals, error) {
		return domain.VoteTotals{Up: 1}, nil
	}
	vm := metrics.NewVoteMetrics(prometheus.NewRegistry())
	svc := NewService(Deps{Votes: d.votes, VoteMetrics: vm}, Config{})

	_, err := svc.CastVote(context.Background(), &domain.User{ID: "u1"}, domain.ThreadRef("t1"), domain.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(vm.VotesCast.WithLabelValues("thread", "up")))
}

func TestLeaderboard_ClampsLimit(t *testing.T) {
	d := newTestDeps()
	var got []int
	d.users.leaderboardFn = func(_ context.Context, limit int) ([]domain.LeaderboardEntry, error) {
		got = append(got, limit)
		return nil, nil
	}
	svc := d.service()
	for _, limit := range []int{0, 5, 1000} {
		_, err := svc.Leaderboard(context.Background(), limit)
		require.NoError(t, err)
	}
	assert.Equal(t, []int{20, 5, 100}, got)
}
