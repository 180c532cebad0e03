package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/threadpulse/internal/domain"
)

// threadSelect must match the Scan order in scanThread. $1 is always the
// viewer id ("" for anonymous reads).
const threadSelect = `
	SELECT t.id, t.title, t.body, t.category, t.created_at, t.updated_at,
	       t.user_id, u.name, u.avatar,
	       t.total_comments, t.total_up_votes, t.total_down_votes,
	       COALESCE(v.vote_type = 'up', false), COALESCE(v.vote_type = 'down', false)
	FROM threads t
	JOIN users u ON u.id = t.user_id
	LEFT JOIN thread_votes v ON v.thread_id = t.id AND v.user_id = $1`

type ThreadRepo struct {
	pool *pgxpool.Pool
}

var _ domain.ThreadRepository = (*ThreadRepo)(nil)

func NewThreadRepo(pool *pgxpool.Pool) *ThreadRepo {
	return &ThreadRepo{pool: pool}
}

func (r *ThreadRepo) Create(ctx context.Context, userID string, t domain.NewThread) (*domain.Thread, error) {
	id := uuid.NewString()
	_, err := r.pool.Exec(ctx, `
		INSERT INTO threads (id, title, body, category, user_id)
		VALUES ($1, $2, $3, $4, $5)`,
		id, t.Title, t.Body, t.Category, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}
	return r.Get(ctx, id, userID)
}

func (r *ThreadRepo) Get(ctx context.Context, threadID, viewerID string) (*domain.Thread, error) {
	row := r.pool.QueryRow(ctx, threadSelect+` WHERE t.id = $2`, viewerID, threadID)
	thread, err := scanThread(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get thread: %w", err)
	}
	return thread, nil
}

func (r *ThreadRepo) List(ctx context.Context, params domain.ListParams, viewerID string) (*domain.Page[domain.Thread], error) {
	params = params.Normalize(defaultThreadSort)
	pattern := likePattern(params.Search)

	var total, filtered int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(*),
		       count(*) FILTER (WHERE $1 = '' OR title ILIKE $1 OR body ILIKE $1 OR category ILIKE $1)
		FROM threads`, pattern).Scan(&total, &filtered)
	if err != nil {
		return nil, fmt.Errorf("failed to count threads: %w", err)
	}

	rows, err := r.pool.Query(ctx, threadSelect+`
		WHERE $2 = '' OR t.title ILIKE $2 OR t.body ILIKE $2 OR t.category ILIKE $2
		ORDER BY `+orderBy(params.Sort, threadSortColumns, defaultThreadSort, "t.id ASC")+`
		LIMIT $3 OFFSET $4`,
		viewerID, pattern, params.Length, params.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}

	threads, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Thread, error) {
		t, err := scanThread(row)
		if err != nil {
			return domain.Thread{}, err
		}
		return *t, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan threads: %w", err)
	}

	return &domain.Page[domain.Thread]{
		Success:         true,
		Draw:            params.Draw,
		RecordsTotal:    total,
		RecordsFiltered: filtered,
		Data:            threads,
	}, nil
}

func (r *ThreadRepo) Update(ctx context.Context, threadID string, t domain.NewThread) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE threads
		SET title = $2, body = $3, category = $4, updated_at = now()
		WHERE id = $1`,
		threadID, t.Title, t.Body, t.Category)
	if err != nil {
		return fmt.Errorf("failed to update thread: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrThreadNotFound
	}
	return nil
}

func (r *ThreadRepo) Delete(ctx context.Context, threadID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM threads WHERE id = $1`, threadID)
	if err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrThreadNotFound
	}
	return nil
}

func scanThread(row pgx.Row) (*domain.Thread, error) {
	var t domain.Thread
	err := row.Scan(
		&t.ID, &t.Title, &t.Body, &t.Category, &t.CreatedAt, &t.UpdatedAt,
		&t.UserID, &t.User.Name, &t.User.Avatar,
		&t.TotalComments, &t.TotalUpVotes, &t.TotalDownVotes,
		&t.UpVotedByMe, &t.DownVotedByMe,
	)
	if err != nil {
		return nil, err
	}
	t.User.ID = t.UserID
	return &t, nil
}
