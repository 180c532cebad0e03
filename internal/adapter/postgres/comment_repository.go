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

// commentSelect must match the Scan order in scanComment. $1 is the viewer id.
const commentSelect = `
	SELECT c.id, c.thread_id, c.user_id, u.name, u.avatar, c.content,
	       c.created_at, c.updated_at, c.total_up_votes, c.total_down_votes,
	       COALESCE(v.vote_type = 'up', false), COALESCE(v.vote_type = 'down', false)
	FROM comments c
	JOIN users u ON u.id = c.user_id
	LEFT JOIN comment_votes v ON v.comment_id = c.id AND v.user_id = $1`

type CommentRepo struct {
	pool *pgxpool.Pool
}

var _ domain.CommentRepository = (*CommentRepo)(nil)

func NewCommentRepo(pool *pgxpool.Pool) *CommentRepo {
	return &CommentRepo{pool: pool}
}

// Create inserts the comment and recounts the thread's total_comments in the
// same transaction.
func (r *CommentRepo) Create(ctx context.Context, threadID, userID, content string) (*domain.Comment, error) {
	var comment *domain.Comment
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockThread(ctx, tx, threadID); err != nil {
			return err
		}

		id := uuid.NewString()
		if _, err := tx.Exec(ctx, `
			INSERT INTO comments (id, thread_id, user_id, content)
			VALUES ($1, $2, $3, $4)`, id, threadID, userID, content); err != nil {
			return fmt.Errorf("failed to insert comment: %w", err)
		}

		if err := recountComments(ctx, tx, threadID); err != nil {
			return err
		}

		c, err := scanComment(tx.QueryRow(ctx, commentSelect+` WHERE c.id = $2`, userID, id))
		if err != nil {
			return fmt.Errorf("failed to read back comment: %w", err)
		}
		comment = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

func (r *CommentRepo) Get(ctx context.Context, threadID, commentID, viewerID string) (*domain.Comment, error) {
	row := r.pool.QueryRow(ctx, commentSelect+` WHERE c.id = $2 AND c.thread_id = $3`, viewerID, commentID, threadID)
	c, err := scanComment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return c, nil
}

func (r *CommentRepo) List(ctx context.Context, threadID string, params domain.ListParams, viewerID string) (*domain.Page[domain.Comment], error) {
	params = params.Normalize(defaultCommentSort)

	var total int64
	err := r.pool.QueryRow(ctx, `
		SELECT count(c.id)
		FROM threads t LEFT JOIN comments c ON c.thread_id = t.id
		WHERE t.id = $1
		GROUP BY t.id`, threadID).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}

	rows, err := r.pool.Query(ctx, commentSelect+`
		WHERE c.thread_id = $2
		ORDER BY `+orderBy(params.Sort, commentSortColumns, defaultCommentSort, "c.id ASC")+`
		LIMIT $3 OFFSET $4`,
		viewerID, threadID, params.Length, params.Start)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	comments, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Comment, error) {
		c, err := scanComment(row)
		if err != nil {
			return domain.Comment{}, err
		}
		return *c, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan comments: %w", err)
	}

	return &domain.Page[domain.Comment]{
		Success:         true,
		Draw:            params.Draw,
		RecordsTotal:    total,
		RecordsFiltered: total,
		Data:            comments,
	}, nil
}

func (r *CommentRepo) Update(ctx context.Context, threadID, commentID, content string) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE comments SET content = $3, updated_at = now()
		WHERE id = $1 AND thread_id = $2`, commentID, threadID, content)
	if err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCommentNotFound
	}
	return nil
}

// Delete removes the comment with its votes and recounts the thread's
// total_comments in the same transaction.
func (r *CommentRepo) Delete(ctx context.Context, threadID, commentID string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockThread(ctx, tx, threadID); err != nil {
			return err
		}

		tag, err := tx.Exec(ctx, `DELETE FROM comments WHERE id = $1 AND thread_id = $2`, commentID, threadID)
		if err != nil {
			return fmt.Errorf("failed to delete comment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrCommentNotFound
		}

		return recountComments(ctx, tx, threadID)
	})
}

func recountComments(ctx context.Context, tx pgx.Tx, threadID string) error {
	if _, err := tx.Exec(ctx, `
		UPDATE threads
		SET total_comments = (SELECT count(*) FROM comments WHERE thread_id = $1)
		WHERE id = $1`, threadID); err != nil {
		return fmt.Errorf("failed to recount comments: %w", err)
	}
	return nil
}

func lockThread(ctx context.Context, tx pgx.Tx, threadID string) error {
	var one int
	err := tx.QueryRow(ctx, `SELECT 1 FROM threads WHERE id = $1 FOR UPDATE`, threadID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrThreadNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock thread: %w", err)
	}
	return nil
}

func scanComment(row pgx.Row) (*domain.Comment, error) {
	var c domain.Comment
	err := row.Scan(
		&c.ID, &c.ThreadID, &c.UserID, &c.User.Name, &c.User.Avatar, &c.Content,
		&c.CreatedAt, &c.UpdatedAt, &c.TotalUpVotes, &c.TotalDownVotes,
		&c.UpVotedByMe, &c.DownVotedByMe,
	)
	if err != nil {
		return nil, err
	}
	c.User.ID = c.UserID
	return &c, nil
}
