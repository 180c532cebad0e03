package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pscheid92/threadpulse/internal/domain"
)

// voteStatements holds the per-table SQL for one entity kind. Parameters:
// lock($1=entity, $2=thread), store($1=entity, $2=user, $3=vote_type),
// remove($1=entity, $2=user), recount($1=entity).
type voteStatements struct {
	lock     string
	store    string
	remove   string
	recount  string
	notFound error
}

var threadVoteSQL = voteStatements{
	lock: `SELECT 1 FROM threads WHERE id = $1 AND id = $2 FOR UPDATE`,
	store: `
		INSERT INTO thread_votes (thread_id, user_id, vote_type) VALUES ($1, $2, $3)
		ON CONFLICT (thread_id, user_id) DO UPDATE SET vote_type = EXCLUDED.vote_type, updated_at = now()`,
	remove: `DELETE FROM thread_votes WHERE thread_id = $1 AND user_id = $2`,
	recount: `
		UPDATE threads SET
			total_up_votes   = (SELECT count(*) FROM thread_votes WHERE thread_id = $1 AND vote_type = 'up'),
			total_down_votes = (SELECT count(*) FROM thread_votes WHERE thread_id = $1 AND vote_type = 'down')
		WHERE id = $1
		RETURNING total_up_votes, total_down_votes, total_comments`,
	notFound: domain.ErrThreadNotFound,
}

var commentVoteSQL = voteStatements{
	lock: `SELECT 1 FROM comments WHERE id = $1 AND thread_id = $2 FOR UPDATE`,
	store: `
		INSERT INTO comment_votes (comment_id, user_id, vote_type) VALUES ($1, $2, $3)
		ON CONFLICT (comment_id, user_id) DO UPDATE SET vote_type = EXCLUDED.vote_type, updated_at = now()`,
	remove: `DELETE FROM comment_votes WHERE comment_id = $1 AND user_id = $2`,
	recount: `
		UPDATE comments SET
			total_up_votes   = (SELECT count(*) FROM comment_votes WHERE comment_id = $1 AND vote_type = 'up'),
			total_down_votes = (SELECT count(*) FROM comment_votes WHERE comment_id = $1 AND vote_type = 'down')
		WHERE id = $1
		RETURNING total_up_votes, total_down_votes, 0`,
	notFound: domain.ErrCommentNotFound,
}

type VoteRepo struct {
	pool *pgxpool.Pool
}

var _ domain.VoteRepository = (*VoteRepo)(nil)

func NewVoteRepo(pool *pgxpool.Pool) *VoteRepo {
	return &VoteRepo{pool: pool}
}

// Cast stores the user's vote and recounts the entity's totals while holding
// a row lock on it, so concurrent votes never lose an update.
func (r *VoteRepo) Cast(ctx context.Context, userID string, ref domain.EntityRef, target domain.Vote) (domain.VoteTotals, error) {
	if err := ref.Validate(); err != nil {
		return domain.VoteTotals{}, fmt.Errorf("%w: %v", domain.ErrInvalidVote, err)
	}
	sql := threadVoteSQL
	if ref.Kind == domain.KindComment {
		sql = commentVoteSQL
	}
	entityID := ref.ID()

	var totals domain.VoteTotals
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var one int
		err := tx.QueryRow(ctx, sql.lock, entityID, ref.ThreadID).Scan(&one)
		if errors.Is(err, pgx.ErrNoRows) {
			return sql.notFound
		}
		if err != nil {
			return fmt.Errorf("failed to lock %s: %w", ref.Kind, err)
		}

		if target == domain.VoteNone {
			_, err = tx.Exec(ctx, sql.remove, entityID, userID)
		} else {
			_, err = tx.Exec(ctx, sql.store, entityID, userID, target.String())
		}
		if err != nil {
			return fmt.Errorf("failed to store %s vote: %w", ref.Kind, err)
		}

		err = tx.QueryRow(ctx, sql.recount, entityID).Scan(&totals.Up, &totals.Down, &totals.Comments)
		if err != nil {
			return fmt.Errorf("failed to recount %s votes: %w", ref.Kind, err)
		}
		return nil
	})
	if err != nil {
		return domain.VoteTotals{}, err
	}
	return totals, nil
}
