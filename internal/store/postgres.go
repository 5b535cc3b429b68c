package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"pixelplaza/server/internal/identity"
)

// Postgres adapts the platform's relational store to the narrow read ports
// the realtime core consumes: account-by-id and follower-ids-by-user. It
// never writes; the tables are owned by the web tier.
type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping postgres: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}

// AccountByID implements identity.Lookup.
func (p *Postgres) AccountByID(ctx context.Context, id string) (identity.Account, error) {
	const query = `
		SELECT id, display_name, char_type, level, rank_title, avatar_url, exp_points, status
		FROM users
		WHERE id = $1`

	var account identity.Account
	err := p.pool.QueryRow(ctx, query, id).Scan(
		&account.ID,
		&account.DisplayName,
		&account.CharType,
		&account.Level,
		&account.RankTitle,
		&account.AvatarURL,
		&account.ExpPoints,
		&account.Status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return identity.Account{}, identity.ErrAccountNotFound
	}
	if err != nil {
		return identity.Account{}, fmt.Errorf("store: account %s: %w", id, err)
	}
	return account, nil
}

// Followers implements the follower-graph read port.
func (p *Postgres) Followers(ctx context.Context, userID string) ([]string, error) {
	const query = `
		SELECT follower_id
		FROM follows
		WHERE followee_id = $1`

	rows, err := p.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("store: followers of %s: %w", userID, err)
	}
	defer rows.Close()

	var followerIDs []string
	for rows.Next() {
		var followerID string
		if err := rows.Scan(&followerID); err != nil {
			return nil, fmt.Errorf("store: followers of %s: %w", userID, err)
		}
		followerIDs = append(followerIDs, followerID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: followers of %s: %w", userID, err)
	}
	return followerIDs, nil
}
