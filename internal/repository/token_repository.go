package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/X-spec7/book-review-backend/internal/models"
)

var (
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrTokenRevoked is returned by conditional revokes racing on a
	// record that is already revoked. Exactly one caller wins.
	ErrTokenRevoked = errors.New("refresh token already revoked")
)

type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func (r *TokenRepository) Create(ctx context.Context, token models.RefreshToken) error {
	const query = `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, expires_at, revoked, replaced_by, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, NOW()
		)
	`

	_, err := r.pool.Exec(ctx, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.ExpiresAt,
		token.Revoked,
		token.ReplacedBy,
	)
	return err
}

// FindActive returns every unrevoked, unexpired record. Secrets are
// stored only as salted hashes, so there is no lookup by secret; the
// caller hash-verifies against each candidate.
func (r *TokenRepository) FindActive(ctx context.Context, now time.Time) ([]models.RefreshToken, error) {
	const query = `
		SELECT id, user_id, token_hash, expires_at, revoked, replaced_by, created_at
		FROM refresh_tokens
		WHERE revoked = FALSE AND expires_at > $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []models.RefreshToken
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

func (r *TokenRepository) GetByID(ctx context.Context, id string) (models.RefreshToken, error) {
	const query = `
		SELECT id, user_id, token_hash, expires_at, revoked, replaced_by, created_at
		FROM refresh_tokens
		WHERE id = $1
	`

	token, err := scanToken(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.RefreshToken{}, ErrTokenNotFound
		}
		return models.RefreshToken{}, err
	}
	return token, nil
}

// Revoke marks a record revoked if and only if it is not already.
// Revocation never unwinds.
func (r *TokenRepository) Revoke(ctx context.Context, id string) error {
	const query = `
		UPDATE refresh_tokens SET revoked = TRUE
		WHERE id = $1 AND revoked = FALSE
	`

	cmd, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, id); errors.Is(err, ErrTokenNotFound) {
			return ErrTokenNotFound
		}
		return ErrTokenRevoked
	}
	return nil
}

// Rotate atomically revokes the predecessor and inserts its successor in
// one transaction. The conditional revoke guards the race: two rotations
// presenting the same secret serialize on the row, the loser sees zero
// rows updated and gets ErrTokenRevoked with nothing inserted.
func (r *TokenRepository) Rotate(ctx context.Context, predecessorID string, successor models.RefreshToken) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const revokeQuery = `
		UPDATE refresh_tokens SET revoked = TRUE, replaced_by = $2
		WHERE id = $1 AND revoked = FALSE
	`
	cmd, err := tx.Exec(ctx, revokeQuery, predecessorID, successor.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTokenRevoked
	}

	const insertQuery = `
		INSERT INTO refresh_tokens (
			id, user_id, token_hash, expires_at, revoked, replaced_by, created_at
		) VALUES (
			$1, $2, $3, $4, FALSE, NULL, NOW()
		)
	`
	if _, err := tx.Exec(ctx, insertQuery,
		successor.ID,
		successor.UserID,
		successor.TokenHash,
		successor.ExpiresAt,
	); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// DeleteDead removes terminal rows: revoked, or expired before now.
// Housekeeping only; lookups already treat both as invalid.
func (r *TokenRepository) DeleteDead(ctx context.Context, now time.Time) (int64, error) {
	const query = `
		DELETE FROM refresh_tokens
		WHERE revoked = TRUE OR expires_at <= $1
	`

	cmd, err := r.pool.Exec(ctx, query, now)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func scanToken(row pgx.Row) (models.RefreshToken, error) {
	var token models.RefreshToken
	if err := row.Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.ExpiresAt,
		&token.Revoked,
		&token.ReplacedBy,
		&token.CreatedAt,
	); err != nil {
		return models.RefreshToken{}, err
	}
	return token, nil
}
