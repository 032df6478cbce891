package repository

import (
	"context"
	"database/sql"
	"time"
)

// TokenRepo persists refresh tokens and account activation tokens. Only
// SHA-256 hashes are stored.
type TokenRepo struct{ db *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// StoreRefresh inserts a refresh token hash row.
func (r *TokenRepo) StoreRefresh(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return translate("store refresh token", err)
}

// ValidateRefresh returns the user id of a non-revoked, non-expired token.
func (r *TokenRepo) ValidateRefresh(ctx context.Context, tokenHash string) (uint64, error) {
	var (
		userID    uint64
		expiresAt time.Time
		revokedAt sql.NullTime
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		return 0, translate("validate refresh token", err)
	}
	if revokedAt.Valid || time.Now().UTC().After(expiresAt) {
		return 0, ErrNotFound
	}
	return userID, nil
}

// RevokeByHash marks a token as revoked.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=UTC_TIMESTAMP() WHERE token_hash=? AND revoked_at IS NULL",
		tokenHash)
	return translate("revoke refresh token", err)
}

// StoreActivation inserts a pending account activation.
func (r *TokenRepo) StoreActivation(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO account_activations (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp)
	return translate("store activation", err)
}

// ConsumeActivation marks the activation used and activates its user. Used,
// expired and unknown tokens all yield ErrNotFound.
func (r *TokenRepo) ConsumeActivation(ctx context.Context, tokenHash string) (userID uint64, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, translate("begin", err)
	}
	defer finish(tx, &err)

	var (
		id        uint64
		expiresAt time.Time
		usedAt    sql.NullTime
	)
	err = tx.QueryRowContext(ctx,
		"SELECT id, user_id, expires_at, used_at FROM account_activations WHERE token_hash=? FOR UPDATE",
		tokenHash).Scan(&id, &userID, &expiresAt, &usedAt)
	if err != nil {
		return 0, translate("get activation", err)
	}
	if usedAt.Valid || time.Now().UTC().After(expiresAt) {
		return 0, ErrNotFound
	}
	if _, err = tx.ExecContext(ctx, "UPDATE account_activations SET used_at=UTC_TIMESTAMP() WHERE id=?", id); err != nil {
		return 0, translate("use activation", err)
	}
	if _, err = tx.ExecContext(ctx, "UPDATE users SET is_active=TRUE WHERE id=?", userID); err != nil {
		return 0, translate("activate user", err)
	}
	return userID, nil
}
