package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jobizaaa/network/internal/domain"
)

// CreateOTPCode stores a code hash after consuming any outstanding code for the member
func (r *PostgresRepository) CreateOTPCode(ctx context.Context, memberID uuid.UUID, codeHash string, expiresAt time.Time) (*domain.OTPCode, error) {
	var code *domain.OTPCode
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE otp_codes SET consumed_at = NOW()
			WHERE member_id = $1 AND consumed_at IS NULL`, memberID); err != nil {
			return err
		}

		row := tx.QueryRow(ctx, `
			INSERT INTO otp_codes (member_id, code_hash, expires_at)
			VALUES ($1, $2, $3)
			RETURNING id, member_id, code_hash, attempts, expires_at, consumed_at, created_at`,
			memberID, codeHash, expiresAt)
		var err error
		code, err = scanOTPCode(row)
		return err
	})
	return code, mapError("create otp code", err)
}

// GetActiveOTPCode returns the newest unconsumed code for the member
func (r *PostgresRepository) GetActiveOTPCode(ctx context.Context, memberID uuid.UUID) (*domain.OTPCode, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, member_id, code_hash, attempts, expires_at, consumed_at, created_at
		FROM otp_codes
		WHERE member_id = $1 AND consumed_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1`, memberID)
	code, err := scanOTPCode(row)
	return code, mapError("select otp code", err)
}

// ReserveOTPAttempt bumps the attempt counter while the code is live and under the cap
func (r *PostgresRepository) ReserveOTPAttempt(ctx context.Context, id uuid.UUID, maxAttempts int) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE otp_codes SET attempts = attempts + 1
		WHERE id = $1 AND consumed_at IS NULL AND attempts < $2`, id, maxAttempts)
	if err != nil {
		return mapError("reserve otp attempt", err)
	}
	return requireRows("reserve otp attempt", tag)
}

// ConsumeOTPCode marks a code used. A second consumer gets ErrNotFound.
func (r *PostgresRepository) ConsumeOTPCode(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE otp_codes SET consumed_at = NOW() WHERE id = $1 AND consumed_at IS NULL`, id)
	if err != nil {
		return mapError("consume otp code", err)
	}
	return requireRows("consume otp code", tag)
}

func scanOTPCode(row pgx.Row) (*domain.OTPCode, error) {
	var c domain.OTPCode
	if err := row.Scan(&c.ID, &c.MemberID, &c.CodeHash, &c.Attempts, &c.ExpiresAt, &c.ConsumedAt, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateRefreshToken stores a new refresh token
func (r *PostgresRepository) CreateRefreshToken(ctx context.Context, params domain.CreateRefreshTokenParams) (*domain.RefreshToken, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO refresh_tokens (member_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, member_id, token_hash, expires_at, revoked, revoked_at, created_at`,
		params.MemberID, params.TokenHash, params.ExpiresAt)
	token, err := scanRefreshToken(row)
	return token, mapError("insert refresh token", err)
}

// GetRefreshTokenByHash retrieves a refresh token by its hash, revoked or not
func (r *PostgresRepository) GetRefreshTokenByHash(ctx context.Context, hash string) (*domain.RefreshToken, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, member_id, token_hash, expires_at, revoked, revoked_at, created_at
		FROM refresh_tokens
		WHERE token_hash = $1 AND expires_at > NOW()`, hash)
	token, err := scanRefreshToken(row)
	return token, mapError("select refresh token", err)
}

// RevokeRefreshToken revokes a refresh token
func (r *PostgresRepository) RevokeRefreshToken(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW() WHERE id = $1`, id)
	return mapError("revoke refresh token", err)
}

// RevokeRefreshTokenByHash revokes a refresh token by its hash
func (r *PostgresRepository) RevokeRefreshTokenByHash(ctx context.Context, hash string) error {
	_, err := r.db.Exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW() WHERE token_hash = $1 AND revoked = FALSE`, hash)
	return mapError("revoke refresh token by hash", err)
}

// RevokeMemberRefreshTokens revokes all refresh tokens for a member
func (r *PostgresRepository) RevokeMemberRefreshTokens(ctx context.Context, memberID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE refresh_tokens SET revoked = TRUE, revoked_at = NOW() WHERE member_id = $1 AND revoked = FALSE`, memberID)
	return mapError("revoke member refresh tokens", err)
}

func scanRefreshToken(row pgx.Row) (*domain.RefreshToken, error) {
	var t domain.RefreshToken
	if err := row.Scan(&t.ID, &t.MemberID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &t.RevokedAt, &t.CreatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
