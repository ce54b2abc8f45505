package sqlite

import (
	"context"
	"fmt"
	"time"

	"demeter/internal/models"
)

// SaveRefreshToken persists an issued refresh token.
func (s *Store) SaveRefreshToken(ctx context.Context, userID models.ID, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO refresh_tokens(id, user_id, token, expires_at, created_at) VALUES(?, ?, ?, ?, ?)`,
		s.ids.Next(), userID, token, models.NewDateTime(expiresAt.UTC()), s.timestamp())
	if err != nil {
		return classify(err, "save refresh token")
	}
	return nil
}

// GetRefreshToken returns a stored token that has not expired yet.
func (s *Store) GetRefreshToken(ctx context.Context, token string) (models.RefreshToken, error) {
	var rt models.RefreshToken
	err := s.db.QueryRowContext(ctx, `SELECT id, user_id, token, expires_at, created_at FROM refresh_tokens
        WHERE token = ? AND expires_at > ?`, token, models.NewDateTime(s.now().UTC())).
		Scan(&rt.ID, &rt.UserID, &rt.Token, &rt.ExpiresAt, &rt.CreatedAt)
	if err != nil {
		return models.RefreshToken{}, classify(err, "get refresh token")
	}
	return rt, nil
}

// RotateRefreshToken replaces old with next atomically.
func (s *Store) RotateRefreshToken(ctx context.Context, old string, userID models.ID, next string, expiresAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rotate: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = ?`, old)
	if err != nil {
		return classify(err, "delete refresh token")
	}
	if err := expectAffected(res, "rotate refresh token"); err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO refresh_tokens(id, user_id, token, expires_at, created_at) VALUES(?, ?, ?, ?, ?)`,
		s.ids.Next(), userID, next, models.NewDateTime(expiresAt.UTC()), s.timestamp())
	if err != nil {
		return classify(err, "save refresh token")
	}
	return tx.Commit()
}

// DeleteRefreshToken removes token; a missing token is not an error.
func (s *Store) DeleteRefreshToken(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}
	return nil
}

// PurgeExpiredRefreshTokens deletes tokens past their expiry.
func (s *Store) PurgeExpiredRefreshTokens(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE expires_at <= ?`, models.NewDateTime(s.now().UTC()))
	if err != nil {
		return 0, fmt.Errorf("purge refresh tokens: %w", err)
	}
	return res.RowsAffected()
}
