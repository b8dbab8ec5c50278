package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jobizaaa/network/internal/domain"
)

// CreateNotification stores a notification; data is written as JSONB
func (r *PostgresRepository) CreateNotification(ctx context.Context, memberID uuid.UUID, typeStr, title, body string, data domain.Map) (*domain.Notification, error) {
	if data == nil {
		data = domain.Map{}
	}
	row := r.db.QueryRow(ctx, `
		INSERT INTO notifications (member_id, type, title, body, data)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, member_id, type, title, body, data, is_read, created_at`,
		memberID, typeStr, title, body, map[string]interface{}(data))
	n, err := scanNotification(row)
	return n, mapError("insert notification", err)
}

// GetNotifications returns the member's notifications, newest first
func (r *PostgresRepository) GetNotifications(ctx context.Context, memberID uuid.UUID, limit, offset int) ([]*domain.Notification, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, member_id, type, title, body, data, is_read, created_at
		FROM notifications
		WHERE member_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, memberID, limit, offset)
	if err != nil {
		return nil, mapError("list notifications", err)
	}
	notifications, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Notification, error) {
		return scanNotification(row)
	})
	return notifications, mapError("scan notifications", err)
}

func (r *PostgresRepository) MarkNotificationRead(ctx context.Context, memberID, notificationID uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND member_id = $2`, notificationID, memberID)
	if err != nil {
		return mapError("mark notification read", err)
	}
	return requireRows("mark notification read", tag)
}

func (r *PostgresRepository) UpsertDeviceToken(ctx context.Context, memberID uuid.UUID, token, platform string) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO device_tokens (member_id, token, platform)
		VALUES ($1, $2, $3)
		ON CONFLICT (member_id, token) DO UPDATE SET platform = EXCLUDED.platform, updated_at = NOW()`,
		memberID, token, platform)
	return mapError("upsert device token", err)
}

func (r *PostgresRepository) DeleteDeviceToken(ctx context.Context, memberID uuid.UUID, token string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM device_tokens WHERE member_id = $1 AND token = $2`, memberID, token)
	return mapError("delete device token", err)
}

func (r *PostgresRepository) GetDeviceTokens(ctx context.Context, memberID uuid.UUID) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT token FROM device_tokens WHERE member_id = $1`, memberID)
	if err != nil {
		return nil, mapError("select device tokens", err)
	}
	tokens, err := pgx.CollectRows(rows, pgx.RowTo[string])
	return tokens, mapError("scan device tokens", err)
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	var data map[string]interface{}
	if err := row.Scan(&n.ID, &n.MemberID, &n.Type, &n.Title, &n.Body, &data, &n.IsRead, &n.CreatedAt); err != nil {
		return nil, err
	}
	n.Data = domain.Map(data)
	return &n, nil
}
