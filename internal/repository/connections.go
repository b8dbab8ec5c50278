package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jobizaaa/network/internal/domain"
)

const connectionColumns = `id, sender_id, receiver_id, status, created_at, updated_at`

// CreateConnectionRequest inserts a pending request. The live pair index turns a
// concurrent duplicate into ErrDuplicate.
func (r *PostgresRepository) CreateConnectionRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*domain.ConnectionRequest, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO connection_requests (sender_id, receiver_id, status)
		VALUES ($1, $2, 'pending')
		RETURNING `+connectionColumns, senderID, receiverID)
	req, err := scanConnection(row)
	return req, mapError("insert connection request", err)
}

func (r *PostgresRepository) GetConnectionRequest(ctx context.Context, id uuid.UUID) (*domain.ConnectionRequest, error) {
	row := r.db.QueryRow(ctx, `SELECT `+connectionColumns+` FROM connection_requests WHERE id = $1`, id)
	req, err := scanConnection(row)
	return req, mapError("select connection request", err)
}

// FindLiveConnection returns the pending or accepted request between a and b
func (r *PostgresRepository) FindLiveConnection(ctx context.Context, a, b uuid.UUID) (*domain.ConnectionRequest, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+connectionColumns+`
		FROM connection_requests
		WHERE ((sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1))
		  AND status IN ('pending', 'accepted')
		LIMIT 1`, a, b)
	req, err := scanConnection(row)
	return req, mapError("find live connection", err)
}

// UpdateConnectionStatus is a compare-and-set on status
func (r *PostgresRepository) UpdateConnectionStatus(ctx context.Context, id uuid.UUID, from, to domain.ConnectionStatus) (*domain.ConnectionRequest, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE connection_requests
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+connectionColumns, id, from, to)
	req, err := scanConnection(row)
	return req, mapError("update connection status", err)
}

func (r *PostgresRepository) DeleteConnectionRequest(ctx context.Context, id uuid.UUID, status domain.ConnectionStatus) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM connection_requests WHERE id = $1 AND status = $2`, id, status)
	if err != nil {
		return mapError("delete connection request", err)
	}
	return requireRows("delete connection request", tag)
}

// ListMemberConnections lists requests in status where memberID plays role, newest first
func (r *PostgresRepository) ListMemberConnections(ctx context.Context, memberID uuid.UUID, role domain.ConnectionRole, status domain.ConnectionStatus, limit, offset int) ([]*domain.ConnectionRequest, error) {
	var side string
	switch role {
	case domain.RoleSender:
		side = `sender_id = $1`
	case domain.RoleReceiver:
		side = `receiver_id = $1`
	default:
		side = `(sender_id = $1 OR receiver_id = $1)`
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+connectionColumns+`
		FROM connection_requests
		WHERE `+side+` AND status = $2
		ORDER BY updated_at DESC, id
		LIMIT $3 OFFSET $4`, memberID, status, limit, offset)
	if err != nil {
		return nil, mapError("list member connections", err)
	}
	return collectConnections(rows)
}

func (r *PostgresRepository) ListConnectionRequests(ctx context.Context, status *domain.ConnectionStatus, limit, offset int) ([]*domain.ConnectionRequest, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+connectionColumns+`
		FROM connection_requests
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, status, limit, offset)
	if err != nil {
		return nil, mapError("list connection requests", err)
	}
	return collectConnections(rows)
}

// PurgeConnectionRequest deletes a request whatever its status
func (r *PostgresRepository) PurgeConnectionRequest(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM connection_requests WHERE id = $1`, id)
	if err != nil {
		return mapError("purge connection request", err)
	}
	return requireRows("purge connection request", tag)
}

func collectConnections(rows pgx.Rows) ([]*domain.ConnectionRequest, error) {
	reqs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.ConnectionRequest, error) {
		return scanConnection(row)
	})
	return reqs, mapError("scan connection requests", err)
}

func scanConnection(row pgx.Row) (*domain.ConnectionRequest, error) {
	var c domain.ConnectionRequest
	if err := row.Scan(&c.ID, &c.SenderID, &c.ReceiverID, &c.Status, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}
