package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jobizaaa/network/internal/domain"
)

const postColumns = `id, author_id, title, body, cover_url, created_at, updated_at`

func (r *PostgresRepository) CreatePost(ctx context.Context, params domain.CreatePostParams) (*domain.Post, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO posts (author_id, title, body, cover_url)
		VALUES ($1, $2, $3, $4)
		RETURNING `+postColumns,
		params.AuthorID, params.Title, params.Body, params.CoverURL)
	p, err := scanPost(row)
	return p, mapError("insert post", err)
}

func (r *PostgresRepository) GetPost(ctx context.Context, id uuid.UUID) (*domain.Post, error) {
	row := r.db.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	p, err := scanPost(row)
	return p, mapError("select post", err)
}

// ListPosts returns posts newest first, optionally for one author
func (r *PostgresRepository) ListPosts(ctx context.Context, authorID *uuid.UUID, limit, offset int) ([]*domain.Post, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+postColumns+`
		FROM posts
		WHERE ($1::uuid IS NULL OR author_id = $1)
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, authorID, limit, offset)
	if err != nil {
		return nil, mapError("list posts", err)
	}
	posts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Post, error) {
		return scanPost(row)
	})
	return posts, mapError("scan posts", err)
}

func (r *PostgresRepository) DeletePost(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return mapError("delete post", err)
	}
	return requireRows("delete post", tag)
}

func scanPost(row pgx.Row) (*domain.Post, error) {
	var p domain.Post
	if err := row.Scan(&p.ID, &p.AuthorID, &p.Title, &p.Body, &p.CoverURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

const eventColumns = `id, title, description, location, starts_at, ends_at, created_by, created_at`

func (r *PostgresRepository) CreateEvent(ctx context.Context, params domain.CreateEventParams) (*domain.Event, error) {
	row := r.db.QueryRow(ctx, `
		INSERT INTO events (title, description, location, starts_at, ends_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+eventColumns,
		params.Title, params.Description, params.Location, params.StartsAt, params.EndsAt, params.CreatedBy)
	e, err := scanEvent(row)
	return e, mapError("insert event", err)
}

func (r *PostgresRepository) GetEvent(ctx context.Context, id uuid.UUID) (*domain.Event, error) {
	row := r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
	e, err := scanEvent(row)
	return e, mapError("select event", err)
}

// ListEvents returns events that have not finished by from, soonest first
func (r *PostgresRepository) ListEvents(ctx context.Context, from time.Time, limit, offset int) ([]*domain.Event, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE COALESCE(ends_at, starts_at) >= $1
		ORDER BY starts_at, id
		LIMIT $2 OFFSET $3`, from, limit, offset)
	if err != nil {
		return nil, mapError("list events", err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Event, error) {
		return scanEvent(row)
	})
	return events, mapError("scan events", err)
}

func (r *PostgresRepository) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return mapError("delete event", err)
	}
	return requireRows("delete event", tag)
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var e domain.Event
	var createdBy *uuid.UUID
	if err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Location, &e.StartsAt, &e.EndsAt, &createdBy, &e.CreatedAt); err != nil {
		return nil, err
	}
	if createdBy != nil {
		e.CreatedBy = *createdBy
	}
	return &e, nil
}
