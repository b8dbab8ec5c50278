package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jobizaaa/network/internal/domain"
)

const memberColumns = `id, email, phone, name, company, job_title, linkedin_url, bio, avatar_url, role, status, approved_at, created_at, updated_at`

// CreateMember inserts a member
func (r *PostgresRepository) CreateMember(ctx context.Context, params domain.CreateMemberParams) (*domain.Member, error) {
	query := `
		INSERT INTO members (email, phone, name, company, job_title, linkedin_url, role, status, approved_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, CASE WHEN $8 = 'approved' THEN NOW() END)
		RETURNING ` + memberColumns

	row := r.db.QueryRow(ctx, query,
		params.Email,
		params.Phone,
		params.Name,
		params.Company,
		params.JobTitle,
		params.LinkedInURL,
		params.Role,
		params.Status,
	)
	m, err := scanMember(row)
	return m, mapError("insert member", err)
}

// GetMemberByID retrieves a member by ID
func (r *PostgresRepository) GetMemberByID(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	row := r.db.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id)
	m, err := scanMember(row)
	return m, mapError("select member", err)
}

// GetMemberByEmail retrieves a member by email
func (r *PostgresRepository) GetMemberByEmail(ctx context.Context, email string) (*domain.Member, error) {
	row := r.db.QueryRow(ctx, `SELECT `+memberColumns+` FROM members WHERE email = $1`, email)
	m, err := scanMember(row)
	return m, mapError("select member by email", err)
}

// MemberExists reports whether id is an approved member
func (r *PostgresRepository) MemberExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM members WHERE id = $1 AND status = 'approved')`, id).Scan(&exists)
	return exists, mapError("member exists", err)
}

// GetMemberProfiles loads profiles for the given ids in one query
func (r *PostgresRepository) GetMemberProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.MemberProfile, error) {
	profiles := make(map[uuid.UUID]*domain.MemberProfile, len(ids))
	if len(ids) == 0 {
		return profiles, nil
	}

	rows, err := r.db.Query(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, mapError("select member profiles", err)
	}
	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Member, error) {
		return scanMember(row)
	})
	if err != nil {
		return nil, mapError("scan member profiles", err)
	}

	for _, m := range members {
		profiles[m.ID] = m.ToProfile()
	}
	return profiles, nil
}

// UpdateMemberProfile applies the non-nil fields of params
func (r *PostgresRepository) UpdateMemberProfile(ctx context.Context, id uuid.UUID, params domain.UpdateProfileParams) (*domain.Member, error) {
	query := `
		UPDATE members SET
			name         = COALESCE($2, name),
			phone        = COALESCE($3, phone),
			company      = COALESCE($4, company),
			job_title    = COALESCE($5, job_title),
			linkedin_url = COALESCE($6, linkedin_url),
			bio          = COALESCE($7, bio),
			updated_at   = NOW()
		WHERE id = $1
		RETURNING ` + memberColumns

	row := r.db.QueryRow(ctx, query, id,
		params.Name,
		params.Phone,
		params.Company,
		params.JobTitle,
		params.LinkedInURL,
		params.Bio,
	)
	m, err := scanMember(row)
	return m, mapError("update member profile", err)
}

// UpdateMemberAvatar sets the avatar URL
func (r *PostgresRepository) UpdateMemberAvatar(ctx context.Context, id uuid.UUID, avatarURL string) (*domain.Member, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE members SET avatar_url = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+memberColumns, id, avatarURL)
	m, err := scanMember(row)
	return m, mapError("update member avatar", err)
}

// UpdateMemberStatus changes the membership status, stamping approved_at on approval
func (r *PostgresRepository) UpdateMemberStatus(ctx context.Context, id uuid.UUID, status domain.MemberStatus) (*domain.Member, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE members SET
			status      = $2,
			approved_at = CASE WHEN $2 = 'approved' THEN COALESCE(approved_at, NOW()) ELSE approved_at END,
			updated_at  = NOW()
		WHERE id = $1
		RETURNING `+memberColumns, id, status)
	m, err := scanMember(row)
	return m, mapError("update member status", err)
}

// PromoteMember grants the admin role
func (r *PostgresRepository) PromoteMember(ctx context.Context, id uuid.UUID) (*domain.Member, error) {
	row := r.db.QueryRow(ctx, `
		UPDATE members SET role = 'admin', updated_at = NOW()
		WHERE id = $1
		RETURNING `+memberColumns, id)
	m, err := scanMember(row)
	return m, mapError("promote member", err)
}

// ListMembers returns members newest first, filtered by status and a name/company/email search
func (r *PostgresRepository) ListMembers(ctx context.Context, filter domain.MemberFilter, limit, offset int) ([]*domain.Member, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, *filter.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf("(name ILIKE $%d OR company ILIKE $%d OR email ILIKE $%d)", n, n, n))
	}

	query := `SELECT ` + memberColumns + ` FROM members`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, mapError("list members", err)
	}
	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*domain.Member, error) {
		return scanMember(row)
	})
	return members, mapError("scan members", err)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func scanMember(row pgx.Row) (*domain.Member, error) {
	var m domain.Member
	err := row.Scan(
		&m.ID,
		&m.Email,
		&m.Phone,
		&m.Name,
		&m.Company,
		&m.JobTitle,
		&m.LinkedInURL,
		&m.Bio,
		&m.AvatarURL,
		&m.Role,
		&m.Status,
		&m.ApprovedAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
