package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type MemberRole string

const (
	MemberRoleMember MemberRole = "member"
	MemberRoleAdmin  MemberRole = "admin"
)

type MemberStatus string

const (
	MemberStatusPendingApproval MemberStatus = "pending_approval"
	MemberStatusApproved        MemberStatus = "approved"
	MemberStatusRejected        MemberStatus = "rejected"
	MemberStatusSuspended       MemberStatus = "suspended"
)

// Valid reports whether s is a known member status
func (s MemberStatus) Valid() bool {
	switch s {
	case MemberStatusPendingApproval, MemberStatusApproved, MemberStatusRejected, MemberStatusSuspended:
		return true
	}
	return false
}

// Member represents a registered executive
type Member struct {
	ID          uuid.UUID    `json:"id"`
	Email       string       `json:"email"`
	Phone       *string      `json:"phone,omitempty"`
	Name        string       `json:"name"`
	Company     string       `json:"company"`
	JobTitle    string       `json:"job_title"`
	LinkedInURL *string      `json:"linkedin_url,omitempty"`
	Bio         *string      `json:"bio,omitempty"`
	AvatarURL   *string      `json:"avatar_url,omitempty"`
	Role        MemberRole   `json:"role"`
	Status      MemberStatus `json:"status"`
	ApprovedAt  *time.Time   `json:"approved_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsAdmin returns true for approved administrators
func (m *Member) IsAdmin() bool {
	return m.Role == MemberRoleAdmin && m.Status == MemberStatusApproved
}

// MemberProfile is the public projection of a member shown to other members.
type MemberProfile struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Company   string    `json:"company"`
	JobTitle  string    `json:"job_title"`
	AvatarURL string    `json:"avatar_url,omitempty"`
}

// ToProfile converts a Member to its public profile
func (m *Member) ToProfile() *MemberProfile {
	profile := &MemberProfile{
		ID:       m.ID,
		Name:     m.Name,
		Email:    m.Email,
		Company:  m.Company,
		JobTitle: m.JobTitle,
	}
	if m.AvatarURL != nil {
		profile.AvatarURL = *m.AvatarURL
	}
	return profile
}

// MemberDirectory is the read-only view of members used by the connection core.
type MemberDirectory interface {
	// MemberExists reports whether id is an approved member.
	MemberExists(ctx context.Context, id uuid.UUID) (bool, error)
	// GetMemberProfiles returns profiles keyed by id; unknown ids are omitted.
	GetMemberProfiles(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*MemberProfile, error)
}

// MemberRepository defines data access for members
type MemberRepository interface {
	MemberDirectory

	CreateMember(ctx context.Context, params CreateMemberParams) (*Member, error)
	GetMemberByID(ctx context.Context, id uuid.UUID) (*Member, error)
	GetMemberByEmail(ctx context.Context, email string) (*Member, error)
	UpdateMemberProfile(ctx context.Context, id uuid.UUID, params UpdateProfileParams) (*Member, error)
	UpdateMemberAvatar(ctx context.Context, id uuid.UUID, avatarURL string) (*Member, error)
	UpdateMemberStatus(ctx context.Context, id uuid.UUID, status MemberStatus) (*Member, error)
	PromoteMember(ctx context.Context, id uuid.UUID) (*Member, error)
	ListMembers(ctx context.Context, filter MemberFilter, limit, offset int) ([]*Member, error)
}

// CreateMemberParams holds parameters for member creation
type CreateMemberParams struct {
	Email       string
	Phone       *string
	Name        string
	Company     string
	JobTitle    string
	LinkedInURL *string
	Role        MemberRole
	Status      MemberStatus
}

// UpdateProfileParams holds the editable profile fields; nil means unchanged.
type UpdateProfileParams struct {
	Name        *string `json:"name,omitempty" validate:"omitempty,min=2,max=100"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,phone"`
	Company     *string `json:"company,omitempty" validate:"omitempty,min=1,max=150"`
	JobTitle    *string `json:"job_title,omitempty" validate:"omitempty,min=1,max=150"`
	LinkedInURL *string `json:"linkedin_url,omitempty" validate:"omitempty,url,max=300"`
	Bio         *string `json:"bio,omitempty" validate:"omitempty,max=2000"`
}

// MemberFilter narrows member listings
type MemberFilter struct {
	Status *MemberStatus
	Query  string
}
