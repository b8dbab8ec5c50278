package domain

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
)

const exportBatchSize = 500

// AdminService backs member and content moderation.
type AdminService struct {
	members     MemberRepository
	tokens      AuthRepository
	connections ConnectionRepository
}

func NewAdminService(members MemberRepository, tokens AuthRepository, connections ConnectionRepository) *AdminService {
	return &AdminService{
		members:     members,
		tokens:      tokens,
		connections: connections,
	}
}

func (s *AdminService) ListMembers(ctx context.Context, filter MemberFilter, page Page) ([]*Member, error) {
	page = page.normalize()
	members, err := s.members.ListMembers(ctx, filter, page.Limit, page.Offset)
	if err != nil {
		return nil, internalError("list members", err)
	}
	if members == nil {
		members = []*Member{}
	}
	return members, nil
}

// SetMemberStatus approves, rejects or suspends a member. Leaving the approved
// state revokes the member's refresh tokens.
func (s *AdminService) SetMemberStatus(ctx context.Context, actorID, memberID uuid.UUID, status MemberStatus) (*Member, error) {
	if !status.Valid() {
		return nil, NewError(KindInvalid, "unknown member status")
	}
	if actorID == memberID {
		return nil, NewError(KindForbidden, "you cannot change your own membership status")
	}

	member, err := s.members.UpdateMemberStatus(ctx, memberID, status)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NewError(KindNotFound, msgMemberNotFound)
		}
		return nil, internalError("update member status", err)
	}

	if status != MemberStatusApproved {
		if err := s.tokens.RevokeMemberRefreshTokens(ctx, memberID); err != nil {
			return nil, internalError("revoke member tokens", err)
		}
	}
	return member, nil
}

// ExportMembersCSV writes every member matching filter as CSV.
func (s *AdminService) ExportMembersCSV(ctx context.Context, filter MemberFilter, w io.Writer) error {
	cw := csv.NewWriter(w)
	header := []string{"id", "name", "email", "phone", "company", "job_title", "linkedin_url", "role", "status", "created_at"}
	if err := cw.Write(header); err != nil {
		return err
	}

	for offset := 0; ; offset += exportBatchSize {
		batch, err := s.members.ListMembers(ctx, filter, exportBatchSize, offset)
		if err != nil {
			return internalError("list members", err)
		}
		for _, m := range batch {
			if err := cw.Write([]string{
				m.ID.String(),
				m.Name,
				m.Email,
				deref(m.Phone),
				m.Company,
				m.JobTitle,
				deref(m.LinkedInURL),
				string(m.Role),
				string(m.Status),
				m.CreatedAt.UTC().Format(time.RFC3339),
			}); err != nil {
				return err
			}
		}
		if len(batch) < exportBatchSize {
			break
		}
	}

	cw.Flush()
	return cw.Error()
}

func (s *AdminService) ListConnectionRequests(ctx context.Context, status *ConnectionStatus, page Page) ([]*ConnectionRequest, error) {
	if status != nil && !status.Valid() {
		return nil, NewError(KindInvalid, "unknown connection status")
	}
	page = page.normalize()
	reqs, err := s.connections.ListConnectionRequests(ctx, status, page.Limit, page.Offset)
	if err != nil {
		return nil, internalError("list connection requests", err)
	}
	if reqs == nil {
		reqs = []*ConnectionRequest{}
	}
	return reqs, nil
}

// DeleteConnectionRequest removes a request regardless of status. This is data
// cleanup, not a lifecycle transition.
func (s *AdminService) DeleteConnectionRequest(ctx context.Context, id uuid.UUID) error {
	if err := s.connections.PurgeConnectionRequest(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewError(KindNotFound, msgRequestNotFound)
		}
		return internalError("purge connection request", err)
	}
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
