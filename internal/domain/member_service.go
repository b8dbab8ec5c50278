package domain

import (
	"context"
	"errors"
	"io"

	"github.com/google/uuid"

	"github.com/jobizaaa/network/internal/storage"
)

// MemberService serves profile reads and self-service edits.
type MemberService struct {
	repo    MemberRepository
	storage storage.FileStorage
}

func NewMemberService(repo MemberRepository, storage storage.FileStorage) *MemberService {
	return &MemberService{
		repo:    repo,
		storage: storage,
	}
}

// GetMember returns the full record of a member
func (s *MemberService) GetMember(ctx context.Context, id uuid.UUID) (*Member, error) {
	member, err := s.repo.GetMemberByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NewError(KindNotFound, msgMemberNotFound)
		}
		return nil, internalError("get member", err)
	}
	return member, nil
}

// GetProfile returns the public profile of an approved member.
func (s *MemberService) GetProfile(ctx context.Context, id uuid.UUID) (*MemberProfile, error) {
	member, err := s.GetMember(ctx, id)
	if err != nil {
		return nil, err
	}
	if member.Status != MemberStatusApproved {
		return nil, NewError(KindNotFound, msgMemberNotFound)
	}
	return member.ToProfile(), nil
}

// Directory lists approved members, optionally matching query on name or company.
func (s *MemberService) Directory(ctx context.Context, query string, page Page) ([]*MemberProfile, error) {
	page = page.normalize()
	approved := MemberStatusApproved
	members, err := s.repo.ListMembers(ctx, MemberFilter{Status: &approved, Query: query}, page.Limit, page.Offset)
	if err != nil {
		return nil, internalError("list members", err)
	}
	profiles := make([]*MemberProfile, 0, len(members))
	for _, m := range members {
		profiles = append(profiles, m.ToProfile())
	}
	return profiles, nil
}

func (s *MemberService) UpdateProfile(ctx context.Context, id uuid.UUID, params UpdateProfileParams) (*Member, error) {
	member, err := s.repo.UpdateMemberProfile(ctx, id, params)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NewError(KindNotFound, msgMemberNotFound)
		}
		return nil, internalError("update profile", err)
	}
	return member, nil
}

// UpdateAvatar stores the uploaded image and points the member at it. The previous
// image is removed best effort.
func (s *MemberService) UpdateAvatar(ctx context.Context, id uuid.UUID, file io.Reader, filename, contentType string) (*Member, error) {
	current, err := s.GetMember(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.SaveFile(ctx, file, filename, contentType)
	if err != nil {
		return nil, uploadError("save avatar", err)
	}

	member, err := s.repo.UpdateMemberAvatar(ctx, id, url)
	if err != nil {
		_ = s.storage.DeleteFile(ctx, url)
		return nil, internalError("update avatar", err)
	}

	if current.AvatarURL != nil && *current.AvatarURL != "" {
		_ = s.storage.DeleteFile(ctx, *current.AvatarURL)
	}
	return member, nil
}
