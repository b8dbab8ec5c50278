package domain

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/jobizaaa/network/internal/storage"
)

// Post is a member blog post
type Post struct {
	ID        uuid.UUID      `json:"id"`
	AuthorID  uuid.UUID      `json:"author_id"`
	Title     string         `json:"title"`
	Body      string         `json:"body"`
	CoverURL  *string        `json:"cover_url,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Author    *MemberProfile `json:"author,omitempty"`
}

type CreatePostParams struct {
	AuthorID uuid.UUID
	Title    string
	Body     string
	CoverURL *string
}

type PostRepository interface {
	CreatePost(ctx context.Context, params CreatePostParams) (*Post, error)
	GetPost(ctx context.Context, id uuid.UUID) (*Post, error)
	ListPosts(ctx context.Context, authorID *uuid.UUID, limit, offset int) ([]*Post, error)
	DeletePost(ctx context.Context, id uuid.UUID) error
}

// Upload is an optional file attached to a create call
type Upload struct {
	File        io.Reader
	Filename    string
	ContentType string
}

type PostService struct {
	repo    PostRepository
	members MemberDirectory
	storage storage.FileStorage
}

func NewPostService(repo PostRepository, members MemberDirectory, storage storage.FileStorage) *PostService {
	return &PostService{
		repo:    repo,
		members: members,
		storage: storage,
	}
}

func (s *PostService) CreatePost(ctx context.Context, params CreatePostParams, cover *Upload) (*Post, error) {
	if cover != nil {
		url, err := s.storage.SaveFile(ctx, cover.File, cover.Filename, cover.ContentType)
		if err != nil {
			return nil, uploadError("save cover", err)
		}
		params.CoverURL = &url
	}

	post, err := s.repo.CreatePost(ctx, params)
	if err != nil {
		if params.CoverURL != nil {
			_ = s.storage.DeleteFile(ctx, *params.CoverURL)
		}
		return nil, internalError("create post", err)
	}
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, id uuid.UUID) (*Post, error) {
	post, err := s.repo.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NewError(KindNotFound, "post not found")
		}
		return nil, internalError("get post", err)
	}
	if err := s.attachAuthors(ctx, []*Post{post}); err != nil {
		return nil, err
	}
	return post, nil
}

// ListPosts returns newest posts first, optionally restricted to one author.
func (s *PostService) ListPosts(ctx context.Context, authorID *uuid.UUID, page Page) ([]*Post, error) {
	page = page.normalize()
	posts, err := s.repo.ListPosts(ctx, authorID, page.Limit, page.Offset)
	if err != nil {
		return nil, internalError("list posts", err)
	}
	if posts == nil {
		posts = []*Post{}
	}
	if err := s.attachAuthors(ctx, posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// DeletePost removes a post. Authors may delete their own; admins any.
func (s *PostService) DeletePost(ctx context.Context, actorID uuid.UUID, isAdmin bool, id uuid.UUID) error {
	post, err := s.repo.GetPost(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewError(KindNotFound, "post not found")
		}
		return internalError("get post", err)
	}
	if post.AuthorID != actorID && !isAdmin {
		return NewError(KindForbidden, "you can only delete your own posts")
	}
	if err := s.repo.DeletePost(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewError(KindNotFound, "post not found")
		}
		return internalError("delete post", err)
	}
	if post.CoverURL != nil {
		_ = s.storage.DeleteFile(ctx, *post.CoverURL)
	}
	return nil
}

func (s *PostService) attachAuthors(ctx context.Context, posts []*Post) error {
	if len(posts) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.AuthorID)
	}
	profiles, err := s.members.GetMemberProfiles(ctx, ids)
	if err != nil {
		return internalError("load authors", err)
	}
	for _, p := range posts {
		p.Author = profiles[p.AuthorID]
	}
	return nil
}

// uploadError reports rejected file types as bad requests.
func uploadError(op string, err error) *Error {
	if errors.Is(err, storage.ErrUnsupportedType) {
		return NewError(KindInvalid, "only JPEG, PNG, WEBP or GIF images are allowed")
	}
	return internalError(op, err)
}
