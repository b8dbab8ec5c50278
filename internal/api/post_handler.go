package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobizaaa/network/internal/domain"
	"github.com/jobizaaa/network/internal/middleware"
	"github.com/jobizaaa/network/pkg/response"
	"github.com/jobizaaa/network/pkg/validator"
)

type PostHandler struct {
	postService *domain.PostService
	logger      *zap.Logger
}

func NewPostHandler(postService *domain.PostService, logger *zap.Logger) *PostHandler {
	return &PostHandler{
		postService: postService,
		logger:      logger,
	}
}

// CreatePostForm is the multipart form of POST /posts
type CreatePostForm struct {
	Title string `json:"title" validate:"required,min=3,max=200"`
	Body  string `json:"body" validate:"required,max=20000"`
}

// CreatePost handles POST /posts (multipart: title, body, optional cover)
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	memberID, ok := currentMember(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		response.BadRequest(w, "invalid form data")
		return
	}

	form := CreatePostForm{
		Title: strings.TrimSpace(r.FormValue("title")),
		Body:  strings.TrimSpace(r.FormValue("body")),
	}
	if err := validator.Struct(form); err != nil {
		response.ValidationFailed(w, err)
		return
	}

	var cover *domain.Upload
	file, header, err := r.FormFile("cover")
	switch {
	case err == nil:
		defer file.Close()
		cover = &domain.Upload{File: file, Filename: header.Filename, ContentType: header.Header.Get("Content-Type")}
	case !errors.Is(err, http.ErrMissingFile):
		response.BadRequest(w, "invalid cover image")
		return
	}

	post, err := h.postService.CreatePost(r.Context(), domain.CreatePostParams{
		AuthorID: memberID,
		Title:    form.Title,
		Body:     form.Body,
	}, cover)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.Created(w, post)
}

// ListPosts handles GET /posts?author_id=
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	var authorID *uuid.UUID
	if v := r.URL.Query().Get("author_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(w, "invalid author id")
			return
		}
		authorID = &id
	}

	posts, err := h.postService.ListPosts(r.Context(), authorID, pageFromQuery(r))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.OK(w, posts)
}

// GetPost handles GET /posts/{id}
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "post")
	if !ok {
		return
	}

	post, err := h.postService.GetPost(r.Context(), id)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.OK(w, post)
}

// DeletePost handles DELETE /posts/{id} and DELETE /admin/posts/{id}
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	memberID, ok := currentMember(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "post")
	if !ok {
		return
	}

	if err := h.postService.DeletePost(r.Context(), memberID, middleware.IsAdmin(r.Context()), id); err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.NoContent(w)
}
