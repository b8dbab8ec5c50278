package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/jobizaaa/network/internal/domain"
	"github.com/jobizaaa/network/pkg/response"
)

const maxUploadSize = 10 << 20

// MemberHandler serves the current member's profile and the member directory
type MemberHandler struct {
	memberService *domain.MemberService
	logger        *zap.Logger
}

func NewMemberHandler(memberService *domain.MemberService, logger *zap.Logger) *MemberHandler {
	return &MemberHandler{
		memberService: memberService,
		logger:        logger,
	}
}

// Me handles GET /me
func (h *MemberHandler) Me(w http.ResponseWriter, r *http.Request) {
	memberID, ok := currentMember(w, r)
	if !ok {
		return
	}

	member, err := h.memberService.GetMember(r.Context(), memberID)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.OK(w, member)
}

// UpdateMe handles PUT /me
func (h *MemberHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	memberID, ok := currentMember(w, r)
	if !ok {
		return
	}

	var req domain.UpdateProfileParams
	if !decodeJSON(w, r, &req) {
		return
	}

	member, err := h.memberService.UpdateProfile(r.Context(), memberID, req)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.OK(w, member)
}

// UploadAvatar handles POST /me/avatar (multipart field "file")
func (h *MemberHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	memberID, ok := currentMember(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		response.BadRequest(w, "invalid form data")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "missing file")
		return
	}
	defer file.Close()

	member, err := h.memberService.UpdateAvatar(r.Context(), memberID, file, header.Filename, header.Header.Get("Content-Type"))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.OK(w, member)
}

// GetMember handles GET /members/{id}
func (h *MemberHandler) GetMember(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "member")
	if !ok {
		return
	}

	profile, err := h.memberService.GetProfile(r.Context(), id)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.OK(w, profile)
}

// Directory handles GET /members?q=
func (h *MemberHandler) Directory(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.memberService.Directory(r.Context(), r.URL.Query().Get("q"), pageFromQuery(r))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.OK(w, profiles)
}
