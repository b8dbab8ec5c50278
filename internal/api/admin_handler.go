package api

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/jobizaaa/network/internal/domain"
	"github.com/jobizaaa/network/pkg/response"
)

// AdminHandler serves member moderation and connection data cleanup
type AdminHandler struct {
	adminService *domain.AdminService
	logger       *zap.Logger
}

func NewAdminHandler(adminService *domain.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
		logger:       logger,
	}
}

// memberFilter reads ?status= and ?q=
func memberFilter(w http.ResponseWriter, r *http.Request) (domain.MemberFilter, bool) {
	filter := domain.MemberFilter{Query: r.URL.Query().Get("q")}
	if v := r.URL.Query().Get("status"); v != "" {
		status := domain.MemberStatus(v)
		if !status.Valid() {
			response.BadRequest(w, "unknown member status")
			return filter, false
		}
		filter.Status = &status
	}
	return filter, true
}

// ListMembers handles GET /admin/members?status=&q=
func (h *AdminHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	filter, ok := memberFilter(w, r)
	if !ok {
		return
	}

	members, err := h.adminService.ListMembers(r.Context(), filter, pageFromQuery(r))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.OK(w, members)
}

// Approve handles PUT /admin/members/{id}/approve
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, domain.MemberStatusApproved)
}

// Reject handles PUT /admin/members/{id}/reject
func (h *AdminHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, domain.MemberStatusRejected)
}

// Suspend handles PUT /admin/members/{id}/suspend
func (h *AdminHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, domain.MemberStatusSuspended)
}

func (h *AdminHandler) setStatus(w http.ResponseWriter, r *http.Request, status domain.MemberStatus) {
	actorID, ok := currentMember(w, r)
	if !ok {
		return
	}
	memberID, ok := uuidParam(w, r, "id", "member")
	if !ok {
		return
	}

	member, err := h.adminService.SetMemberStatus(r.Context(), actorID, memberID, status)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	h.logger.Info("member status changed",
		zap.String("admin_id", actorID.String()),
		zap.String("member_id", memberID.String()),
		zap.String("status", string(status)),
	)
	response.OK(w, member)
}

// ExportMembers handles GET /admin/members/export?status=&q=
func (h *AdminHandler) ExportMembers(w http.ResponseWriter, r *http.Request) {
	filter, ok := memberFilter(w, r)
	if !ok {
		return
	}

	filename := fmt.Sprintf("members-%s.csv", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))

	// Headers are already sent once rows stream, so failures can only be logged.
	if err := h.adminService.ExportMembersCSV(r.Context(), filter, w); err != nil {
		h.logger.Error("member export failed", zap.Error(err))
	}
}

// ListConnectionRequests handles GET /admin/connections?status=
func (h *AdminHandler) ListConnectionRequests(w http.ResponseWriter, r *http.Request) {
	var status *domain.ConnectionStatus
	if v := r.URL.Query().Get("status"); v != "" {
		s := domain.ConnectionStatus(v)
		status = &s
	}

	reqs, err := h.adminService.ListConnectionRequests(r.Context(), status, pageFromQuery(r))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.OK(w, reqs)
}

// DeleteConnectionRequest handles DELETE /admin/connections/{id}
func (h *AdminHandler) DeleteConnectionRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "connection request")
	if !ok {
		return
	}

	if err := h.adminService.DeleteConnectionRequest(r.Context(), id); err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.NoContent(w)
}
