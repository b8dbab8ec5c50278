package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/jobizaaa/network/internal/domain"
	"github.com/jobizaaa/network/pkg/response"
)

type NotificationHandler struct {
	service *domain.NotificationService
	logger  *zap.Logger
}

func NewNotificationHandler(service *domain.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		logger:  logger,
	}
}

// DeviceTokenRequest registers or removes an FCM device token
type DeviceTokenRequest struct {
	Token    string `json:"token" validate:"required,max=4096"`
	Platform string `json:"platform,omitempty" validate:"omitempty,oneof=android ios web"`
}

func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	memberID, ok := currentMember(w, r)
	if !ok {
		return
	}

	notifs, err := h.service.GetNotifications(r.Context(), memberID, pageFromQuery(r))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.OK(w, notifs)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	memberID, ok := currentMember(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id", "notification")
	if !ok {
		return
	}

	if err := h.service.MarkRead(r.Context(), memberID, id); err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.NoContent(w)
}

func (h *NotificationHandler) RegisterDevice(w http.ResponseWriter, r *http.Request) {
	memberID, ok := currentMember(w, r)
	if !ok {
		return
	}

	var req DeviceTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.RegisterDevice(r.Context(), memberID, req.Token, req.Platform); err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.NoContent(w)
}

func (h *NotificationHandler) UnregisterDevice(w http.ResponseWriter, r *http.Request) {
	memberID, ok := currentMember(w, r)
	if !ok {
		return
	}

	var req DeviceTokenRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.service.UnregisterDevice(r.Context(), memberID, req.Token); err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.NoContent(w)
}
