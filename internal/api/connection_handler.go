package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobizaaa/network/internal/domain"
	"github.com/jobizaaa/network/pkg/response"
)

type ConnectionHandler struct {
	connService *domain.ConnectionService
	logger      *zap.Logger
}

func NewConnectionHandler(connService *domain.ConnectionService, logger *zap.Logger) *ConnectionHandler {
	return &ConnectionHandler{
		connService: connService,
		logger:      logger,
	}
}

// SendRequestBody is the body of POST /connections
type SendRequestBody struct {
	ReceiverID string `json:"receiver_id" validate:"required,uuid"`
}

// SendRequest handles POST /connections
func (h *ConnectionHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	memberID, ok := currentMember(w, r)
	if !ok {
		return
	}

	var req SendRequestBody
	if !decodeJSON(w, r, &req) {
		return
	}
	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		response.BadRequest(w, "invalid receiver id")
		return
	}

	conn, err := h.connService.SendRequest(r.Context(), memberID, receiverID)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.Created(w, conn)
}

// Accept handles PUT /connections/{id}/accept
func (h *ConnectionHandler) Accept(w http.ResponseWriter, r *http.Request) {
	memberID, ok := currentMember(w, r)
	if !ok {
		return
	}
	requestID, ok := uuidParam(w, r, "id", "connection request")
	if !ok {
		return
	}

	conn, err := h.connService.AcceptRequest(r.Context(), memberID, requestID)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.OK(w, conn)
}

// Decline handles PUT /connections/{id}/decline
func (h *ConnectionHandler) Decline(w http.ResponseWriter, r *http.Request) {
	memberID, ok := currentMember(w, r)
	if !ok {
		return
	}
	requestID, ok := uuidParam(w, r, "id", "connection request")
	if !ok {
		return
	}

	conn, err := h.connService.DeclineRequest(r.Context(), memberID, requestID)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.OK(w, conn)
}

// Cancel handles DELETE /connections/{id}
func (h *ConnectionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	memberID, ok := currentMember(w, r)
	if !ok {
		return
	}
	requestID, ok := uuidParam(w, r, "id", "connection request")
	if !ok {
		return
	}

	if err := h.connService.CancelRequest(r.Context(), memberID, requestID); err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.NoContent(w)
}

// Remove handles DELETE /connections/{id}/remove
func (h *ConnectionHandler) Remove(w http.ResponseWriter, r *http.Request) {
	memberID, ok := currentMember(w, r)
	if !ok {
		return
	}
	requestID, ok := uuidParam(w, r, "id", "connection")
	if !ok {
		return
	}

	if err := h.connService.RemoveConnection(r.Context(), memberID, requestID); err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.NoContent(w)
}

// MyConnections handles GET /connections/my-connections
func (h *ConnectionHandler) MyConnections(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.connService.ListMyConnections)
}

// SentPending handles GET /connections/my-connections/sent-pending
func (h *ConnectionHandler) SentPending(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.connService.ListSentPending)
}

// ReceivedPending handles GET /connections/my-connections/received-pending
func (h *ConnectionHandler) ReceivedPending(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.connService.ListReceivedPending)
}

type connectionLister func(ctx context.Context, memberID uuid.UUID, page domain.Page) ([]*domain.ConnectionView, error)

func (h *ConnectionHandler) list(w http.ResponseWriter, r *http.Request, fetch connectionLister) {
	memberID, ok := currentMember(w, r)
	if !ok {
		return
	}

	views, err := fetch(r.Context(), memberID, pageFromQuery(r))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.OK(w, views)
}
