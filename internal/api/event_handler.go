package api

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jobizaaa/network/internal/domain"
	"github.com/jobizaaa/network/pkg/response"
)

type EventHandler struct {
	eventService *domain.EventService
	logger       *zap.Logger
}

func NewEventHandler(eventService *domain.EventService, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		logger:       logger,
	}
}

// CreateEventRequest is the body of POST /admin/events
type CreateEventRequest struct {
	Title       string     `json:"title" validate:"required,min=3,max=200"`
	Description string     `json:"description" validate:"max=5000"`
	Location    string     `json:"location" validate:"max=300"`
	StartsAt    time.Time  `json:"starts_at" validate:"required"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
}

// ListUpcoming handles GET /events
func (h *EventHandler) ListUpcoming(w http.ResponseWriter, r *http.Request) {
	events, err := h.eventService.ListUpcoming(r.Context(), pageFromQuery(r))
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.OK(w, events)
}

// GetEvent handles GET /events/{id}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "event")
	if !ok {
		return
	}

	event, err := h.eventService.GetEvent(r.Context(), id)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.OK(w, event)
}

// CreateEvent handles POST /admin/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	memberID, ok := currentMember(w, r)
	if !ok {
		return
	}

	var req CreateEventRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	event, err := h.eventService.CreateEvent(r.Context(), domain.CreateEventParams{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
		StartsAt:    req.StartsAt,
		EndsAt:      req.EndsAt,
		CreatedBy:   memberID,
	})
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.Created(w, event)
}

// DeleteEvent handles DELETE /admin/events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id", "event")
	if !ok {
		return
	}

	if err := h.eventService.DeleteEvent(r.Context(), id); err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.NoContent(w)
}
