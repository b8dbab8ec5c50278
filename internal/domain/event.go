package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event is an admin-curated gathering listed to members
type Event struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Location    string     `json:"location"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at,omitempty"`
	CreatedBy   uuid.UUID  `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

type CreateEventParams struct {
	Title       string
	Description string
	Location    string
	StartsAt    time.Time
	EndsAt      *time.Time
	CreatedBy   uuid.UUID
}

type EventRepository interface {
	CreateEvent(ctx context.Context, params CreateEventParams) (*Event, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*Event, error)
	// ListEvents returns events ending (or starting, when open-ended) after from,
	// soonest first.
	ListEvents(ctx context.Context, from time.Time, limit, offset int) ([]*Event, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error
}

type EventService struct {
	repo EventRepository
	now  func() time.Time
}

func NewEventService(repo EventRepository) *EventService {
	return &EventService{repo: repo, now: time.Now}
}

func (s *EventService) CreateEvent(ctx context.Context, params CreateEventParams) (*Event, error) {
	if params.EndsAt != nil && !params.EndsAt.After(params.StartsAt) {
		return nil, NewError(KindInvalid, "ends_at must be after starts_at")
	}
	event, err := s.repo.CreateEvent(ctx, params)
	if err != nil {
		return nil, internalError("create event", err)
	}
	return event, nil
}

func (s *EventService) GetEvent(ctx context.Context, id uuid.UUID) (*Event, error) {
	event, err := s.repo.GetEvent(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NewError(KindNotFound, "event not found")
		}
		return nil, internalError("get event", err)
	}
	return event, nil
}

func (s *EventService) ListUpcoming(ctx context.Context, page Page) ([]*Event, error) {
	page = page.normalize()
	events, err := s.repo.ListEvents(ctx, s.now(), page.Limit, page.Offset)
	if err != nil {
		return nil, internalError("list events", err)
	}
	if events == nil {
		events = []*Event{}
	}
	return events, nil
}

func (s *EventService) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteEvent(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewError(KindNotFound, "event not found")
		}
		return internalError("delete event", err)
	}
	return nil
}
