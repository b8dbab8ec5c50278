package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	NotificationConnectionRequest  = "connection_request"
	NotificationConnectionAccepted = "connection_accepted"
)

type Notification struct {
	ID        uuid.UUID `json:"id"`
	MemberID  uuid.UUID `json:"member_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Data      Map       `json:"data"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

// Map alias for JSONB data
type Map map[string]interface{}

type NotificationRepository interface {
	CreateNotification(ctx context.Context, memberID uuid.UUID, typeStr, title, body string, data Map) (*Notification, error)
	GetNotifications(ctx context.Context, memberID uuid.UUID, limit, offset int) ([]*Notification, error)
	// MarkNotificationRead returns ErrNotFound unless the notification belongs to memberID.
	MarkNotificationRead(ctx context.Context, memberID, notificationID uuid.UUID) error
	UpsertDeviceToken(ctx context.Context, memberID uuid.UUID, token, platform string) error
	DeleteDeviceToken(ctx context.Context, memberID uuid.UUID, token string) error
	GetDeviceTokens(ctx context.Context, memberID uuid.UUID) ([]string, error)
}

// ErrDeviceUnregistered is returned by a PushSender when the token is no longer valid.
var ErrDeviceUnregistered = errors.New("device token unregistered")

// PushSender delivers a push notification to one device token.
type PushSender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// RealtimePublisher fans an event out to a member's open sockets.
type RealtimePublisher interface {
	SendToMember(memberID uuid.UUID, event RealtimeEvent)
}

// RealtimeEvent is the frame written to websocket clients
type RealtimeEvent struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
