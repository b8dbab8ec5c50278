package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ConnectionStatus string

const (
	ConnectionStatusPending  ConnectionStatus = "pending"
	ConnectionStatusAccepted ConnectionStatus = "accepted"
	ConnectionStatusDeclined ConnectionStatus = "declined"
)

// Valid reports whether s is a known status
func (s ConnectionStatus) Valid() bool {
	switch s {
	case ConnectionStatusPending, ConnectionStatusAccepted, ConnectionStatusDeclined:
		return true
	}
	return false
}

// Live statuses block a new request between the same pair.
func (s ConnectionStatus) Live() bool {
	return s == ConnectionStatusPending || s == ConnectionStatusAccepted
}

// ConnectionRequest is a directed request between two members.
type ConnectionRequest struct {
	ID         uuid.UUID        `json:"id"`
	SenderID   uuid.UUID        `json:"sender_id"`
	ReceiverID uuid.UUID        `json:"receiver_id"`
	Status     ConnectionStatus `json:"status"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// Involves reports whether memberID is the sender or the receiver.
func (c *ConnectionRequest) Involves(memberID uuid.UUID) bool {
	return c.SenderID == memberID || c.ReceiverID == memberID
}

// OtherParty returns the member on the opposite side from memberID.
func (c *ConnectionRequest) OtherParty(memberID uuid.UUID) uuid.UUID {
	if c.SenderID == memberID {
		return c.ReceiverID
	}
	return c.SenderID
}

// Direction of a request relative to the viewing member
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// ConnectionView is a request projected for one of its members: Member is always
// the other party.
type ConnectionView struct {
	ID        uuid.UUID        `json:"id"`
	MemberID  uuid.UUID        `json:"member_id"`
	Member    *MemberProfile   `json:"member,omitempty"`
	Direction Direction        `json:"direction"`
	Status    ConnectionStatus `json:"status"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// ConnectionRole selects which side of a request a listing matches on.
type ConnectionRole int

const (
	RoleEither ConnectionRole = iota
	RoleSender
	RoleReceiver
)

type ConnectionRepository interface {
	// CreateConnectionRequest inserts a pending request. It returns ErrDuplicate when
	// a live request already exists for the unordered pair.
	CreateConnectionRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*ConnectionRequest, error)
	GetConnectionRequest(ctx context.Context, id uuid.UUID) (*ConnectionRequest, error)
	// FindLiveConnection returns the pending or accepted request between a and b in
	// either direction, or ErrNotFound.
	FindLiveConnection(ctx context.Context, a, b uuid.UUID) (*ConnectionRequest, error)
	// UpdateConnectionStatus moves a request from one status to another. It returns
	// ErrNotFound when no request with that id currently has status from.
	UpdateConnectionStatus(ctx context.Context, id uuid.UUID, from, to ConnectionStatus) (*ConnectionRequest, error)
	// DeleteConnectionRequest deletes a request only if it has the given status.
	DeleteConnectionRequest(ctx context.Context, id uuid.UUID, status ConnectionStatus) error
	ListMemberConnections(ctx context.Context, memberID uuid.UUID, role ConnectionRole, status ConnectionStatus, limit, offset int) ([]*ConnectionRequest, error)

	// Moderation
	ListConnectionRequests(ctx context.Context, status *ConnectionStatus, limit, offset int) ([]*ConnectionRequest, error)
	PurgeConnectionRequest(ctx context.Context, id uuid.UUID) error
}

// ConnectionNotifier is told about lifecycle events that concern the counterpart.
type ConnectionNotifier interface {
	ConnectionRequested(ctx context.Context, req *ConnectionRequest) error
	ConnectionAccepted(ctx context.Context, req *ConnectionRequest) error
}
