package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const pushTimeout = 10 * time.Second

type NotificationService struct {
	repo     NotificationRepository
	members  MemberDirectory
	push     PushSender
	realtime RealtimePublisher
	logger   *zap.Logger
}

// NewNotificationService wires persistence with the optional push and realtime
// channels; either may be nil.
func NewNotificationService(repo NotificationRepository, members MemberDirectory, push PushSender, realtime RealtimePublisher, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		repo:     repo,
		members:  members,
		push:     push,
		realtime: realtime,
		logger:   logger,
	}
}

func (s *NotificationService) GetNotifications(ctx context.Context, memberID uuid.UUID, page Page) ([]*Notification, error) {
	page = page.normalize()
	notifs, err := s.repo.GetNotifications(ctx, memberID, page.Limit, page.Offset)
	if err != nil {
		return nil, internalError("get notifications", err)
	}
	if notifs == nil {
		notifs = []*Notification{}
	}
	return notifs, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, memberID, notificationID uuid.UUID) error {
	if err := s.repo.MarkNotificationRead(ctx, memberID, notificationID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewError(KindNotFound, "notification not found")
		}
		return internalError("mark notification read", err)
	}
	return nil
}

func (s *NotificationService) RegisterDevice(ctx context.Context, memberID uuid.UUID, token, platform string) error {
	if err := s.repo.UpsertDeviceToken(ctx, memberID, token, platform); err != nil {
		return internalError("register device", err)
	}
	return nil
}

func (s *NotificationService) UnregisterDevice(ctx context.Context, memberID uuid.UUID, token string) error {
	if err := s.repo.DeleteDeviceToken(ctx, memberID, token); err != nil && !errors.Is(err, ErrNotFound) {
		return internalError("unregister device", err)
	}
	return nil
}

// SendNotification stores a notification and fans it out over websocket and push.
func (s *NotificationService) SendNotification(ctx context.Context, memberID uuid.UUID, typeStr, title, body string, data Map) error {
	notif, err := s.repo.CreateNotification(ctx, memberID, typeStr, title, body, data)
	if err != nil {
		return err
	}

	if s.realtime != nil {
		s.realtime.SendToMember(memberID, RealtimeEvent{Type: typeStr, Payload: notif})
	}

	if s.push == nil {
		return nil
	}

	strData := make(map[string]string, len(data)+1)
	for k, v := range data {
		strData[k] = fmt.Sprintf("%v", v)
	}
	strData["type"] = typeStr

	tokens, err := s.repo.GetDeviceTokens(ctx, memberID)
	if err != nil {
		s.logger.Warn("failed to get device tokens", zap.String("member_id", memberID.String()), zap.Error(err))
		return nil
	}

	for _, token := range tokens {
		if token == "" {
			continue
		}
		go s.pushTo(memberID, token, title, body, strData)
	}
	return nil
}

// pushTo sends one push and forgets devices FCM reports as unregistered.
func (s *NotificationService) pushTo(memberID uuid.UUID, token, title, body string, data map[string]string) {
	ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
	defer cancel()

	err := s.push.Send(ctx, token, title, body, data)
	if !errors.Is(err, ErrDeviceUnregistered) {
		return
	}
	if err := s.repo.DeleteDeviceToken(ctx, memberID, token); err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Warn("failed to prune device token", zap.String("member_id", memberID.String()), zap.Error(err))
	}
}

// ConnectionRequested tells the receiver about a new request.
func (s *NotificationService) ConnectionRequested(ctx context.Context, req *ConnectionRequest) error {
	name := s.displayName(ctx, req.SenderID)
	return s.SendNotification(ctx, req.ReceiverID, NotificationConnectionRequest,
		"New connection request",
		fmt.Sprintf("%s wants to connect with you", name),
		Map{"connection_id": req.ID.String(), "member_id": req.SenderID.String()},
	)
}

// ConnectionAccepted tells the sender their request was accepted.
func (s *NotificationService) ConnectionAccepted(ctx context.Context, req *ConnectionRequest) error {
	name := s.displayName(ctx, req.ReceiverID)
	return s.SendNotification(ctx, req.SenderID, NotificationConnectionAccepted,
		"Connection accepted",
		fmt.Sprintf("%s accepted your connection request", name),
		Map{"connection_id": req.ID.String(), "member_id": req.ReceiverID.String()},
	)
}

func (s *NotificationService) displayName(ctx context.Context, memberID uuid.UUID) string {
	profiles, err := s.members.GetMemberProfiles(ctx, []uuid.UUID{memberID})
	if err != nil {
		return "A member"
	}
	if p, ok := profiles[memberID]; ok && p.Name != "" {
		return p.Name
	}
	return "A member"
}
