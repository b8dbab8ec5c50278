package domain

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jobizaaa/network/internal/metrics"
)

const (
	msgSelfRequest      = "you cannot send a connection request to yourself"
	msgMemberNotFound   = "member not found"
	msgAlreadyPending   = "a connection request is already pending between you and this member"
	msgAlreadyConnected = "you are already connected with this member"
	msgRequestNotFound  = "connection request not found"
	msgNotAllowed       = "you are not allowed to perform this action on this connection request"
)

type ConnectionService struct {
	repo     ConnectionRepository
	members  MemberDirectory
	notifier ConnectionNotifier
	logger   *zap.Logger
}

func NewConnectionService(repo ConnectionRepository, members MemberDirectory, notifier ConnectionNotifier, logger *zap.Logger) *ConnectionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectionService{
		repo:     repo,
		members:  members,
		notifier: notifier,
		logger:   logger,
	}
}

// SendRequest creates a pending request from senderID to receiverID.
func (s *ConnectionService) SendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*ConnectionRequest, error) {
	req, err := s.sendRequest(ctx, senderID, receiverID)
	if err != nil {
		return nil, s.rejected("send", err)
	}
	metrics.ConnectionTransitions.WithLabelValues("sent").Inc()

	if s.notifier != nil {
		if err := s.notifier.ConnectionRequested(ctx, req); err != nil {
			s.logger.Warn("connection request notification failed", zap.String("request_id", req.ID.String()), zap.Error(err))
		}
	}
	return req, nil
}

func (s *ConnectionService) sendRequest(ctx context.Context, senderID, receiverID uuid.UUID) (*ConnectionRequest, error) {
	if senderID == receiverID {
		return nil, NewError(KindInvalidTarget, msgSelfRequest)
	}

	exists, err := s.members.MemberExists(ctx, receiverID)
	if err != nil {
		return nil, internalError("check receiver", err)
	}
	if !exists {
		return nil, NewError(KindNotFound, msgMemberNotFound)
	}

	live, err := s.repo.FindLiveConnection(ctx, senderID, receiverID)
	switch {
	case err == nil:
		return nil, conflictFor(live)
	case !errors.Is(err, ErrNotFound):
		return nil, internalError("find live connection", err)
	}

	req, err := s.repo.CreateConnectionRequest(ctx, senderID, receiverID)
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			// Lost the race to a concurrent request for the same pair.
			if live, ferr := s.repo.FindLiveConnection(ctx, senderID, receiverID); ferr == nil {
				return nil, conflictFor(live)
			}
			return nil, NewError(KindConflict, msgAlreadyPending)
		}
		if errors.Is(err, ErrNotFound) {
			// A party was removed after the receiver check.
			return nil, NewError(KindNotFound, msgMemberNotFound)
		}
		return nil, internalError("create connection request", err)
	}
	return req, nil
}

func conflictFor(live *ConnectionRequest) *Error {
	if live.Status == ConnectionStatusAccepted {
		return NewError(KindConflict, msgAlreadyConnected)
	}
	return NewError(KindConflict, msgAlreadyPending)
}

// AcceptRequest moves a pending request addressed to actorID to accepted.
func (s *ConnectionService) AcceptRequest(ctx context.Context, actorID, requestID uuid.UUID) (*ConnectionRequest, error) {
	req, err := s.respond(ctx, actorID, requestID, ConnectionStatusAccepted)
	if err != nil {
		return nil, s.rejected("accept", err)
	}
	metrics.ConnectionTransitions.WithLabelValues("accepted").Inc()

	if s.notifier != nil {
		if err := s.notifier.ConnectionAccepted(ctx, req); err != nil {
			s.logger.Warn("connection accepted notification failed", zap.String("request_id", req.ID.String()), zap.Error(err))
		}
	}
	return req, nil
}

// DeclineRequest moves a pending request addressed to actorID to declined.
func (s *ConnectionService) DeclineRequest(ctx context.Context, actorID, requestID uuid.UUID) (*ConnectionRequest, error) {
	req, err := s.respond(ctx, actorID, requestID, ConnectionStatusDeclined)
	if err != nil {
		return nil, s.rejected("decline", err)
	}
	metrics.ConnectionTransitions.WithLabelValues("declined").Inc()
	return req, nil
}

func (s *ConnectionService) respond(ctx context.Context, actorID, requestID uuid.UUID, to ConnectionStatus) (*ConnectionRequest, error) {
	req, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ReceiverID != actorID || req.Status != ConnectionStatusPending {
		return nil, NewError(KindForbidden, msgNotAllowed)
	}

	updated, err := s.repo.UpdateConnectionStatus(ctx, requestID, ConnectionStatusPending, to)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, s.lostRace(ctx, requestID)
		}
		return nil, internalError("update connection status", err)
	}
	return updated, nil
}

// CancelRequest deletes a pending request sent by actorID.
func (s *ConnectionService) CancelRequest(ctx context.Context, actorID, requestID uuid.UUID) error {
	if err := s.cancel(ctx, actorID, requestID); err != nil {
		return s.rejected("cancel", err)
	}
	metrics.ConnectionTransitions.WithLabelValues("cancelled").Inc()
	return nil
}

func (s *ConnectionService) cancel(ctx context.Context, actorID, requestID uuid.UUID) error {
	req, err := s.load(ctx, requestID)
	if err != nil {
		return err
	}
	if req.SenderID != actorID || req.Status != ConnectionStatusPending {
		return NewError(KindForbidden, msgNotAllowed)
	}
	return s.delete(ctx, requestID, ConnectionStatusPending)
}

// RemoveConnection deletes an accepted connection on behalf of either member.
func (s *ConnectionService) RemoveConnection(ctx context.Context, actorID, requestID uuid.UUID) error {
	if err := s.remove(ctx, actorID, requestID); err != nil {
		return s.rejected("remove", err)
	}
	metrics.ConnectionTransitions.WithLabelValues("removed").Inc()
	return nil
}

func (s *ConnectionService) remove(ctx context.Context, actorID, requestID uuid.UUID) error {
	req, err := s.load(ctx, requestID)
	if err != nil {
		return err
	}
	if !req.Involves(actorID) || req.Status != ConnectionStatusAccepted {
		return NewError(KindForbidden, msgNotAllowed)
	}
	return s.delete(ctx, requestID, ConnectionStatusAccepted)
}

func (s *ConnectionService) delete(ctx context.Context, requestID uuid.UUID, status ConnectionStatus) error {
	if err := s.repo.DeleteConnectionRequest(ctx, requestID, status); err != nil {
		if errors.Is(err, ErrNotFound) {
			return s.lostRace(ctx, requestID)
		}
		return internalError("delete connection request", err)
	}
	return nil
}

func (s *ConnectionService) load(ctx context.Context, requestID uuid.UUID) (*ConnectionRequest, error) {
	req, err := s.repo.GetConnectionRequest(ctx, requestID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, NewError(KindNotFound, msgRequestNotFound)
		}
		return nil, internalError("get connection request", err)
	}
	return req, nil
}

// lostRace classifies a conditional write that matched no row: the request was
// either deleted or moved out of the expected status by a concurrent call.
func (s *ConnectionService) lostRace(ctx context.Context, requestID uuid.UUID) error {
	if _, err := s.load(ctx, requestID); err != nil {
		return err
	}
	return NewError(KindForbidden, msgNotAllowed)
}

// ListMyConnections returns the accepted connections of actorID.
func (s *ConnectionService) ListMyConnections(ctx context.Context, actorID uuid.UUID, page Page) ([]*ConnectionView, error) {
	return s.list(ctx, actorID, RoleEither, ConnectionStatusAccepted, page)
}

// ListSentPending returns pending requests sent by actorID.
func (s *ConnectionService) ListSentPending(ctx context.Context, actorID uuid.UUID, page Page) ([]*ConnectionView, error) {
	return s.list(ctx, actorID, RoleSender, ConnectionStatusPending, page)
}

// ListReceivedPending returns pending requests addressed to actorID.
func (s *ConnectionService) ListReceivedPending(ctx context.Context, actorID uuid.UUID, page Page) ([]*ConnectionView, error) {
	return s.list(ctx, actorID, RoleReceiver, ConnectionStatusPending, page)
}

func (s *ConnectionService) list(ctx context.Context, actorID uuid.UUID, role ConnectionRole, status ConnectionStatus, page Page) ([]*ConnectionView, error) {
	page = page.normalize()
	reqs, err := s.repo.ListMemberConnections(ctx, actorID, role, status, page.Limit, page.Offset)
	if err != nil {
		return nil, internalError("list connections", err)
	}
	return s.project(ctx, actorID, reqs)
}

// project maps requests to views of the other party. Missing profiles leave Member
// nil rather than failing the listing.
func (s *ConnectionService) project(ctx context.Context, actorID uuid.UUID, reqs []*ConnectionRequest) ([]*ConnectionView, error) {
	views := make([]*ConnectionView, 0, len(reqs))
	if len(reqs) == 0 {
		return views, nil
	}

	ids := make([]uuid.UUID, 0, len(reqs))
	for _, req := range reqs {
		ids = append(ids, req.OtherParty(actorID))
	}
	profiles, err := s.members.GetMemberProfiles(ctx, ids)
	if err != nil {
		return nil, internalError("load member profiles", err)
	}

	for _, req := range reqs {
		other := req.OtherParty(actorID)
		direction := DirectionReceived
		if req.SenderID == actorID {
			direction = DirectionSent
		}
		views = append(views, &ConnectionView{
			ID:        req.ID,
			MemberID:  other,
			Member:    profiles[other],
			Direction: direction,
			Status:    req.Status,
			CreatedAt: req.CreatedAt,
			UpdatedAt: req.UpdatedAt,
		})
	}
	return views, nil
}

func (s *ConnectionService) rejected(op string, err error) error {
	metrics.ConnectionRejections.WithLabelValues(op, string(KindOf(err))).Inc()
	return err
}
