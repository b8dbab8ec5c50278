package domain

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var errStoreDown = errors.New("connection refused")

// memConnections is an in-memory ConnectionRepository. Inserts check the live
// pair under the lock, which gives the same guarantee as the partial unique index.
type memConnections struct {
	mu    sync.Mutex
	reqs  map[uuid.UUID]*ConnectionRequest
	clock time.Time
	err   error
	// skipLiveCheck makes FindLiveConnection report nothing, so SendRequest falls
	// through to the insert as if it lost a check-then-insert race.
	skipLiveCheck bool
}

func newMemConnections() *memConnections {
	return &memConnections{
		reqs:  make(map[uuid.UUID]*ConnectionRequest),
		clock: time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func (m *memConnections) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func samePair(r *ConnectionRequest, a, b uuid.UUID) bool {
	return (r.SenderID == a && r.ReceiverID == b) || (r.SenderID == b && r.ReceiverID == a)
}

func (m *memConnections) CreateConnectionRequest(_ context.Context, senderID, receiverID uuid.UUID) (*ConnectionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, r := range m.reqs {
		if r.Status.Live() && samePair(r, senderID, receiverID) {
			return nil, ErrDuplicate
		}
	}
	now := m.tick()
	req := &ConnectionRequest{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		Status:     ConnectionStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	m.reqs[req.ID] = req
	clone := *req
	return &clone, nil
}

func (m *memConnections) GetConnectionRequest(_ context.Context, id uuid.UUID) (*ConnectionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.reqs[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (m *memConnections) FindLiveConnection(_ context.Context, a, b uuid.UUID) (*ConnectionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.skipLiveCheck {
		return nil, ErrNotFound
	}
	for _, r := range m.reqs {
		if r.Status.Live() && samePair(r, a, b) {
			clone := *r
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memConnections) UpdateConnectionStatus(_ context.Context, id uuid.UUID, from, to ConnectionStatus) (*ConnectionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	r, ok := m.reqs[id]
	if !ok || r.Status != from {
		return nil, ErrNotFound
	}
	r.Status = to
	r.UpdatedAt = m.tick()
	clone := *r
	return &clone, nil
}

func (m *memConnections) DeleteConnectionRequest(_ context.Context, id uuid.UUID, status ConnectionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	r, ok := m.reqs[id]
	if !ok || r.Status != status {
		return ErrNotFound
	}
	delete(m.reqs, id)
	return nil
}

func (m *memConnections) ListMemberConnections(_ context.Context, memberID uuid.UUID, role ConnectionRole, status ConnectionStatus, limit, offset int) ([]*ConnectionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*ConnectionRequest
	for _, r := range m.reqs {
		if r.Status != status {
			continue
		}
		match := false
		switch role {
		case RoleSender:
			match = r.SenderID == memberID
		case RoleReceiver:
			match = r.ReceiverID == memberID
		default:
			match = r.Involves(memberID)
		}
		if match {
			clone := *r
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return window(out, limit, offset), nil
}

func (m *memConnections) ListConnectionRequests(_ context.Context, status *ConnectionStatus, limit, offset int) ([]*ConnectionRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*ConnectionRequest
	for _, r := range m.reqs {
		if status == nil || r.Status == *status {
			clone := *r
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return window(out, limit, offset), nil
}

func (m *memConnections) PurgeConnectionRequest(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.reqs[id]; !ok {
		return ErrNotFound
	}
	delete(m.reqs, id)
	return nil
}

func (m *memConnections) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reqs)
}

func window[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items
}

// memMembers is an in-memory MemberRepository.
type memMembers struct {
	mu      sync.Mutex
	members map[uuid.UUID]*Member
	clock   time.Time
	err     error
}

func newMemMembers() *memMembers {
	return &memMembers{
		members: make(map[uuid.UUID]*Member),
		clock:   time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC),
	}
}

// add stores an approved member with the given name.
func (m *memMembers) add(name string) *Member {
	member, _ := m.CreateMember(context.Background(), CreateMemberParams{
		Email:    strings.ToLower(name) + "@example.com",
		Name:     name,
		Company:  name + " Corp",
		JobTitle: "CEO",
		Role:     MemberRoleMember,
		Status:   MemberStatusApproved,
	})
	return member
}

func (m *memMembers) MemberExists(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	member, ok := m.members[id]
	return ok && member.Status == MemberStatusApproved, nil
}

func (m *memMembers) GetMemberProfiles(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]*MemberProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[uuid.UUID]*MemberProfile, len(ids))
	for _, id := range ids {
		if member, ok := m.members[id]; ok {
			out[id] = member.ToProfile()
		}
	}
	return out, nil
}

func (m *memMembers) CreateMember(_ context.Context, params CreateMemberParams) (*Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.members {
		if existing.Email == params.Email {
			return nil, ErrDuplicate
		}
	}
	m.clock = m.clock.Add(time.Minute)
	member := &Member{
		ID:          uuid.New(),
		Email:       params.Email,
		Phone:       params.Phone,
		Name:        params.Name,
		Company:     params.Company,
		JobTitle:    params.JobTitle,
		LinkedInURL: params.LinkedInURL,
		Role:        params.Role,
		Status:      params.Status,
		CreatedAt:   m.clock,
		UpdatedAt:   m.clock,
	}
	m.members[member.ID] = member
	clone := *member
	return &clone, nil
}

func (m *memMembers) get(id uuid.UUID) (*Member, error) {
	member, ok := m.members[id]
	if !ok {
		return nil, ErrNotFound
	}
	return member, nil
}

func (m *memMembers) GetMemberByID(_ context.Context, id uuid.UUID) (*Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, err := m.get(id)
	if err != nil {
		return nil, err
	}
	clone := *member
	return &clone, nil
}

func (m *memMembers) GetMemberByEmail(_ context.Context, email string) (*Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, member := range m.members {
		if member.Email == email {
			clone := *member
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memMembers) UpdateMemberProfile(_ context.Context, id uuid.UUID, params UpdateProfileParams) (*Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, err := m.get(id)
	if err != nil {
		return nil, err
	}
	if params.Name != nil {
		member.Name = *params.Name
	}
	if params.Company != nil {
		member.Company = *params.Company
	}
	if params.JobTitle != nil {
		member.JobTitle = *params.JobTitle
	}
	if params.Bio != nil {
		member.Bio = params.Bio
	}
	clone := *member
	return &clone, nil
}

func (m *memMembers) UpdateMemberAvatar(_ context.Context, id uuid.UUID, avatarURL string) (*Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, err := m.get(id)
	if err != nil {
		return nil, err
	}
	member.AvatarURL = &avatarURL
	clone := *member
	return &clone, nil
}

func (m *memMembers) UpdateMemberStatus(_ context.Context, id uuid.UUID, status MemberStatus) (*Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, err := m.get(id)
	if err != nil {
		return nil, err
	}
	member.Status = status
	clone := *member
	return &clone, nil
}

func (m *memMembers) PromoteMember(_ context.Context, id uuid.UUID) (*Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	member, err := m.get(id)
	if err != nil {
		return nil, err
	}
	member.Role = MemberRoleAdmin
	clone := *member
	return &clone, nil
}

func (m *memMembers) ListMembers(_ context.Context, filter MemberFilter, limit, offset int) ([]*Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Member
	q := strings.ToLower(filter.Query)
	for _, member := range m.members {
		if filter.Status != nil && member.Status != *filter.Status {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(member.Name+" "+member.Company+" "+member.Email), q) {
			continue
		}
		clone := *member
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return window(out, limit, offset), nil
}

// recordingNotifier captures lifecycle notifications.
type recordingNotifier struct {
	mu        sync.Mutex
	requested []*ConnectionRequest
	accepted  []*ConnectionRequest
	err       error
}

func (n *recordingNotifier) ConnectionRequested(_ context.Context, req *ConnectionRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.requested = append(n.requested, req)
	return n.err
}

func (n *recordingNotifier) ConnectionAccepted(_ context.Context, req *ConnectionRequest) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.accepted = append(n.accepted, req)
	return n.err
}

// memAuth is an in-memory AuthRepository.
type memAuth struct {
	mu     sync.Mutex
	codes  []*OTPCode
	tokens map[string]*RefreshToken
}

func newMemAuth() *memAuth {
	return &memAuth{tokens: make(map[string]*RefreshToken)}
}

func (m *memAuth) CreateOTPCode(_ context.Context, memberID uuid.UUID, codeHash string, expiresAt time.Time) (*OTPCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for _, c := range m.codes {
		if c.MemberID == memberID && c.ConsumedAt == nil {
			c.ConsumedAt = &now
		}
	}
	code := &OTPCode{ID: uuid.New(), MemberID: memberID, CodeHash: codeHash, ExpiresAt: expiresAt, CreatedAt: now}
	m.codes = append(m.codes, code)
	clone := *code
	return &clone, nil
}

func (m *memAuth) GetActiveOTPCode(_ context.Context, memberID uuid.UUID) (*OTPCode, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.codes) - 1; i >= 0; i-- {
		if c := m.codes[i]; c.MemberID == memberID && c.ConsumedAt == nil {
			clone := *c
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memAuth) findCode(id uuid.UUID) *OTPCode {
	for _, c := range m.codes {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (m *memAuth) ReserveOTPAttempt(_ context.Context, id uuid.UUID, maxAttempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.findCode(id)
	if c == nil || c.ConsumedAt != nil || c.Attempts >= maxAttempts {
		return ErrNotFound
	}
	c.Attempts++
	return nil
}

func (m *memAuth) attempts(memberID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, c := range m.codes {
		if c.MemberID == memberID {
			total += c.Attempts
		}
	}
	return total
}

func (m *memAuth) ConsumeOTPCode(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.findCode(id)
	if c == nil || c.ConsumedAt != nil {
		return ErrNotFound
	}
	now := time.Now()
	c.ConsumedAt = &now
	return nil
}

func (m *memAuth) CreateRefreshToken(_ context.Context, params CreateRefreshTokenParams) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token := &RefreshToken{
		ID:        uuid.New(),
		MemberID:  params.MemberID,
		TokenHash: params.TokenHash,
		ExpiresAt: params.ExpiresAt,
		CreatedAt: time.Now(),
	}
	m.tokens[params.TokenHash] = token
	clone := *token
	return &clone, nil
}

func (m *memAuth) GetRefreshTokenByHash(_ context.Context, hash string) (*RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.tokens[hash]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *token
	return &clone, nil
}

func (m *memAuth) RevokeRefreshToken(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, token := range m.tokens {
		if token.ID == id {
			token.Revoked = true
		}
	}
	return nil
}

func (m *memAuth) RevokeRefreshTokenByHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if token, ok := m.tokens[hash]; ok {
		token.Revoked = true
	}
	return nil
}

func (m *memAuth) RevokeMemberRefreshTokens(_ context.Context, memberID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, token := range m.tokens {
		if token.MemberID == memberID {
			token.Revoked = true
		}
	}
	return nil
}

func (m *memAuth) liveTokens(memberID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, token := range m.tokens {
		if token.MemberID == memberID && !token.Revoked {
			n++
		}
	}
	return n
}

// captureSender remembers the last code sent to each email.
type captureSender struct {
	mu    sync.Mutex
	codes map[string]string
}

func (s *captureSender) SendOTP(_ context.Context, email, _, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.codes == nil {
		s.codes = make(map[string]string)
	}
	s.codes[email] = code
	return nil
}

func (s *captureSender) last(email string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[email]
	return code, ok
}
