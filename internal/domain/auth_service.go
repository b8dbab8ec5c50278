package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jobizaaa/network/internal/auth"
	"github.com/jobizaaa/network/internal/metrics"
)

var (
	ErrInvalidCredentials = NewError(KindUnauthorized, "invalid or expired code")
	ErrTokenRevoked       = NewError(KindUnauthorized, "invalid refresh token")
	ErrEmailTaken         = NewError(KindConflict, "a member with this email already exists")
	ErrAwaitingApproval   = NewError(KindForbidden, "your membership is awaiting admin approval")
	ErrMembershipInactive = NewError(KindForbidden, "your membership is not active")
)

// OTPCode is a stored one-time login code
type OTPCode struct {
	ID         uuid.UUID
	MemberID   uuid.UUID
	CodeHash   string
	Attempts   int
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// RefreshToken represents a stored refresh token
type RefreshToken struct {
	ID        uuid.UUID  `json:"id"`
	MemberID  uuid.UUID  `json:"member_id"`
	TokenHash string     `json:"-"`
	ExpiresAt time.Time  `json:"expires_at"`
	Revoked   bool       `json:"revoked"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// AuthRepository defines the interface for OTP and token data access
type AuthRepository interface {
	// CreateOTPCode stores a new code and invalidates earlier unconsumed ones.
	CreateOTPCode(ctx context.Context, memberID uuid.UUID, codeHash string, expiresAt time.Time) (*OTPCode, error)
	GetActiveOTPCode(ctx context.Context, memberID uuid.UUID) (*OTPCode, error)
	// ReserveOTPAttempt counts one verification attempt against an unconsumed code
	// holding fewer than maxAttempts. It returns ErrNotFound when none is left.
	ReserveOTPAttempt(ctx context.Context, id uuid.UUID, maxAttempts int) error
	ConsumeOTPCode(ctx context.Context, id uuid.UUID) error

	CreateRefreshToken(ctx context.Context, params CreateRefreshTokenParams) (*RefreshToken, error)
	GetRefreshTokenByHash(ctx context.Context, hash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id uuid.UUID) error
	RevokeRefreshTokenByHash(ctx context.Context, hash string) error
	RevokeMemberRefreshTokens(ctx context.Context, memberID uuid.UUID) error
}

// CreateRefreshTokenParams holds parameters for refresh token creation
type CreateRefreshTokenParams struct {
	MemberID  uuid.UUID
	TokenHash string
	ExpiresAt time.Time
}

// RegisterParams holds the registration form
type RegisterParams struct {
	Email       string
	Phone       *string
	Name        string
	Company     string
	JobTitle    string
	LinkedInURL *string
}

// AuthOptions tunes the OTP flow
type AuthOptions struct {
	OTPTTL         time.Duration
	OTPMaxAttempts int
}

// AuthService handles registration and OTP login
type AuthService struct {
	members MemberRepository
	repo    AuthRepository
	jwt     *auth.JWTManager
	sender  auth.OTPSender
	opts    AuthOptions
	now     func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(members MemberRepository, repo AuthRepository, jwt *auth.JWTManager, sender auth.OTPSender, opts AuthOptions) *AuthService {
	if opts.OTPTTL <= 0 {
		opts.OTPTTL = 10 * time.Minute
	}
	if opts.OTPMaxAttempts <= 0 {
		opts.OTPMaxAttempts = 5
	}
	return &AuthService{
		members: members,
		repo:    repo,
		jwt:     jwt,
		sender:  sender,
		opts:    opts,
		now:     time.Now,
	}
}

// Register creates a member awaiting admin approval
func (s *AuthService) Register(ctx context.Context, params RegisterParams) (*Member, error) {
	member, err := s.members.CreateMember(ctx, CreateMemberParams{
		Email:       params.Email,
		Phone:       params.Phone,
		Name:        params.Name,
		Company:     params.Company,
		JobTitle:    params.JobTitle,
		LinkedInURL: params.LinkedInURL,
		Role:        MemberRoleMember,
		Status:      MemberStatusPendingApproval,
	})
	if err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrEmailTaken
		}
		return nil, internalError("create member", err)
	}
	return member, nil
}

// RequestOTP issues a login code to an approved member. Unknown emails succeed
// silently so the endpoint does not reveal who is registered.
func (s *AuthService) RequestOTP(ctx context.Context, email string) error {
	member, err := s.members.GetMemberByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return internalError("get member", err)
	}
	if err := checkLoginAllowed(member); err != nil {
		return err
	}

	code, err := auth.GenerateOTP()
	if err != nil {
		return internalError("generate otp", err)
	}
	hash, err := auth.HashCode(code)
	if err != nil {
		return internalError("hash otp", err)
	}
	if _, err := s.repo.CreateOTPCode(ctx, member.ID, hash, s.now().Add(s.opts.OTPTTL)); err != nil {
		return internalError("store otp", err)
	}
	if err := s.sender.SendOTP(ctx, member.Email, member.Name, code); err != nil {
		return internalError("send otp", err)
	}
	metrics.OTPIssued.Inc()
	return nil
}

func checkLoginAllowed(member *Member) error {
	switch member.Status {
	case MemberStatusApproved:
		return nil
	case MemberStatusPendingApproval:
		return ErrAwaitingApproval
	default:
		return ErrMembershipInactive
	}
}

// LoginResult represents the result of a successful OTP verification
type LoginResult struct {
	Member       *Member `json:"member"`
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
}

// VerifyOTP exchanges a valid code for a token pair
func (s *AuthService) VerifyOTP(ctx context.Context, email, code string) (*LoginResult, error) {
	member, err := s.members.GetMemberByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, internalError("get member", err)
	}
	if err := checkLoginAllowed(member); err != nil {
		return nil, err
	}

	otp, err := s.repo.GetActiveOTPCode(ctx, member.ID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, internalError("get otp", err)
	}
	if !s.now().Before(otp.ExpiresAt) {
		return nil, ErrInvalidCredentials
	}
	if err := s.repo.ReserveOTPAttempt(ctx, otp.ID, s.opts.OTPMaxAttempts); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, internalError("record otp attempt", err)
	}

	if err := auth.VerifyCode(code, otp.CodeHash); err != nil {
		if errors.Is(err, auth.ErrCodeMismatch) {
			return nil, ErrInvalidCredentials
		}
		return nil, internalError("verify otp", err)
	}

	if err := s.repo.ConsumeOTPCode(ctx, otp.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			// Consumed by a concurrent verification.
			return nil, ErrInvalidCredentials
		}
		return nil, internalError("consume otp", err)
	}

	pair, err := s.issueTokens(ctx, member)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		Member:       member,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

func (s *AuthService) issueTokens(ctx context.Context, member *Member) (*auth.TokenPair, error) {
	pair, err := s.jwt.GenerateTokenPair(member.ID, member.Email, string(member.Role))
	if err != nil {
		return nil, internalError("generate tokens", err)
	}
	_, err = s.repo.CreateRefreshToken(ctx, CreateRefreshTokenParams{
		MemberID:  member.ID,
		TokenHash: auth.HashToken(pair.RefreshToken),
		ExpiresAt: pair.ExpiresAt,
	})
	if err != nil {
		return nil, internalError("store refresh token", err)
	}
	return pair, nil
}

// RefreshResult represents the result of token refresh
type RefreshResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken validates and rotates a refresh token
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	claims, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrTokenRevoked
	}

	stored, err := s.repo.GetRefreshTokenByHash(ctx, auth.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrTokenRevoked
		}
		return nil, internalError("get refresh token", err)
	}

	if stored.Revoked {
		// Token reuse detected - revoke all member tokens
		_ = s.repo.RevokeMemberRefreshTokens(ctx, claims.MemberID)
		return nil, ErrTokenRevoked
	}

	if err := s.repo.RevokeRefreshToken(ctx, stored.ID); err != nil {
		return nil, internalError("revoke refresh token", err)
	}

	member, err := s.members.GetMemberByID(ctx, claims.MemberID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrTokenRevoked
		}
		return nil, internalError("get member", err)
	}
	if err := checkLoginAllowed(member); err != nil {
		return nil, err
	}

	pair, err := s.issueTokens(ctx, member)
	if err != nil {
		return nil, err
	}
	return &RefreshResult{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	}, nil
}

// Logout revokes a refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.repo.RevokeRefreshTokenByHash(ctx, auth.HashToken(refreshToken)); err != nil {
		return internalError("revoke refresh token", err)
	}
	return nil
}

// LogoutAll revokes all refresh tokens for a member
func (s *AuthService) LogoutAll(ctx context.Context, memberID uuid.UUID) error {
	if err := s.repo.RevokeMemberRefreshTokens(ctx, memberID); err != nil {
		return internalError("revoke member tokens", err)
	}
	return nil
}

// EnsureAdmin makes email an approved administrator, creating the member if needed.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, name string) (*Member, error) {
	member, err := s.members.GetMemberByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrNotFound):
		return s.members.CreateMember(ctx, CreateMemberParams{
			Email:    email,
			Name:     name,
			Company:  "Jobizaaa",
			JobTitle: "Administrator",
			Role:     MemberRoleAdmin,
			Status:   MemberStatusApproved,
		})
	case err != nil:
		return nil, err
	case member.IsAdmin():
		return member, nil
	}
	if member.Status != MemberStatusApproved {
		if member, err = s.members.UpdateMemberStatus(ctx, member.ID, MemberStatusApproved); err != nil {
			return nil, err
		}
	}
	return s.members.PromoteMember(ctx, member.ID)
}
