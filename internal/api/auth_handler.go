package api

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/jobizaaa/network/internal/domain"
	"github.com/jobizaaa/network/internal/middleware"
	"github.com/jobizaaa/network/pkg/response"
	"github.com/jobizaaa/network/pkg/validator"
)

// AuthHandler handles registration and OTP login
type AuthHandler struct {
	authService *domain.AuthService
	// emailLimiter throttles OTP traffic per target address, independent of the caller's IP
	emailLimiter middleware.RateLimiter
	logger       *zap.Logger
}

// NewAuthHandler creates a new auth handler. emailLimiter may be nil.
func NewAuthHandler(authService *domain.AuthService, emailLimiter middleware.RateLimiter, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		emailLimiter: emailLimiter,
		logger:       logger,
	}
}

func (h *AuthHandler) allowEmail(w http.ResponseWriter, email string) bool {
	if h.emailLimiter == nil || h.emailLimiter.Allow(email) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	response.TooManyRequests(w, "too many login attempts for this email, try again later")
	return false
}

// RegisterRequest represents the registration request body
type RegisterRequest struct {
	Email       string  `json:"email" validate:"required,email,max=254"`
	Name        string  `json:"name" validate:"required,min=2,max=100"`
	Phone       *string `json:"phone,omitempty" validate:"omitempty,phone"`
	Company     string  `json:"company" validate:"required,max=150"`
	JobTitle    string  `json:"job_title" validate:"required,max=150"`
	LinkedInURL *string `json:"linkedin_url,omitempty" validate:"omitempty,url,max=300"`
}

// OTPRequest asks for a login code
type OTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyOTPRequest exchanges a login code for tokens
type VerifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,numeric,len=6"`
}

// RefreshRequest represents the token refresh request body
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	member, err := h.authService.Register(r.Context(), domain.RegisterParams{
		Email:       validator.SanitizeEmail(req.Email),
		Phone:       req.Phone,
		Name:        validator.SanitizeString(req.Name, 100),
		Company:     validator.SanitizeString(req.Company, 150),
		JobTitle:    validator.SanitizeString(req.JobTitle, 150),
		LinkedInURL: req.LinkedInURL,
	})
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.Created(w, member)
}

// RequestOTP handles POST /auth/otp/request
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req OTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	email := validator.SanitizeEmail(req.Email)
	if !h.allowEmail(w, email) {
		return
	}

	if err := h.authService.RequestOTP(r.Context(), email); err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.OK(w, map[string]string{"message": "if the email belongs to an approved member, a login code has been sent"})
}

// VerifyOTP handles POST /auth/otp/verify
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	email := validator.SanitizeEmail(req.Email)
	if !h.allowEmail(w, email) {
		return
	}

	result, err := h.authService.VerifyOTP(r.Context(), email, req.Code)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.OK(w, result)
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.authService.RefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.OK(w, result)
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := h.authService.Logout(r.Context(), req.RefreshToken); err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.NoContent(w)
}

// LogoutAll handles POST /auth/logout-all
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	memberID, ok := currentMember(w, r)
	if !ok {
		return
	}

	if err := h.authService.LogoutAll(r.Context(), memberID); err != nil {
		respondError(w, err, h.logger)
		return
	}

	response.NoContent(w)
}
