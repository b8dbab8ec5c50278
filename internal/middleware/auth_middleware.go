package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jobizaaa/network/internal/auth"
	"github.com/jobizaaa/network/pkg/response"
)

type contextKey string

const (
	MemberIDKey contextKey = "member_id"
	EmailKey    contextKey = "email"
	RoleKey     contextKey = "role"

	memberHolderKey contextKey = "member_holder"
)

const roleAdmin = "admin"

// AuthMiddleware creates JWT authentication middleware
func AuthMiddleware(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return authenticate(jwtManager, false)
}

// WebSocketAuthMiddleware also accepts the access token as a ?token= query
// parameter, since browsers cannot set headers on websocket upgrades.
func WebSocketAuthMiddleware(jwtManager *auth.JWTManager) func(http.Handler) http.Handler {
	return authenticate(jwtManager, true)
}

func authenticate(jwtManager *auth.JWTManager, allowQuery bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, msg := bearerToken(r)
			if token == "" && allowQuery {
				token = r.URL.Query().Get("token")
			}
			if token == "" {
				response.Unauthorized(w, msg)
				return
			}

			claims, err := jwtManager.ValidateAccessToken(token)
			if err != nil {
				if errors.Is(err, auth.ErrExpiredToken) {
					response.Unauthorized(w, "token has expired")
					return
				}
				response.Unauthorized(w, "invalid token")
				return
			}

			ctx := WithMember(r.Context(), claims.MemberID, claims.Email, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", "missing authorization header"
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", "invalid authorization header format"
	}
	return parts[1], ""
}

// RequireAdmin rejects callers whose token does not carry the admin role.
// It must run after AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			response.Forbidden(w, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithMember stores the authenticated member in ctx
func WithMember(ctx context.Context, memberID uuid.UUID, email, role string) context.Context {
	if h, ok := ctx.Value(memberHolderKey).(*memberHolder); ok {
		h.id, h.set = memberID, true
	}
	ctx = context.WithValue(ctx, MemberIDKey, memberID)
	ctx = context.WithValue(ctx, EmailKey, email)
	return context.WithValue(ctx, RoleKey, role)
}

// GetMemberID extracts member ID from context
func GetMemberID(ctx context.Context) (uuid.UUID, bool) {
	memberID, ok := ctx.Value(MemberIDKey).(uuid.UUID)
	return memberID, ok
}

// GetEmail extracts email from context
func GetEmail(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(EmailKey).(string)
	return email, ok
}

// GetRole extracts the member role from context
func GetRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}

func IsAdmin(ctx context.Context) bool {
	role, _ := GetRole(ctx)
	return role == roleAdmin
}

// memberHolder carries the authenticated member back up to the logging middleware.
type memberHolder struct {
	id  uuid.UUID
	set bool
}

func withMemberHolder(ctx context.Context, h *memberHolder) context.Context {
	return context.WithValue(ctx, memberHolderKey, h)
}
