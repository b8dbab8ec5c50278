package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/jobizaaa/network/internal/auth"
	"github.com/jobizaaa/network/internal/metrics"
	"github.com/jobizaaa/network/internal/middleware"
)

// Router holds all handlers and creates the chi router
type Router struct {
	Auth          *AuthHandler
	Members       *MemberHandler
	Connections   *ConnectionHandler
	Notifications *NotificationHandler
	Posts         *PostHandler
	Events        *EventHandler
	Admin         *AdminHandler
	Health        *HealthHandler
	WebSocket     *WebSocketManager

	JWT            *auth.JWTManager
	OTPLimiter     middleware.RateLimiter
	AllowedOrigins []string
	// TrustProxy takes the client address from X-Forwarded-For / X-Real-IP. Only
	// set it behind a proxy that overwrites those headers.
	TrustProxy bool
	// UploadsDir is served under /uploads when files are stored on local disk.
	UploadsDir string
	Logger     *zap.Logger
}

// Setup configures and returns the chi router
func (rt *Router) Setup() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	if rt.TrustProxy {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RecoveryMiddleware(rt.Logger))
	r.Use(middleware.LoggingMiddleware(rt.Logger))
	r.Use(middleware.CORSMiddleware(rt.AllowedOrigins))

	// Health endpoints (no auth required)
	r.Route("/health", func(r chi.Router) {
		r.Get("/", rt.Health.Health)
		r.Get("/ready", rt.Health.Ready)
		r.Get("/live", rt.Health.Live)
	})
	r.Handle("/metrics", metrics.Handler())

	if rt.UploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(rt.UploadsDir))))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Websocket upgrades must not go through the compressor.
		if rt.WebSocket != nil {
			r.With(middleware.WebSocketAuthMiddleware(rt.JWT)).Get("/ws", rt.WebSocket.ServeWS)
		}

		r.Group(func(r chi.Router) {
			r.Use(chimiddleware.Compress(5))

			r.Route("/auth", func(r chi.Router) {
				r.Post("/register", rt.Auth.Register)
				r.Post("/refresh", rt.Auth.Refresh)
				r.Post("/logout", rt.Auth.Logout)

				r.Group(func(r chi.Router) {
					if rt.OTPLimiter != nil {
						r.Use(middleware.RateLimit(rt.OTPLimiter))
					}
					r.Post("/otp/request", rt.Auth.RequestOTP)
					r.Post("/otp/verify", rt.Auth.VerifyOTP)
				})

				r.With(middleware.AuthMiddleware(rt.JWT)).Post("/logout-all", rt.Auth.LogoutAll)
			})

			// Protected routes
			r.Group(func(r chi.Router) {
				r.Use(middleware.AuthMiddleware(rt.JWT))

				r.Get("/me", rt.Members.Me)
				r.Put("/me", rt.Members.UpdateMe)
				r.Post("/me/avatar", rt.Members.UploadAvatar)

				r.Get("/members", rt.Members.Directory)
				r.Get("/members/{id}", rt.Members.GetMember)

				r.Route("/connections", func(r chi.Router) {
					r.Post("/", rt.Connections.SendRequest)
					r.Get("/my-connections", rt.Connections.MyConnections)
					r.Get("/my-connections/sent-pending", rt.Connections.SentPending)
					r.Get("/my-connections/received-pending", rt.Connections.ReceivedPending)
					r.Put("/{id}/accept", rt.Connections.Accept)
					r.Put("/{id}/decline", rt.Connections.Decline)
					r.Delete("/{id}", rt.Connections.Cancel)
					r.Delete("/{id}/remove", rt.Connections.Remove)
				})

				r.Route("/notifications", func(r chi.Router) {
					r.Get("/", rt.Notifications.GetNotifications)
					r.Put("/{id}/read", rt.Notifications.MarkRead)
					r.Post("/devices", rt.Notifications.RegisterDevice)
					r.Delete("/devices", rt.Notifications.UnregisterDevice)
				})

				r.Route("/posts", func(r chi.Router) {
					r.Get("/", rt.Posts.ListPosts)
					r.Post("/", rt.Posts.CreatePost)
					r.Get("/{id}", rt.Posts.GetPost)
					r.Delete("/{id}", rt.Posts.DeletePost)
				})

				r.Route("/events", func(r chi.Router) {
					r.Get("/", rt.Events.ListUpcoming)
					r.Get("/{id}", rt.Events.GetEvent)
				})

				r.Route("/admin", func(r chi.Router) {
					r.Use(middleware.RequireAdmin)

					r.Get("/members", rt.Admin.ListMembers)
					r.Get("/members/export", rt.Admin.ExportMembers)
					r.Put("/members/{id}/approve", rt.Admin.Approve)
					r.Put("/members/{id}/reject", rt.Admin.Reject)
					r.Put("/members/{id}/suspend", rt.Admin.Suspend)

					r.Get("/connections", rt.Admin.ListConnectionRequests)
					r.Delete("/connections/{id}", rt.Admin.DeleteConnectionRequest)

					r.Delete("/posts/{id}", rt.Posts.DeletePost)

					r.Post("/events", rt.Events.CreateEvent)
					r.Delete("/events/{id}", rt.Events.DeleteEvent)
				})
			})
		})
	})

	return r
}
