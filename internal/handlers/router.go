package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prudhvinik1/nurseaide/internal/models"
	"github.com/prudhvinik1/nurseaide/internal/services"
	"go.uber.org/zap"
)

// RequestCollection is the synced request store as seen by the dashboard.
type RequestCollection interface {
	Path() string
	View() models.CollectionView
	Watch(ctx context.Context) <-chan models.CollectionView
	Subscribe() error
	Delete(ctx context.Context, id string) <-chan models.DeleteResult
}

// RequestWriter creates new requests in the remote collection.
type RequestWriter interface {
	PutChild(ctx context.Context, path string, child models.RequestChild) (string, error)
}

// DeletionHistory reads the delete audit trail.
type DeletionHistory interface {
	ListByRequestID(ctx context.Context, path, requestID string) ([]*models.DeletionAudit, error)
}

type Authenticator interface {
	Register(ctx context.Context, email, displayName, password string) (*models.Caregiver, error)
	Login(ctx context.Context, email, password string) (*services.LoginResponse, error)
	VerifyToken(ctx context.Context, token string) (*services.TokenClaims, error)
	Logout(ctx context.Context, claims *services.TokenClaims) error
}

type Deps struct {
	Store  RequestCollection
	Writer RequestWriter
	Auth   Authenticator
	// History is optional; without it the deletions route is not mounted.
	History DeletionHistory
	Logger  *zap.Logger
	// DeviceToken guards the bedside writer route; empty disables it.
	DeviceToken string
}

func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(deps.Logger))
	router.Use(middleware.Recoverer)

	// Health check endpoints
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	auth := &authHandler{auth: deps.Auth, logger: deps.Logger}
	requests := &requestHandler{
		store:   deps.Store,
		writer:  deps.Writer,
		history: deps.History,
		logger:  deps.Logger,
	}

	router.Route("/auth", func(r chi.Router) {
		r.Post("/register", auth.register)
		r.Post("/login", auth.login)
		r.With(requireCaregiver(deps.Auth)).Post("/logout", auth.logout)
	})

	router.Route("/api/requests", func(r chi.Router) {
		if deps.DeviceToken != "" && deps.Writer != nil {
			r.With(requireDevice(deps.DeviceToken)).Post("/", requests.create)
		}

		r.Group(func(r chi.Router) {
			r.Use(requireCaregiver(deps.Auth))
			r.Get("/", requests.list)
			r.Get("/stream", requests.stream)
			r.Post("/refresh", requests.refresh)
			r.Delete("/{id}", requests.delete)
			if deps.History != nil {
				r.Get("/{id}/deletions", requests.deletions)
			}
		})
	})

	return router
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
