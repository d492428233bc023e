// Package rest is the HTTP adapter of the identity server: a chi router with
// request-id, recovery, logging, CORS and bearer-token middleware in front of
// the user and role services.
package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/gophidentity/internal/logging"
	"github.com/dmitrijs2005/gophidentity/internal/server/auth"
	"github.com/dmitrijs2005/gophidentity/internal/server/config"
	"github.com/dmitrijs2005/gophidentity/internal/server/models"
	"github.com/dmitrijs2005/gophidentity/internal/server/services"
	"github.com/go-chi/chi/v5"
)

type UserService interface {
	Register(ctx context.Context, username, password, fullName string) (string, error)
	Login(ctx context.Context, username, password string) (*services.LoginResult, error)
	GetProfile(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id, newUserName, newFullName string) (string, error)
	ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error
	DeleteIdentity(ctx context.Context, id string) error
}

type RoleService interface {
	CreateRole(ctx context.Context, name string) (string, error)
	GrantRole(ctx context.Context, email, roleName string) error
	RevokeRole(ctx context.Context, email, roleName string) error
	ListRoles(ctx context.Context) ([]models.Role, error)
}

type TokenVerifier interface {
	ParseToken(token string) (*auth.Claims, error)
}

// Handler binds the HTTP routes to the services.
type Handler struct {
	users  UserService
	roles  RoleService
	tokens TokenVerifier
	log    logging.Logger

	adminRole       string
	roleReaders     []string
	corsOrigins     []string
	requestTimeout  time.Duration
	readinessProbes []func(context.Context) error
}

func NewHandler(users UserService, roles RoleService, tokens TokenVerifier, cfg *config.Config, log logging.Logger) *Handler {
	return &Handler{
		users:          users,
		roles:          roles,
		tokens:         tokens,
		log:            log.With("module", "http"),
		adminRole:      cfg.AdminRole,
		roleReaders:    cfg.RoleReaderRoles,
		corsOrigins:    cfg.CORSAllowedOrigins,
		requestTimeout: cfg.RequestTimeout,
	}
}

// WithReadinessProbe adds a check consulted by /readyz.
func (h *Handler) WithReadinessProbe(probe func(context.Context) error) *Handler {
	h.readinessProbes = append(h.readinessProbes, probe)
	return h
}

// NewRouter registers the HTTP routes and the middleware stack.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(h.requestIDMiddleware)
	r.Use(h.recoverMiddleware)
	r.Use(h.loggingMiddleware)
	r.Use(h.corsMiddleware)
	r.Use(h.timeoutMiddleware)

	r.Get("/healthz", h.healthz)
	r.Get("/readyz", h.readyz)

	r.Post("/login", h.login)
	r.Post("/register", h.register)

	r.Group(func(r chi.Router) {
		r.Use(h.authMiddleware)

		r.Delete("/user", h.deleteUser)
		r.Route("/user/{id}", func(r chi.Router) {
			r.Use(h.selfOrAdmin)
			r.Get("/", h.getUser)
			r.Put("/", h.updateUser)
			r.Put("/password", h.changePassword)
		})

		r.With(h.requireRoles(h.adminRole)).Post("/role", h.createRole)
		r.With(h.requireRoles(h.roleReaders...)).Get("/role", h.listRoles)
		r.With(h.requireRoles(h.adminRole)).Put("/role", h.updateUserRole)
	})

	return r
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	for _, probe := range h.readinessProbes {
		if err := probe(r.Context()); err != nil {
			h.log.Warn(r.Context(), "readiness probe failed", "error", err, "request_id", requestIDFromContext(r.Context()))
			writeError(w, http.StatusServiceUnavailable, "NOT_READY", "service not ready")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
