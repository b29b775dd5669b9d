// Package server provides the HTTP handlers and routing for the console backend.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"procstudio-console/internal/cache"
	"procstudio-console/internal/procstudio"
	"procstudio-console/internal/readiness"
)

// Upstream is the subset of the ProcStudio API the console proxies.
type Upstream interface {
	ListTeams(ctx context.Context, token string) ([]procstudio.Team, error)
	GetTeam(ctx context.Context, token, id string) (procstudio.Team, error)
	UpdateTeam(ctx context.Context, token, id string, u procstudio.TeamUpdate) (procstudio.Team, error)
	ListMembers(ctx context.Context, token, teamID string) ([]procstudio.Member, error)
	DashboardStats(ctx context.Context, token string) (map[string]any, error)
	Me(ctx context.Context, token string) (procstudio.Member, error)
}

// Config contains the server-level settings.
type Config struct {
	DebugToken   string
	TeamsTTL     time.Duration
	DashboardTTL time.Duration
}

// Server contains the configured router, cache, upstream client and config.
type Server struct {
	cfg    Config
	router *chi.Mux
	cache  *cache.Cache
	api    Upstream
}

// New constructs a Server with middleware and routes configured. The cache is
// owned by the caller.
func New(cfg Config, c *cache.Cache, api Upstream) *Server {
	s := &Server{
		cfg:    cfg,
		router: chi.NewRouter(),
		cache:  c,
		api:    api,
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Use(s.session)
		r.Post("/logout", s.handleLogout)
		r.Get("/dashboard/stats", s.handleDashboardStats)
		r.Route("/teams", func(r chi.Router) {
			r.Get("/", s.handleListTeams)
			r.Get("/search", s.handleSearchTeams)
			r.Get("/{id}", s.handleGetTeam)
			r.Put("/{id}", s.handleUpdateTeam)
			r.Get("/{id}/setup", s.handleTeamSetup)
			r.Get("/{id}/members", s.handleListMembers)
		})
	})

	s.router.Route("/debug", func(r chi.Router) {
		r.Use(s.auth)
		r.Get("/cache", s.handleCacheStats)
		r.Delete("/cache", s.handleCacheClear)
		r.Post("/cache/sweep", s.handleCacheSweep)
	})

	return s
}

// Router exposes the root HTTP handler for the server.
func (s *Server) Router() http.Handler { return s.router }

// auth guards the diagnostics routes with the static debug token.
func (s *Server) auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.DebugToken == "" {
			next.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer "+s.cfg.DebugToken {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type sessionKey struct{}

// session builds the caller's session from the forwarded headers and rejects
// the request before any upstream call if it is not usable yet.
func (s *Server) session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := &readiness.Session{
			ID:          r.Header.Get("X-User-ID"),
			Email:       r.Header.Get("X-User-Email"),
			AccessToken: bearerToken(r),
		}
		if !readiness.IsSessionAuthenticated(sess) || sess.AccessToken == "" {
			writeError(w, http.StatusUnauthorized, "session not ready")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) *readiness.Session {
	sess, _ := ctx.Value(sessionKey{}).(*readiness.Session)
	return sess
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
