// Package web exposes the calendar over HTTP: the widget feed, the admin CRUD
// endpoints and the ICS subscription.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/hray3182/eventcal/internal/auth"
	"github.com/hray3182/eventcal/internal/calendar"
	"github.com/hray3182/eventcal/internal/ics"
)

const (
	ActionEvents = "calendar_events"
	ActionAdmin  = "calendar_admin"

	nonceHeader = "X-Calendar-Nonce"
)

// Options holds the credentials of the protected routes.
type Options struct {
	AdminUser     string
	AdminPassword string
	// FeedToken enables /calendar.ics when non-empty.
	FeedToken string
	// SecureCookies marks the session cookie Secure.
	SecureCookies bool
}

type Server struct {
	svc    *calendar.Service
	nonces *auth.Nonces
	feed   *ics.Builder
	opts   Options
	mux    *http.ServeMux
}

func NewServer(svc *calendar.Service, nonces *auth.Nonces, feed *ics.Builder, opts Options) *Server {
	s := &Server{
		svc:    svc,
		nonces: nonces,
		feed:   feed,
		opts:   opts,
		mux:    http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/nonce", s.handleNonce)
	s.mux.Handle("GET /api/events", s.requireNonce(ActionEvents, http.HandlerFunc(s.handleEvents)))
	s.mux.Handle("POST /api/events", s.requireNonce(ActionEvents, http.HandlerFunc(s.handleEvents)))
	s.mux.Handle("GET /api/categories", s.requireNonce(ActionEvents, http.HandlerFunc(s.handleCategories)))
	s.mux.HandleFunc("GET /calendar.ics", s.handleFeed)

	s.mux.Handle("GET /api/admin/nonce", s.basicAuth(http.HandlerFunc(s.handleAdminNonce)))
	s.mux.Handle("GET /api/admin/events", s.admin(s.handleAdminList))
	s.mux.Handle("POST /api/admin/events", s.admin(s.handleAdminCreate))
	s.mux.Handle("GET /api/admin/events/{id}", s.admin(s.handleAdminGet))
	s.mux.Handle("POST /api/admin/events/{id}", s.admin(s.handleAdminUpdate))
	s.mux.Handle("PUT /api/admin/events/{id}", s.admin(s.handleAdminUpdate))
	s.mux.Handle("DELETE /api/admin/events/{id}", s.admin(s.handleAdminDelete))
	s.mux.Handle("POST /api/admin/events/{id}/delete", s.admin(s.handleAdminDelete))
	s.mux.Handle("GET /api/admin/content", s.admin(s.handleAdminContent))
}

func (s *Server) admin(h http.HandlerFunc) http.Handler {
	return s.basicAuth(s.requireNonce(ActionAdmin, h))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting HTTP server", "listen", "http://"+addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		slog.Info("shutting down HTTP server")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// basicAuth guards admin routes. With no configured password every request is refused.
func (s *Server) basicAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || s.opts.AdminPassword == "" ||
			!secureCompare(u, s.opts.AdminUser) || !secureCompare(p, s.opts.AdminPassword) {
			w.Header().Set("WWW-Authenticate", `Basic realm="eventcal", charset="UTF-8"`)
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireNonce rejects requests whose nonce does not match the session and action.
func (s *Server) requireNonce(action string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nonce := r.Header.Get(nonceHeader)
		if nonce == "" {
			nonce = r.FormValue("nonce")
		}
		if err := s.nonces.Verify(nonce, action, sessionID(r)); err != nil {
			slog.Debug("rejected request", "path", r.URL.Path, "error", err)
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleNonce(w http.ResponseWriter, r *http.Request) {
	session := s.ensureSession(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"nonce": s.nonces.Issue(ActionEvents, session)})
}

func (s *Server) handleAdminNonce(w http.ResponseWriter, r *http.Request) {
	session := s.ensureSession(w, r)
	writeJSON(w, http.StatusOK, map[string]string{"nonce": s.nonces.Issue(ActionAdmin, session)})
}

func (s *Server) ensureSession(w http.ResponseWriter, r *http.Request) string {
	if id := sessionID(r); id != "" {
		return id
	}
	id := auth.NewSessionID()
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func sessionID(r *http.Request) string {
	c, err := r.Cookie(auth.SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}

func writeSuccess(w http.ResponseWriter, data any) {
	type successResp struct {
		Success bool `json:"success"`
		Data    any  `json:"data,omitempty"`
	}
	writeJSON(w, http.StatusOK, successResp{Success: true, Data: data})
}

// writeServiceError maps calendar errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *calendar.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": verr.Message, "field": verr.Field})
	case errors.Is(err, calendar.ErrNotFound):
		writeError(w, http.StatusNotFound, "event not found")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
