package api

import (
	"context"
	"net/http"
	"strings"

	domainerrors "github.com/directorstracker/tracker-server/internal/errors"
	"github.com/directorstracker/tracker-server/internal/session"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// sessionKey is the context key for the visitor's controller.
const sessionKey ctxKey = "session"

// sessionPaths lists the routes that act on a visitor's selection.
var sessionPaths = []string{"/api/v1/selection", "/api/v1/chart", "/api/v1/events"}

// needsSession reports whether path reads or changes a visitor's selection.
func needsSession(path string) bool {
	if path == "/" || path == "/chart.png" {
		return true
	}
	for _, p := range sessionPaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// GetSession returns the visitor's controller from context.
func GetSession(ctx context.Context) (*session.Controller, error) {
	c, ok := ctx.Value(sessionKey).(*session.Controller)
	if !ok || c == nil {
		return nil, domainerrors.Internal("no dashboard session on request")
	}
	return c, nil
}

func withSession(ctx context.Context, c *session.Controller) context.Context {
	return context.WithValue(ctx, sessionKey, c)
}

// sessionMiddleware attaches the visitor's session, starting one when the
// cookie is missing, invalid or points at an expired session. The cookie is
// resealed on every response so its expiry follows activity.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !needsSession(r.URL.Path) || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		var sessionID string
		if cookie, err := r.Cookie(session.CookieName); err == nil {
			if sid, err := s.Sealer.Open(cookie.Value); err == nil {
				sessionID = sid
			} else {
				s.logger.Debug("rejected session cookie", "error", err)
			}
		}

		c, created, err := s.Sessions.Resolve(r.Context(), sessionID)
		if err != nil {
			writeError(w, err, s.logger)
			return
		}
		if created && sessionID != "" {
			s.logger.Debug("session expired, started a new one", "session_id", c.ID())
		}

		http.SetCookie(w, s.sessionCookie(r, c.ID()))
		next.ServeHTTP(w, r.WithContext(withSession(r.Context(), c)))
	})
}

func (s *Server) sessionCookie(r *http.Request, sessionID string) *http.Cookie {
	return &http.Cookie{
		Name:     session.CookieName,
		Value:    s.Sealer.Seal(sessionID),
		Path:     "/",
		MaxAge:   int(s.Sealer.TTL().Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	}
}

// sessionIDFromRequest resolves the session of an event stream request.
func (s *Server) sessionIDFromRequest(r *http.Request) (string, bool) {
	c, err := GetSession(r.Context())
	if err != nil {
		return "", false
	}
	return c.ID(), true
}
