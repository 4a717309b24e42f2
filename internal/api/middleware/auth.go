package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/numduel/internal/api/apierr"
	"github.com/mcoot/numduel/internal/model"
	"github.com/mcoot/numduel/internal/services/auth"
)

type sessionKey struct{}

// Auth resolves the session token into a player and rejects anonymous
// requests with 401. The player identity used by every handler downstream
// comes from here and never from request bodies or websocket messages.
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			session, err := authService.ValidateSession(token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
		})
	}
}

// TokenFromRequest reads the session token from the Bearer header, then the
// token query parameter (websocket clients in browsers cannot set headers),
// then the session cookie
func TokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if cookie, err := r.Cookie("session"); err == nil {
		return cookie.Value
	}
	return ""
}

// GetSession returns the session attached by Auth, or nil
func GetSession(ctx context.Context) *auth.Session {
	session, _ := ctx.Value(sessionKey{}).(*auth.Session)
	return session
}

// GetPlayer returns the authenticated player, or nil
func GetPlayer(ctx context.Context) *model.Player {
	if session := GetSession(ctx); session != nil {
		return &session.Player
	}
	return nil
}

// MustGetPlayer returns the authenticated player. Routes behind Auth only.
func MustGetPlayer(ctx context.Context) *model.Player {
	player := GetPlayer(ctx)
	if player == nil {
		panic("middleware: no session in context")
	}
	return player
}
