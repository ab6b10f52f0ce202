package auth

import (
	"context"
	"errors"
	"net/http"

	"bcp-export/internal/domain"

	"go.uber.org/zap"
)

type ctxKey string

const UserEmailKey ctxKey = "userEmail"

const DefaultCookieName = "user_token"

// Sessions looks up signed-in users. session.Store satisfies it.
type Sessions interface {
	FindByToken(ctx context.Context, token string) (domain.ActiveUser, error)
}

// Token reads the session token from the cookie, falling back to the token
// query parameter for websocket clients.
func Token(r *http.Request, cookieName string) string {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("token")
}

// SessionMiddleware admits requests carrying a live session token and stores
// the user's email in the context. Anything else goes to unauthorized, or
// gets a plain 401 when unauthorized is nil.
func SessionMiddleware(sessions Sessions, cookieName string, unauthorized http.Handler) func(http.Handler) http.Handler {
	if unauthorized == nil {
		unauthorized = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		})
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := Token(r, cookieName)
			if token == "" {
				unauthorized.ServeHTTP(w, r)
				return
			}

			user, err := sessions.FindByToken(r.Context(), token)
			if err != nil {
				zap.L().Debug("session lookup failed",
					zap.String("path", r.URL.Path), zap.Error(err))
				unauthorized.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), UserEmailKey, user.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithUserEmail returns a context carrying email, as SessionMiddleware does.
func WithUserEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, UserEmailKey, email)
}

func GetUserEmail(ctx context.Context) (string, error) {
	email, ok := ctx.Value(UserEmailKey).(string)
	if !ok || email == "" {
		return "", errors.New("user email not found in context")
	}
	return email, nil
}
