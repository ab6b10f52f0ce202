package rest

import (
	"net/http"

	"go.uber.org/zap"
)

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	allowed, err := h.sessions.CanLogin(r.Context())
	if err != nil {
		zap.L().Error("check active users", zap.Error(err))
		ErrorInternal(w, "failed to check active users")
		return
	}
	if !allowed {
		ErrorTooManyUsers(w, "Maximum number of users reached. Please try again later.")
		return
	}
	http.Redirect(w, r, h.lark.AuthorizeURL(), http.StatusFound)
}

// callback finishes the Lark sign-in: exchange the code, check the email
// domain and the active-user limit, then record the session.
func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		ErrorBadRequest(w, "code is required")
		return
	}

	allowed, err := h.sessions.CanLogin(r.Context())
	if err != nil {
		zap.L().Error("check active users", zap.Error(err))
		ErrorInternal(w, "failed to check active users")
		return
	}
	if !allowed {
		ErrorTooManyUsers(w, "Maximum number of users reached. Please try again later.")
		return
	}

	token, email, err := h.lark.Exchange(r.Context(), code)
	if err != nil {
		zap.L().Warn("lark exchange failed", zap.Error(err))
		ErrorBadGateway(w, "sign-in with Lark failed")
		return
	}

	if h.opts.EmailPattern != nil && !h.opts.EmailPattern.MatchString(email) {
		zap.L().Warn("rejected sign-in", zap.String("email", email))
		ErrorForbidden(w, "this account is not allowed to sign in")
		return
	}

	if err := h.sessions.Add(r.Context(), token, email); err != nil {
		zap.L().Error("add active user", zap.String("email", email), zap.Error(err))
		ErrorInternal(w, "failed to start session")
		return
	}
	zap.L().Info("user signed in", zap.String("email", email))

	http.SetCookie(w, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.opts.CookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(h.opts.CookieName); err == nil && c.Value != "" {
		if err := h.sessions.Remove(r.Context(), c.Value); err != nil {
			zap.L().Warn("remove active user", zap.Error(err))
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.opts.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	Success(w, "signed out", nil)
}
