package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ariefcatur/inventory-dashboard/internal/backend"
	"github.com/ariefcatur/inventory-dashboard/internal/logger"
	"github.com/ariefcatur/inventory-dashboard/internal/orders"
	"github.com/ariefcatur/inventory-dashboard/internal/session"
)

type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandler trades backend credentials for a dashboard session. The
// browser only ever holds the signed session cookie.
type AuthHandler struct {
	Backend  *backend.Client
	Sessions *session.Store
	Signer   *session.Signer
	Cookie   CookieConfig
	Log      logger.Logger
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(r chi.Router) {
	r.Post("/logout", h.logout)
	r.Get("/me", h.me)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req loginReq
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, r, h.Log, &orders.ValidationError{Message: "username and password are required"})
		return
	}

	res, err := h.Backend.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	sess, err := h.Sessions.Create(r.Context(), res.Token, res.User)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}
	tok, err := h.Signer.Sign(sess)
	if err != nil {
		writeError(w, r, h.Log, err)
		return
	}

	http.SetCookie(w, h.cookie(tok, h.Sessions.TTL()))
	h.Log.WithContext(r.Context()).Info("login", logger.String("username", res.User.Username))
	writeJSON(w, http.StatusOK, map[string]any{"message": res.Message, "user": res.User})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())

	// the backend token is revoked best effort; the local session goes regardless
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 5*time.Second)
	defer cancel()
	if err := h.Backend.WithToken(sess.Token).Logout(ctx); err != nil {
		h.Log.WithContext(r.Context()).Warn("backend logout failed", logger.Error(err))
	}
	if err := h.Sessions.Delete(ctx, sess.ID); err != nil {
		h.Log.WithContext(r.Context()).Warn("session delete failed", logger.Error(err))
	}

	http.SetCookie(w, h.cookie("", -1))
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"user": sess.User})
}

// RequireSession resolves the cookie to a live session or answers 401.
func (h *AuthHandler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(h.Cookie.Name)
		if err != nil {
			writeError(w, r, h.Log, session.ErrNotFound)
			return
		}
		sid, err := h.Signer.Parse(c.Value)
		if err != nil {
			writeError(w, r, h.Log, err)
			return
		}
		sess, err := h.Sessions.Get(r.Context(), sid)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				http.SetCookie(w, h.cookie("", -1))
			}
			writeError(w, r, h.Log, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
	})
}

// ttl < 0 expires the cookie.
func (h *AuthHandler) cookie(value string, ttl time.Duration) *http.Cookie {
	c := &http.Cookie{
		Name:     h.Cookie.Name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.Cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if ttl < 0 {
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
	} else {
		c.MaxAge = int(ttl.Seconds())
	}
	return c
}

// clientFor returns the backend client carrying the caller's credential.
func clientFor(r *http.Request, base *backend.Client) *backend.Client {
	sess, _ := session.FromContext(r.Context())
	return base.WithToken(sess.Token)
}
