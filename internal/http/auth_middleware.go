package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/PietroNozella/PetWalker/internal/domain"
	"github.com/PietroNozella/PetWalker/internal/service/activity"
	"github.com/PietroNozella/PetWalker/internal/service/auth"
)

type authContextKey string

type authInfo struct {
	UserID  int64
	IsAdmin bool
	User    *domain.User
}

const contextKeyAuth authContextKey = "petwalker-auth-info"

type contextSetter interface {
	SetContext(context.Context)
}

// requireAuth ensures the request has a valid bearer token before invoking the handler.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, _, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// requireAdmin is requireAuth plus the admin role check.
func (r *Router) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return r.requireAuth(func(w http.ResponseWriter, req *http.Request) {
		info, _ := authInfoFromContext(req.Context())
		if _, err := auth.RequireAdmin(info.User); err != nil {
			r.logger.Warn("admin route denied", "user_id", info.UserID, "path", req.URL.Path)
			writeError(w, http.StatusForbidden, auth.ErrForbidden.Error())
			return
		}
		next(w, req)
	})
}

// ensureAuth validates the bearer token and enriches the context.
func (r *Router) ensureAuth(w http.ResponseWriter, req *http.Request) (context.Context, authInfo, bool) {
	token, err := requestToken(req)
	if err != nil {
		r.logger.Warn("authorization header invalid", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "authentication required")
		return req.Context(), authInfo{}, false
	}
	user, err := r.services.Auth.Authenticate(req.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthenticated) {
			r.logger.Warn("token validation failed", "error", err, "path", req.URL.Path)
			writeError(w, http.StatusUnauthorized, "authentication failed")
		} else {
			r.logger.Error("authentication lookup failed", "error", err, "path", req.URL.Path)
			writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return req.Context(), authInfo{}, false
	}
	info := authInfo{UserID: user.ID, IsAdmin: user.IsAdmin, User: user}
	ctx := context.WithValue(req.Context(), contextKeyAuth, info)
	ctx = activity.WithActor(ctx, user.ID)
	return ctx, info, true
}

// authInfoFromContext extracts auth metadata from context.
func authInfoFromContext(ctx context.Context) (authInfo, bool) {
	value := ctx.Value(contextKeyAuth)
	if value == nil {
		return authInfo{}, false
	}
	info, ok := value.(authInfo)
	return info, ok
}

// requestToken reads the bearer token. Browsers cannot set headers on
// websocket handshakes, so upgrade requests may pass it as ?token=.
func requestToken(req *http.Request) (string, error) {
	header := req.Header.Get("Authorization")
	if strings.TrimSpace(header) == "" && websocket.IsWebSocketUpgrade(req) {
		if token := strings.TrimSpace(req.URL.Query().Get("token")); token != "" {
			return token, nil
		}
	}
	return bearerToken(header)
}

func bearerToken(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errors.New("missing authorization header")
	}
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization header format")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("empty bearer token")
	}
	return token, nil
}
