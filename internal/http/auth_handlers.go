package httpx

import (
	"net/http"

	"github.com/PietroNozella/PetWalker/internal/service/auth"
)

type userPayload struct {
	Email    string  `json:"email" validate:"required,max=254"`
	Name     string  `json:"name" validate:"required,max=120"`
	Phone    *string `json:"phone" validate:"omitempty,max=32"`
	Password string  `json:"password" validate:"required,max=72"`
}

func (p userPayload) newUser() auth.NewUser {
	return auth.NewUser{Email: p.Email, Name: p.Name, Phone: p.Phone, Password: p.Password}
}

func (r *Router) handleRegister(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload userPayload
	if err := decodeJSON(req, &payload); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	user, err := r.services.Auth.Register(req.Context(), payload.newUser())
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUser(*user))
}

func (r *Router) handleLogin(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	var payload struct {
		Email    string `json:"email" validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := decodeJSON(req, &payload); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	_, token, err := r.services.Auth.Login(req.Context(), payload.Email, payload.Password)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token.AccessToken,
		"token_type":   token.TokenType,
		"expires_in":   int64(token.ExpiresIn.Seconds()),
	})
}

func (r *Router) handleMe(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	info, ok := authInfoFromContext(req.Context())
	if !ok || info.User == nil {
		r.logger.Error("auth context missing for profile lookup", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	writeJSON(w, http.StatusOK, toUser(*info.User))
}

func (r *Router) handleUsers(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		owners, err := r.services.Auth.ListOwners(req.Context())
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, toUsers(owners))
	case http.MethodPost:
		var payload userPayload
		if err := decodeJSON(req, &payload); err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		user, err := r.services.Auth.CreateOwner(req.Context(), payload.newUser())
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusCreated, toUser(*user))
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleStats(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	stats, err := r.services.Stats.Get(req.Context())
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toStats(stats))
}
