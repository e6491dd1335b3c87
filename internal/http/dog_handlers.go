package httpx

import (
	"net/http"

	"github.com/PietroNozella/PetWalker/internal/domain"
	"github.com/PietroNozella/PetWalker/internal/service/dog"
)

type dogPayload struct {
	Name        string   `json:"name" validate:"required,max=120"`
	Breed       *string  `json:"breed" validate:"omitempty,max=120"`
	Age         *int     `json:"age" validate:"omitempty,gte=0"`
	Weight      *float64 `json:"weight" validate:"omitempty,gt=0"`
	Description *string  `json:"description"`
	PhotoURL    *string  `json:"photo_url" validate:"omitempty,max=2048"`
	OwnerID     int64    `json:"owner_id" validate:"required,gt=0"`
}

type dogPatchPayload struct {
	Name        *string  `json:"name" validate:"omitempty,max=120"`
	Breed       *string  `json:"breed" validate:"omitempty,max=120"`
	Age         *int     `json:"age" validate:"omitempty,gte=0"`
	Weight      *float64 `json:"weight" validate:"omitempty,gt=0"`
	Description *string  `json:"description"`
	PhotoURL    *string  `json:"photo_url" validate:"omitempty,max=2048"`
	OwnerID     *int64   `json:"owner_id" validate:"omitempty,gt=0"`
}

func (p dogPatchPayload) patch() domain.DogPatch {
	return domain.DogPatch{
		Name:        p.Name,
		Breed:       p.Breed,
		Age:         p.Age,
		WeightKg:    p.Weight,
		Description: p.Description,
		PhotoURL:    p.PhotoURL,
		OwnerID:     p.OwnerID,
	}
}

func (r *Router) handleDogs(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		dogs, err := r.services.Dogs.List(req.Context())
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, toDogs(dogs))
	case http.MethodPost:
		var payload dogPayload
		if err := decodeJSON(req, &payload); err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		created, err := r.services.Dogs.Create(req.Context(), dog.CreateInput{
			Name:        payload.Name,
			Breed:       payload.Breed,
			Age:         payload.Age,
			WeightKg:    payload.Weight,
			Description: payload.Description,
			PhotoURL:    payload.PhotoURL,
			OwnerID:     payload.OwnerID,
		})
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusCreated, toDog(*created))
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleDog(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "dog")
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		profile, err := r.services.Dogs.Profile(req.Context(), id)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, toProfile(*profile))
	case http.MethodPut, http.MethodPatch:
		var payload dogPatchPayload
		if err := decodeJSON(req, &payload); err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		updated, err := r.services.Dogs.Update(req.Context(), id, payload.patch())
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, toDog(*updated))
	case http.MethodDelete:
		if err := r.services.Dogs.Delete(req.Context(), id); err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeMessage(w, "dog deleted")
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleAccessCode(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodPost {
		r.methodNotAllowed(w)
		return
	}
	id, ok := pathID(w, req, "dog")
	if !ok {
		return
	}
	rotated, err := r.services.Dogs.RotateAccessCode(req.Context(), id)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toDog(*rotated))
}

// handlePublicDog resolves an access code without authentication.
func (r *Router) handlePublicDog(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	profile, err := r.services.Dogs.Resolve(req.Context(), req.PathValue("code"))
	if err != nil {
		outcome := "error"
		if domain.IsNotFound(err) {
			outcome = "miss"
		}
		r.recordPublicLookup(outcome)
		r.writeServiceError(w, req, err)
		return
	}
	r.recordPublicLookup("hit")
	writeJSON(w, http.StatusOK, toPublicProfile(*profile))
}
