package httpx

import (
	"net/http"

	"github.com/PietroNozella/PetWalker/internal/domain"
	"github.com/PietroNozella/PetWalker/internal/service/schedule"
)

type walkPayload struct {
	DogID           int64     `json:"dog_id" validate:"required,gt=0"`
	ScheduledDate   timestamp `json:"scheduled_date"`
	DurationMinutes *int      `json:"duration_minutes" validate:"omitempty,gt=0"`
	Status          *string   `json:"status" validate:"omitempty,oneof=agendado em_andamento concluido cancelado"`
	Location        *string   `json:"location" validate:"omitempty,max=255"`
	Notes           *string   `json:"notes"`
}

type walkPatchPayload struct {
	ScheduledDate   *timestamp `json:"scheduled_date"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,gt=0"`
	Status          *string    `json:"status" validate:"omitempty,oneof=agendado em_andamento concluido cancelado"`
	Location        *string    `json:"location" validate:"omitempty,max=255"`
	Notes           *string    `json:"notes"`
}

type trainingPayload struct {
	DogID           int64     `json:"dog_id" validate:"required,gt=0"`
	ScheduledDate   timestamp `json:"scheduled_date"`
	DurationMinutes *int      `json:"duration_minutes" validate:"omitempty,gt=0"`
	TrainingType    string    `json:"training_type" validate:"required,max=120"`
	Status          *string   `json:"status" validate:"omitempty,oneof=agendado em_andamento concluido cancelado"`
	Notes           *string   `json:"notes"`
}

type trainingPatchPayload struct {
	ScheduledDate   *timestamp `json:"scheduled_date"`
	DurationMinutes *int       `json:"duration_minutes" validate:"omitempty,gt=0"`
	TrainingType    *string    `json:"training_type" validate:"omitempty,max=120"`
	Status          *string    `json:"status" validate:"omitempty,oneof=agendado em_andamento concluido cancelado"`
	Notes           *string    `json:"notes"`
	ProgressReport  *string    `json:"progress_report"`
}

func (r *Router) handleWalks(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		dogID, err := queryID(req, "dog_id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		walks, err := r.services.Schedule.ListWalks(req.Context(), dogID)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, toWalks(walks))
	case http.MethodPost:
		var payload walkPayload
		if err := decodeJSON(req, &payload); err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		walk, err := r.services.Schedule.CreateWalk(req.Context(), schedule.WalkInput{
			DogID:           payload.DogID,
			ScheduledDate:   payload.ScheduledDate.Time,
			DurationMinutes: payload.DurationMinutes,
			Status:          payload.Status,
			Notes:           payload.Notes,
			Location:        payload.Location,
		})
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusCreated, toWalk(*walk))
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleWalk(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "walk")
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodPut, http.MethodPatch:
		var payload walkPatchPayload
		if err := decodeJSON(req, &payload); err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		walk, err := r.services.Schedule.UpdateWalk(req.Context(), id, domain.WalkPatch{
			ScheduledDate:   payload.ScheduledDate.ptr(),
			DurationMinutes: payload.DurationMinutes,
			Status:          payload.Status,
			Notes:           payload.Notes,
			Location:        payload.Location,
		})
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, toWalk(*walk))
	case http.MethodDelete:
		if err := r.services.Schedule.DeleteWalk(req.Context(), id); err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeMessage(w, "walk deleted")
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleTrainings(w http.ResponseWriter, req *http.Request) {
	switch req.Method {
	case http.MethodGet:
		dogID, err := queryID(req, "dog_id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		trainings, err := r.services.Schedule.ListTrainings(req.Context(), dogID)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, toTrainings(trainings))
	case http.MethodPost:
		var payload trainingPayload
		if err := decodeJSON(req, &payload); err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		training, err := r.services.Schedule.CreateTraining(req.Context(), schedule.TrainingInput{
			DogID:           payload.DogID,
			ScheduledDate:   payload.ScheduledDate.Time,
			DurationMinutes: payload.DurationMinutes,
			TrainingType:    payload.TrainingType,
			Status:          payload.Status,
			Notes:           payload.Notes,
		})
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusCreated, toTraining(*training))
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) handleTraining(w http.ResponseWriter, req *http.Request) {
	id, ok := pathID(w, req, "training")
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodPut, http.MethodPatch:
		var payload trainingPatchPayload
		if err := decodeJSON(req, &payload); err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		training, err := r.services.Schedule.UpdateTraining(req.Context(), id, domain.TrainingPatch{
			ScheduledDate:   payload.ScheduledDate.ptr(),
			DurationMinutes: payload.DurationMinutes,
			TrainingType:    payload.TrainingType,
			Status:          payload.Status,
			Notes:           payload.Notes,
			ProgressReport:  payload.ProgressReport,
		})
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, toTraining(*training))
	case http.MethodDelete:
		if err := r.services.Schedule.DeleteTraining(req.Context(), id); err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeMessage(w, "training deleted")
	default:
		r.methodNotAllowed(w)
	}
}
