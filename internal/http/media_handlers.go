package httpx

import (
	"errors"
	"net/http"
	"strings"

	"github.com/PietroNozella/PetWalker/internal/service/media"
)

const multipartMemory = 8 << 20

func (r *Router) handleDogMedia(w http.ResponseWriter, req *http.Request) {
	dogID, ok := pathID(w, req, "dog")
	if !ok {
		return
	}
	switch req.Method {
	case http.MethodGet:
		items, err := r.services.Media.List(req.Context(), dogID)
		if err != nil {
			r.writeServiceError(w, req, err)
			return
		}
		writeJSON(w, http.StatusOK, toMediaList(items))
	case http.MethodPost:
		r.uploadMedia(w, req, dogID)
	default:
		r.methodNotAllowed(w)
	}
}

func (r *Router) uploadMedia(w http.ResponseWriter, req *http.Request, dogID int64) {
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUploadBytes)
	if err := req.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if req.MultipartForm != nil {
			_ = req.MultipartForm.RemoveAll()
		}
	}()
	file, header, err := req.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file: is required")
		return
	}
	defer file.Close()

	upload := media.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	}
	if caption := strings.TrimSpace(req.FormValue("caption")); caption != "" {
		upload.Caption = &caption
	}
	item, err := r.services.Media.Create(req.Context(), dogID, upload)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMedia(*item))
}

func (r *Router) handleMedia(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodDelete {
		r.methodNotAllowed(w)
		return
	}
	id, ok := pathID(w, req, "media")
	if !ok {
		return
	}
	if err := r.services.Media.Delete(req.Context(), id); err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeMessage(w, "media deleted")
}
