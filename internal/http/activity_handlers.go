package httpx

import (
	"net/http"
	"strconv"
	"time"

	"github.com/PietroNozella/PetWalker/internal/service/activity"
	"github.com/PietroNozella/PetWalker/internal/ws"
)

func (r *Router) handleActivity(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	dogID, err := queryID(req, "dog_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(req.URL.Query().Get("offset"))
	entries, err := r.services.Activity.List(req.Context(), dogID, limit, offset)
	if err != nil {
		r.writeServiceError(w, req, err)
		return
	}
	writeJSON(w, http.StatusOK, toActivity(entries))
}

// activityTopic picks the hub topic from the optional dog_id filter.
func activityTopic(req *http.Request) (string, error) {
	dogID, err := queryID(req, "dog_id")
	if err != nil {
		return "", err
	}
	if dogID == nil {
		return ws.TopicAll, nil
	}
	return activity.DogTopic(*dogID), nil
}

func (r *Router) handleActivityWS(w http.ResponseWriter, req *http.Request) {
	if _, ok := authInfoFromContext(req.Context()); !ok {
		r.logger.Error("auth context missing for activity websocket", "path", req.URL.Path)
		writeError(w, http.StatusInternalServerError, "authorization context missing")
		return
	}
	hub := r.services.Activity.Hub()
	if hub == nil {
		writeError(w, http.StatusServiceUnavailable, "activity stream unavailable")
		return
	}
	topic, err := activityTopic(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	client := ws.NewClient(conn, r.logger)
	hub.Register(topic, client)
	go func() {
		defer func() {
			hub.Unregister(topic, client)
			client.Close()
		}()
		client.DrainReads()
	}()
}

// handleActivityStream serves the same feed as Server-Sent Events for
// clients that cannot hold a websocket.
func (r *Router) handleActivityStream(w http.ResponseWriter, req *http.Request) {
	if req.Method != http.MethodGet {
		r.methodNotAllowed(w)
		return
	}
	hub := r.services.Activity.Hub()
	if hub == nil {
		writeError(w, http.StatusServiceUnavailable, "activity stream unavailable")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	topic, err := activityTopic(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	client := ws.NewSSEClient(w, flusher, "activity", r.logger)
	hub.Register(topic, client)
	defer func() {
		hub.Unregister(topic, client)
		client.Close()
	}()

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-req.Context().Done():
			return
		case <-client.Done():
			return
		case <-ticker.C:
			if err := client.Heartbeat(); err != nil {
				return
			}
		}
	}
}
