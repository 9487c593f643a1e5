package handlers

import (
	"net/http"
	"time"

	"chat-relay/internal/models"
)

type HealthHandler struct {
	now func() time.Time
}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{now: time.Now}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "OK",
		Message:   "Server is running",
		Timestamp: h.now().UTC(),
	})
}
