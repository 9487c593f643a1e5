package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"chat-relay/internal/middleware"
	"chat-relay/internal/models"
	"chat-relay/internal/services"
)

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeRawJSON sends an already-encoded JSON body without touching it.
func writeRawJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func errorResp(message string, details interface{}) models.ErrorResponse {
	return models.ErrorResponse{Error: message, Details: details}
}

// handleServiceError maps every relay failure to its status and body.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *logrus.Entry, err error) {
	log := logger.WithField("request_id", middleware.GetRequestID(r.Context()))

	var (
		verr *services.ValidationError
		cerr *services.ConfigError
		uerr *services.UpstreamError
		nerr *services.UnreachableError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResp(verr.Message, verr.Detail))
	case errors.As(err, &cerr):
		writeJSON(w, http.StatusInternalServerError, errorResp(cerr.Message, cerr.Detail))
	case errors.As(err, &uerr):
		message := services.UpstreamMessage(uerr.Body)
		if message == "" {
			message = "API error"
		}
		writeJSON(w, uerr.StatusCode, errorResp(message, models.UpstreamErrorDetails{
			Status: uerr.StatusCode,
			Data:   upstreamData(uerr.Body),
		}))
	case errors.As(err, &nerr):
		writeJSON(w, http.StatusServiceUnavailable, errorResp("Service unavailable", models.MessageDetails{
			Message: "No response received from API",
		}))
	default:
		log.WithError(err).Error("Error processing request")
		writeJSON(w, http.StatusInternalServerError, errorResp("Internal server error", models.MessageDetails{
			Message: err.Error(),
		}))
	}
}

// upstreamData keeps a JSON upstream body as JSON and anything else as text.
func upstreamData(body []byte) interface{} {
	if len(body) > 0 && json.Valid(body) {
		return json.RawMessage(body)
	}
	return string(body)
}
