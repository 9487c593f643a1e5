package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"chat-relay/internal/httputil"
	"chat-relay/internal/models"
	"chat-relay/internal/services"
)

type chatRelayer interface {
	Relay(ctx context.Context, req models.ChatRequest) (*models.Completion, error)
}

type ChatHandler struct {
	relay  chatRelayer
	logger *logrus.Entry
}

func NewChatHandler(relay chatRelayer, logger *logrus.Entry) *ChatHandler {
	return &ChatHandler{
		relay:  relay,
		logger: logger,
	}
}

func (h *ChatHandler) Relay(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Received chat request")

	// Only JSON bodies are parsed; anything else arrives without messages.
	var req models.ChatRequest
	if httputil.IsJSON(r.Header.Get("Content-Type")) {
		body, err := httputil.ReadClientBody(w, r, httputil.MaxClientBodyBytes)
		if err != nil {
			handleServiceError(w, r, h.logger, &services.InternalError{Err: fmt.Errorf("read request body: %w", err)})
			return
		}

		req, err = decodeChatRequest(body)
		if err != nil {
			handleServiceError(w, r, h.logger, err)
			return
		}
	}

	completion, err := h.relay.Relay(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	writeRawJSON(w, completion.StatusCode, completion.Body)
}

// decodeChatRequest treats an empty body or a JSON value that is not an
// object as a request without messages; only unparseable JSON is an error.
func decodeChatRequest(body []byte) (models.ChatRequest, error) {
	var req models.ChatRequest

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return req, nil
	}
	var probe json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return req, &services.InternalError{Err: err}
	}
	if trimmed[0] != '{' {
		return req, nil
	}
	if err := json.Unmarshal(trimmed, &req); err != nil {
		return req, &services.InternalError{Err: err}
	}
	return req, nil
}
