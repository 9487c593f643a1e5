package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"chat-relay/internal/httputil"
	"chat-relay/internal/metrics"
	"chat-relay/internal/models"
)

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 1500
)

// OpenAIService relays chat payloads to an OpenAI-compatible
// /chat/completions endpoint using the server-held key.
type OpenAIService struct {
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	defaultModel string
	labeler      *metrics.ModelLabeler
	logger       *logrus.Entry
}

func NewOpenAIService(apiKey, baseURL, defaultModel string, timeout time.Duration, logger *logrus.Entry) *OpenAIService {
	return &OpenAIService{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      strings.TrimRight(baseURL, "/"),
		apiKey:       apiKey,
		defaultModel: defaultModel,
		labeler:      newLabeler(defaultModel, metrics.DefaultKnownModels),
		logger:       logger,
	}
}

// WithKnownModels replaces the set of model names that get their own
// metrics label. The default model is always included.
func (s *OpenAIService) WithKnownModels(known []string) *OpenAIService {
	s.labeler = newLabeler(s.defaultModel, known)
	return s
}

func newLabeler(defaultModel string, known []string) *metrics.ModelLabeler {
	names := make([]string, 0, len(known)+1)
	names = append(names, defaultModel)
	names = append(names, known...)
	return metrics.NewModelLabeler(names...)
}

// Relay validates req, fills defaults and makes exactly one upstream call.
// A 2xx answer is returned as-is; every other outcome is one of the error
// types in errors.go.
func (s *OpenAIService) Relay(ctx context.Context, req models.ChatRequest) (*models.Completion, error) {
	count, err := countMessages(req.Messages)
	if err != nil {
		s.logger.WithError(err).Error("Invalid message format")
		metrics.RecordError("validation")
		return nil, err
	}

	if s.apiKey == "" {
		s.logger.Error("API key is missing")
		metrics.RecordError("config")
		return nil, &ConfigError{Message: "Server configuration error", Detail: "API key is not configured"}
	}

	payload := s.BuildPayload(req)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &InternalError{Err: fmt.Errorf("encode upstream request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &InternalError{Err: fmt.Errorf("build upstream request: %w", err)}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	modelLabel := s.labeler.Label(payload.Model)
	log := s.logger.WithField("model", payload.Model)
	log.Infof("Sending request to OpenAI API with %d messages", count)

	start := time.Now()
	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		metrics.RecordUpstream(modelLabel, 0, time.Since(start))
		metrics.RecordError("unreachable")
		log.WithError(err).Error("No response received from API")
		return nil, &UnreachableError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := httputil.ReadUpstreamBody(resp, httputil.MaxUpstreamBodyBytes)
	metrics.RecordUpstream(modelLabel, resp.StatusCode, time.Since(start))
	if err != nil {
		if errors.Is(err, httputil.ErrBodyTooLarge) {
			metrics.RecordError("internal")
			return nil, &InternalError{Err: fmt.Errorf("upstream response: %w", err)}
		}
		metrics.RecordError("unreachable")
		log.WithError(err).Error("Upstream response was cut off")
		return nil, &UnreachableError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.RecordError("upstream")
		log.WithField("status", resp.StatusCode).Errorf("API response error: %s", truncate(respBody, 400))
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: respBody}
	}

	log.WithField("status", resp.StatusCode).Info("Received response from OpenAI API")
	return &models.Completion{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// BuildPayload applies the default model, temperature and token limit to
// fields the client left out. Explicit zero values are kept.
func (s *OpenAIService) BuildPayload(req models.ChatRequest) models.CompletionRequest {
	payload := models.CompletionRequest{
		Model:       s.defaultModel,
		Messages:    req.Messages,
		Temperature: DefaultTemperature,
		MaxTokens:   DefaultMaxTokens,
	}
	if req.Model != nil && strings.TrimSpace(*req.Model) != "" {
		payload.Model = *req.Model
	}
	if req.Temperature != nil {
		payload.Temperature = *req.Temperature
	}
	if req.MaxTokens != nil {
		payload.MaxTokens = *req.MaxTokens
	}
	return payload
}

// countMessages checks that raw is a JSON array and returns its length.
func countMessages(raw json.RawMessage) (int, error) {
	invalid := &ValidationError{Message: "Invalid message format", Detail: "messages must be an array"}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return 0, invalid
	}
	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return 0, invalid
	}
	return len(items), nil
}

// UpstreamMessage extracts error.message from an OpenAI error body.
func UpstreamMessage(body []byte) string {
	var envelope struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || envelope.Error == nil {
		return ""
	}
	return envelope.Error.Message
}

func truncate(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
