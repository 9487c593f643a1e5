package models

import "encoding/json"

// ChatRequest is the payload accepted by POST /api/chat.
// Optional fields are pointers so that an explicit zero is distinguishable
// from an absent field.
type ChatRequest struct {
	Messages    json.RawMessage `json:"messages"`
	Model       *string         `json:"model,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
}

// CompletionRequest is the body sent to the upstream chat-completions endpoint.
type CompletionRequest struct {
	Model       string          `json:"model"`
	Messages    json.RawMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens"`
}

// Completion is an upstream response relayed to the client untouched.
type Completion struct {
	StatusCode int
	Body       []byte
}
