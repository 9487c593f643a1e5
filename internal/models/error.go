package models

// ErrorResponse is the uniform failure body: a human-readable summary plus
// structured context (a string, or an object such as UpstreamErrorDetails).
type ErrorResponse struct {
	Error   string      `json:"error"`
	Details interface{} `json:"details"`
}

type MessageDetails struct {
	Message string `json:"message"`
}

type UpstreamErrorDetails struct {
	Status int         `json:"status"`
	Data   interface{} `json:"data"`
}
