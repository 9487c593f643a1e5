// Package httputil bounds and classifies the HTTP bodies the relay reads.
package httputil

import (
	"errors"
	"io"
	"mime"
	"net/http"
)

const (
	// MaxUpstreamBodyBytes caps upstream completion bodies at 10MB.
	MaxUpstreamBodyBytes int64 = 10 * 1024 * 1024

	// MaxClientBodyBytes caps client chat payloads at 1MB.
	MaxClientBodyBytes int64 = 1 * 1024 * 1024
)

var ErrBodyTooLarge = errors.New("body too large")

// ReadClientBody reads an incoming request body through http.MaxBytesReader,
// so the server stops reading and closes the connection once the cap is hit.
func ReadClientBody(w http.ResponseWriter, r *http.Request, maxBytes int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return nil, ErrBodyTooLarge
	}
	return body, err
}

// ReadUpstreamBody reads at most maxBytes of resp.Body. A declared
// Content-Length over the cap fails without reading.
func ReadUpstreamBody(resp *http.Response, maxBytes int64) ([]byte, error) {
	if resp.ContentLength > maxBytes {
		return nil, ErrBodyTooLarge
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return body, err
	}
	if int64(len(body)) > maxBytes {
		return nil, ErrBodyTooLarge
	}
	return body, nil
}

// IsJSON reports whether a Content-Type header names application/json,
// ignoring parameters such as charset.
func IsJSON(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}
