package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chat-relay/internal/models"
)

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

type fakeUpstream struct {
	server  *httptest.Server
	calls   atomic.Int32
	lastReq atomic.Pointer[capturedRequest]
}

type capturedRequest struct {
	Path          string
	Authorization string
	ContentType   string
	Body          map[string]any
}

func newFakeUpstream(t *testing.T, handler http.HandlerFunc) *fakeUpstream {
	t.Helper()
	f := &fakeUpstream{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		raw, _ := io.ReadAll(r.Body)
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		f.lastReq.Store(&capturedRequest{
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			ContentType:   r.Header.Get("Content-Type"),
			Body:          body,
		})
		handler(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func ptr[T any](v T) *T { return &v }

func TestRelay_RejectsNonArrayMessages(t *testing.T) {
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {})
	svc := NewOpenAIService("sk-test", upstream.server.URL, "gpt-3.5-turbo", time.Second, quietLogger())

	cases := map[string]string{
		"absent": "",
		"null":   "null",
		"string": `"hello"`,
		"object": `{"role":"user"}`,
		"number": `42`,
	}

	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Relay(context.Background(), models.ChatRequest{Messages: json.RawMessage(raw)})

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, "messages must be an array", verr.Detail)
		})
	}

	assert.Zero(t, upstream.calls.Load())
}

func TestRelay_MissingKeyIsConfigError(t *testing.T) {
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {})
	svc := NewOpenAIService("", upstream.server.URL, "gpt-3.5-turbo", time.Second, quietLogger())

	_, err := svc.Relay(context.Background(), models.ChatRequest{Messages: json.RawMessage(`[]`)})

	var cerr *ConfigError
	require.ErrorAs(t, err, &cerr)
	assert.Zero(t, upstream.calls.Load())
}

func TestRelay_ValidationRunsBeforeKeyCheck(t *testing.T) {
	svc := NewOpenAIService("", "http://127.0.0.1:1", "gpt-3.5-turbo", time.Second, quietLogger())

	_, err := svc.Relay(context.Background(), models.ChatRequest{})

	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRelay_SendsDefaultsAndCredential(t *testing.T) {
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})
	svc := NewOpenAIService("sk-test", upstream.server.URL+"/", "gpt-3.5-turbo", time.Second, quietLogger())

	_, err := svc.Relay(context.Background(), models.ChatRequest{
		Messages: json.RawMessage(`[{"role":"user","content":"hi"}]`),
	})
	require.NoError(t, err)

	got := upstream.lastReq.Load()
	require.NotNil(t, got)
	assert.Equal(t, "/chat/completions", got.Path)
	assert.Equal(t, "Bearer sk-test", got.Authorization)
	assert.Equal(t, "application/json", got.ContentType)
	assert.Equal(t, "gpt-3.5-turbo", got.Body["model"])
	assert.Equal(t, 0.7, got.Body["temperature"])
	assert.Equal(t, float64(1500), got.Body["max_tokens"])
	assert.Equal(t, []any{map[string]any{"role": "user", "content": "hi"}}, got.Body["messages"])
}

func TestBuildPayload_ExplicitValuesWin(t *testing.T) {
	svc := NewOpenAIService("sk-test", "http://unused", "gpt-3.5-turbo", time.Second, quietLogger())

	payload := svc.BuildPayload(models.ChatRequest{
		Messages:    json.RawMessage(`[]`),
		Model:       ptr("gpt-4o"),
		Temperature: ptr(0.0),
		MaxTokens:   ptr(0),
	})

	assert.Equal(t, "gpt-4o", payload.Model)
	assert.Equal(t, 0.0, payload.Temperature)
	assert.Equal(t, 0, payload.MaxTokens)
}

func TestBuildPayload_BlankModelFallsBack(t *testing.T) {
	svc := NewOpenAIService("sk-test", "http://unused", "gpt-3.5-turbo", time.Second, quietLogger())

	payload := svc.BuildPayload(models.ChatRequest{Messages: json.RawMessage(`[]`), Model: ptr("  ")})

	assert.Equal(t, "gpt-3.5-turbo", payload.Model)
	assert.Equal(t, DefaultTemperature, payload.Temperature)
	assert.Equal(t, DefaultMaxTokens, payload.MaxTokens)
}

func TestRelay_PassesSuccessBodyThrough(t *testing.T) {
	const body = `{"id":"cmpl-1","choices":[{"message":{"role":"assistant","content":"hello"}}]}`
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})
	svc := NewOpenAIService("sk-test", upstream.server.URL, "gpt-3.5-turbo", time.Second, quietLogger())

	completion, err := svc.Relay(context.Background(), models.ChatRequest{Messages: json.RawMessage(`[]`)})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, completion.StatusCode)
	assert.Equal(t, body, string(completion.Body))
}

func TestRelay_UpstreamErrorKeepsStatusAndBody(t *testing.T) {
	const body = `{"error":{"message":"rate limited"}}`
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(body))
	})
	svc := NewOpenAIService("sk-test", upstream.server.URL, "gpt-3.5-turbo", time.Second, quietLogger())

	_, err := svc.Relay(context.Background(), models.ChatRequest{Messages: json.RawMessage(`[]`)})

	var uerr *UpstreamError
	require.ErrorAs(t, err, &uerr)
	assert.Equal(t, http.StatusTooManyRequests, uerr.StatusCode)
	assert.JSONEq(t, body, string(uerr.Body))
	assert.Equal(t, int32(1), upstream.calls.Load(), "no retry expected")
}

func TestRelay_HangingUpstreamIsUnreachable(t *testing.T) {
	release := make(chan struct{})
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	svc := NewOpenAIService("sk-test", upstream.server.URL, "gpt-3.5-turbo", 50*time.Millisecond, quietLogger())

	_, err := svc.Relay(context.Background(), models.ChatRequest{Messages: json.RawMessage(`[]`)})

	var uerr *UnreachableError
	require.ErrorAs(t, err, &uerr)
}

func TestRelay_RefusedConnectionIsUnreachable(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := upstream.URL
	upstream.Close()

	svc := NewOpenAIService("sk-test", url, "gpt-3.5-turbo", time.Second, quietLogger())
	_, err := svc.Relay(context.Background(), models.ChatRequest{Messages: json.RawMessage(`[]`)})

	var uerr *UnreachableError
	require.ErrorAs(t, err, &uerr)
	assert.NotNil(t, errors.Unwrap(uerr))
}

func TestUpstreamMessage(t *testing.T) {
	assert.Equal(t, "rate limited", UpstreamMessage([]byte(`{"error":{"message":"rate limited"}}`)))
	assert.Equal(t, "", UpstreamMessage([]byte(`{"error":"flat"}`)))
	assert.Equal(t, "", UpstreamMessage([]byte(`<html>bad gateway</html>`)))
	assert.Equal(t, "", UpstreamMessage(nil))
}

func TestRelay_ValidationAndConfigFailuresLogAtErrorLevel(t *testing.T) {
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {})

	t.Run("invalid messages", func(t *testing.T) {
		logger, hook := logtest.NewNullLogger()
		svc := NewOpenAIService("sk-test", upstream.server.URL, "gpt-3.5-turbo", time.Second, logrus.NewEntry(logger))

		_, err := svc.Relay(context.Background(), models.ChatRequest{Messages: json.RawMessage(`"hi"`)})
		require.Error(t, err)

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.ErrorLevel, entry.Level)
		assert.Equal(t, "Invalid message format", entry.Message)
	})

	t.Run("missing key", func(t *testing.T) {
		logger, hook := logtest.NewNullLogger()
		svc := NewOpenAIService("", upstream.server.URL, "gpt-3.5-turbo", time.Second, logrus.NewEntry(logger))

		_, err := svc.Relay(context.Background(), models.ChatRequest{Messages: json.RawMessage(`[]`)})
		require.Error(t, err)

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.ErrorLevel, entry.Level)
		assert.Equal(t, "API key is missing", entry.Message)
	})

	assert.Zero(t, upstream.calls.Load())
}

func TestRelay_MultiByteModelNameStillRelays(t *testing.T) {
	const body = `{"choices":[]}`
	upstream := newFakeUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(body))
	})
	svc := NewOpenAIService("sk-test", upstream.server.URL, "gpt-3.5-turbo", time.Second, quietLogger()).
		WithKnownModels([]string{"gpt-4o"})

	model := strings.Repeat("a", 63) + "é"
	completion, err := svc.Relay(context.Background(), models.ChatRequest{
		Messages: json.RawMessage(`[]`),
		Model:    &model,
	})

	require.NoError(t, err)
	assert.Equal(t, body, string(completion.Body))
	assert.Equal(t, model, upstream.lastReq.Load().Body["model"])
}
