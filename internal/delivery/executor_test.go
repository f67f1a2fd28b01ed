package delivery

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notifyrelay/relay/internal/models"
)

func testExecutor() *Executor {
	return NewExecutor(time.Second, 2*time.Second)
}

func deliveryTask(url string) *models.Task {
	return &models.Task{
		TaskID:     "t-1",
		TargetURL:  url,
		HTTPMethod: "POST",
		Body:       json.RawMessage(`{"orderId":42}`),
		Status:     models.TaskStatusProcessing,
		MaxRetries: 5,
	}
}

func TestExecuteSuccess(t *testing.T) {
	var gotMethod, gotContentType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	outcome := testExecutor().Execute(context.Background(), deliveryTask(srv.URL))

	assert.Equal(t, ClassSuccess, outcome.Classification)
	require.NotNil(t, outcome.HTTPStatus)
	assert.Equal(t, 200, *outcome.HTTPStatus)
	require.NotNil(t, outcome.ResponseBody)
	assert.Equal(t, `{"ok":true}`, *outcome.ResponseBody)
	assert.GreaterOrEqual(t, outcome.LatencyMs, int64(0))

	assert.Equal(t, "POST", gotMethod)
	assert.Equal(t, "application/json", gotContentType)
	assert.JSONEq(t, `{"orderId":42}`, string(gotBody))
}

func TestExecuteUppercasesMethod(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	task := deliveryTask(srv.URL)
	task.HTTPMethod = "patch"
	outcome := testExecutor().Execute(context.Background(), task)

	assert.Equal(t, ClassSuccess, outcome.Classification)
	assert.Equal(t, "PATCH", gotMethod)
}

func TestExecuteCustomHeadersOverrideContentType(t *testing.T) {
	var gotContentType, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	task := deliveryTask(srv.URL)
	task.Headers = map[string]string{
		"Content-Type":  "application/vnd.api+json",
		"Authorization": "Bearer token",
	}
	outcome := testExecutor().Execute(context.Background(), task)

	assert.Equal(t, ClassSuccess, outcome.Classification)
	assert.Equal(t, "application/vnd.api+json", gotContentType)
	assert.Equal(t, "Bearer token", gotAuth)
}

func TestExecuteClassificationTable(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantClass  Classification
		wantReason string
	}{
		{"201 created", 201, ClassSuccess, ""},
		{"301 redirect not followed", 301, ClassTerminal, ReasonNon2xx},
		{"302 redirect not followed", 302, ClassTerminal, ReasonNon2xx},
		{"408 request timeout", 408, ClassRetryable, ReasonTransientClient},
		{"429 too many requests", 429, ClassRetryable, ReasonTransientClient},
		{"400 bad request", 400, ClassTerminal, ReasonClientError},
		{"404 not found", 404, ClassTerminal, ReasonClientError},
		{"500 server error", 500, ClassRetryable, ReasonServerError},
		{"503 unavailable", 503, ClassRetryable, ReasonServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status == 301 || tt.status == 302 {
					w.Header().Set("Location", "/elsewhere")
				}
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			outcome := testExecutor().Execute(context.Background(), deliveryTask(srv.URL))

			assert.Equal(t, tt.wantClass, outcome.Classification)
			assert.Equal(t, tt.wantReason, outcome.Reason)
			require.NotNil(t, outcome.HTTPStatus)
			assert.Equal(t, tt.status, *outcome.HTTPStatus)
			if tt.wantClass != ClassSuccess {
				assert.NotNil(t, outcome.ErrorMessage)
			}
		})
	}
}

func TestExecuteConnectFailureIsRetryableNetwork(t *testing.T) {
	// Nothing listens here
	outcome := testExecutor().Execute(context.Background(), deliveryTask("http://127.0.0.1:1"))

	assert.Equal(t, ClassRetryable, outcome.Classification)
	assert.Equal(t, ReasonNetwork, outcome.Reason)
	assert.Nil(t, outcome.HTTPStatus)
	assert.NotNil(t, outcome.ErrorMessage)
}

func TestExecuteReadTimeoutIsRetryableNetwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	exec := NewExecutor(time.Second, 50*time.Millisecond)
	outcome := exec.Execute(context.Background(), deliveryTask(srv.URL))

	assert.Equal(t, ClassRetryable, outcome.Classification)
	assert.Equal(t, ReasonNetwork, outcome.Reason)
	assert.Nil(t, outcome.HTTPStatus)
}

func TestExecuteUnsupportedMethodIsRetryableSystem(t *testing.T) {
	task := deliveryTask("http://example.com")
	task.HTTPMethod = "DELETE"

	outcome := testExecutor().Execute(context.Background(), task)

	assert.Equal(t, ClassRetryable, outcome.Classification)
	assert.Equal(t, ReasonSystem, outcome.Reason)
	assert.Nil(t, outcome.HTTPStatus)
}
