package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/notifyrelay/relay/internal/models"
)

// Classification buckets an attempt's observed outcome
type Classification string

const (
	ClassSuccess   Classification = "success"
	ClassRetryable Classification = "retryable"
	ClassTerminal  Classification = "terminal"
)

// Reasons attached to an outcome
const (
	ReasonNetwork         = "network"
	ReasonTransientClient = "transient-client"
	ReasonServerError     = "server-error"
	ReasonSystem          = "system"
	ReasonNon2xx          = "non-2xx"
	ReasonClientError     = "client-error"
)

// Outcome is the classified result of a single dispatch attempt, handed
// to the outcome handler together with the raw observed values
type Outcome struct {
	Classification Classification
	Reason         string
	HTTPStatus     *int
	ResponseBody   *string
	ErrorMessage   *string
	LatencyMs      int64
}

// Executor performs exactly one outbound HTTP attempt for a task and
// classifies the result. It never mutates task state.
type Executor struct {
	client *http.Client
}

// NewExecutor builds an executor with the given connect and read
// timeouts. Redirects are not followed: a 3xx is returned as-is and
// classified below.
func NewExecutor(connectTimeout, readTimeout time.Duration) *Executor {
	return &Executor{
		client: &http.Client{
			Timeout: readTimeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: connectTimeout,
				}).DialContext,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Execute performs one dispatch attempt. Latency is measured from just
// before the send to outcome return.
func (e *Executor) Execute(ctx context.Context, task *models.Task) Outcome {
	start := time.Now()

	req, err := e.buildRequest(ctx, task)
	if err != nil {
		return failure(ClassRetryable, ReasonSystem, nil, err.Error(), start)
	}

	// Do wraps every transport failure in a *url.Error; they all come
	// down to not reaching the target, so they classify as network
	resp, err := e.client.Do(req)
	if err != nil {
		return failure(ClassRetryable, ReasonNetwork, nil, "network error: "+err.Error(), start)
	}
	defer resp.Body.Close()

	// A body read error past this point still leaves us with a status;
	// classify on the status and keep whatever was read.
	data, _ := io.ReadAll(resp.Body)
	body := string(data)
	status := resp.StatusCode

	return classifyStatus(status, body, start)
}

func (e *Executor) buildRequest(ctx context.Context, task *models.Task) (*http.Request, error) {
	method := strings.ToUpper(task.HTTPMethod)
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
	default:
		return nil, fmt.Errorf("unsupported http method: %s", task.HTTPMethod)
	}

	req, err := http.NewRequestWithContext(ctx, method, task.TargetURL, bytes.NewReader(task.Body))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for name, value := range task.Headers {
		req.Header.Set(name, value)
	}

	return req, nil
}

// classifyStatus implements the outcome decision table; first matching
// row wins.
func classifyStatus(status int, body string, start time.Time) Outcome {
	latency := time.Since(start).Milliseconds()

	switch {
	case status >= 200 && status < 300:
		return Outcome{
			Classification: ClassSuccess,
			HTTPStatus:     &status,
			ResponseBody:   &body,
			LatencyMs:      latency,
		}
	case status >= 300 && status < 400:
		// Redirects are not followed; non-2xx means not delivered
		return statusFailure(ClassTerminal, ReasonNon2xx, status, body, latency)
	case status == http.StatusRequestTimeout || status == http.StatusTooManyRequests:
		return statusFailure(ClassRetryable, ReasonTransientClient, status, body, latency)
	case status >= 400 && status < 500:
		return statusFailure(ClassTerminal, ReasonClientError, status, body, latency)
	case status >= 500 && status < 600:
		return statusFailure(ClassRetryable, ReasonServerError, status, body, latency)
	default:
		return statusFailure(ClassRetryable, ReasonSystem, status, body, latency)
	}
}

func statusFailure(class Classification, reason string, status int, body string, latency int64) Outcome {
	errMsg := fmt.Sprintf("HTTP %d: %s", status, body)
	return Outcome{
		Classification: class,
		Reason:         reason,
		HTTPStatus:     &status,
		ErrorMessage:   &errMsg,
		LatencyMs:      latency,
	}
}

func failure(class Classification, reason string, status *int, errMsg string, start time.Time) Outcome {
	return Outcome{
		Classification: class,
		Reason:         reason,
		HTTPStatus:     status,
		ErrorMessage:   &errMsg,
		LatencyMs:      time.Since(start).Milliseconds(),
	}
}
