// Package client talks to the remote Course API, Auth API and image host.
//
// Every call takes the caller's context: its session token is sent as the
// bearer credential, its request id is forwarded, and cancelling it aborts the
// call with ErrAborted. Calls are never retried.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coursemuster/portal/internal/middleware"
	"github.com/coursemuster/portal/internal/session"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

var (
	// ErrAborted is returned when the caller's context was cancelled
	ErrAborted = errors.New("request aborted")
	// ErrNotFound matches API errors with status 404
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized matches API errors with status 401 or 403
	ErrUnauthorized = errors.New("unauthorized")
)

// APIError is a non-2xx answer from a remote API
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Is lets errors.Is classify API errors by status
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	default:
		return false
	}
}

// newAPIError builds the error message from the body's "message" or "error"
// field, else the body text, else the status text
func newAPIError(status int, body []byte) *APIError {
	msg := ""
	var obj struct {
		Message json.RawMessage `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &obj); err == nil {
		msg = firstText(obj.Message, obj.Error)
	}
	if msg == "" && !looksLikeJSON(body) {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = fmt.Sprintf("Status %d", status)
	}
	return &APIError{StatusCode: status, Message: msg}
}

// firstText returns the first value that is a non-empty string, or the
// message of an {"message": "..."} object
func firstText(values ...json.RawMessage) string {
	for _, raw := range values {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(raw, &nested); err == nil && nested.Message != "" {
			return nested.Message
		}
	}
	return ""
}

func looksLikeJSON(body []byte) bool {
	body = bytes.TrimSpace(body)
	return len(body) > 0 && (body[0] == '{' || body[0] == '[')
}

// Client is a JSON client bound to one remote base URL
type Client struct {
	rest   *resty.Client
	logger *zap.Logger
}

// New creates a client for baseURL. A zero timeout leaves calls bounded only
// by their context.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	rest := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetHeader("Accept", "application/json").
		SetRetryCount(0)
	if timeout > 0 {
		rest.SetTimeout(timeout)
	}
	return &Client{rest: rest, logger: logger}
}

// request prepares a call carrying the caller's credentials
func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.rest.R().SetContext(ctx)
	if token := session.TokenFromContext(ctx); token != "" {
		req.SetAuthToken(token)
	}
	if id := middleware.GetRequestID(ctx); id != "" {
		req.SetHeader(middleware.RequestIDHeader, id)
	}
	return req
}

// do runs a call and returns the raw body of a 2xx answer
func (c *Client) do(ctx context.Context, req *resty.Request, method, path string) ([]byte, error) {
	resp, err := req.Execute(method, path)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
			return nil, ErrAborted
		}
		return nil, fmt.Errorf("failed to call %s %s: %w", method, path, err)
	}

	if resp.IsError() {
		apiErr := newAPIError(resp.StatusCode(), resp.Body())
		c.logger.Debug("remote API error",
			zap.String("request_id", middleware.GetRequestID(ctx)),
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", apiErr.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return nil, apiErr
	}
	return resp.Body(), nil
}

func (c *Client) get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	req := c.request(ctx)
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	return c.do(ctx, req, http.MethodGet, path)
}

func (c *Client) post(ctx context.Context, path string, body any) ([]byte, error) {
	req := c.request(ctx).SetHeader("Content-Type", "application/json")
	if body != nil {
		req.SetBody(body)
	}
	return c.do(ctx, req, http.MethodPost, path)
}

// unwrap returns obj[key] when the body is an object carrying key, else the
// body itself
func unwrap(body []byte, key string) json.RawMessage {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err == nil {
		if v, ok := obj[key]; ok && looksLikeJSON(v) {
			return v
		}
	}
	return body
}

// messageOf returns the "message" field of a response body, or def
func messageOf(body []byte, def string) string {
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return def
}
