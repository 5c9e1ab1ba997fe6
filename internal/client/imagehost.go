package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrImageHostNotConfigured is returned when no image host key is set
var ErrImageHostNotConfigured = errors.New("image host key not configured")

// ImageHost uploads course thumbnails to an imgbb-compatible host
type ImageHost struct {
	rest   *resty.Client
	apiKey string
	logger *zap.Logger
}

// NewImageHost creates an image host client
func NewImageHost(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *ImageHost {
	rest := resty.New().SetBaseURL(strings.TrimRight(baseURL, "/"))
	if timeout > 0 {
		rest.SetTimeout(timeout)
	}
	return &ImageHost{rest: rest, apiKey: apiKey, logger: logger}
}

// StripDataURL returns the base64 payload of a data URL ("data:...;base64,")
// or the input unchanged when it has no prefix
func StripDataURL(s string) string {
	if _, payload, ok := strings.Cut(s, ","); ok {
		return payload
	}
	return s
}

// Upload stores a base64 image (optionally a data URL) and returns its
// hosted URL
func (h *ImageHost) Upload(ctx context.Context, image string) (string, error) {
	if h.apiKey == "" {
		return "", ErrImageHostNotConfigured
	}

	resp, err := h.rest.R().
		SetContext(ctx).
		SetQueryParam("key", h.apiKey).
		SetFormData(map[string]string{"image": StripDataURL(image)}).
		Post("/1/upload")
	if err != nil {
		if ctx.Err() != nil {
			return "", ErrAborted
		}
		return "", fmt.Errorf("failed to upload image: %w", err)
	}

	var out struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(resp.Body(), &out)

	if resp.IsError() || out.Data.URL == "" {
		msg := out.Error.Message
		if msg == "" {
			msg = "Image upload failed"
		}
		h.logger.Warn("image upload failed", zap.Int("status", resp.StatusCode()), zap.String("message", msg))
		return "", &APIError{StatusCode: resp.StatusCode(), Message: msg}
	}
	return out.Data.URL, nil
}
