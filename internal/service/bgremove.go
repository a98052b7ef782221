package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// BackgroundRemover strips the background from an image before it is
// placed on the canvas. Implementations must be safe for concurrent use.
type BackgroundRemover interface {
	Remove(ctx context.Context, image []byte) ([]byte, error)
}

// NoopBackgroundRemover returns images unchanged. Used when the feature
// is disabled in config.
type NoopBackgroundRemover struct{}

func (NoopBackgroundRemover) Remove(_ context.Context, image []byte) ([]byte, error) {
	return image, nil
}

// HTTPBackgroundRemover calls an external matting endpoint (rembg-style
// API) that accepts a multipart upload and returns a PNG with alpha.
type HTTPBackgroundRemover struct {
	client   *resty.Client
	endpoint string
}

// BgRemovalConfig holds settings for the HTTP background remover.
type BgRemovalConfig struct {
	Endpoint string
	APIKey   string
}

// NewHTTPBackgroundRemover creates a remover against the given endpoint.
func NewHTTPBackgroundRemover(cfg *BgRemovalConfig) *HTTPBackgroundRemover {
	client := resty.New()
	client.SetTimeout(30 * time.Second)
	if cfg.APIKey != "" {
		client.SetHeader("X-Api-Key", cfg.APIKey)
	}
	return &HTTPBackgroundRemover{
		client:   client,
		endpoint: cfg.Endpoint,
	}
}

// Remove uploads the image and returns the matted PNG bytes.
func (r *HTTPBackgroundRemover) Remove(ctx context.Context, image []byte) ([]byte, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetFileReader("image", "image.png", bytes.NewReader(image)).
		Post(r.endpoint)

	if err != nil {
		return nil, fmt.Errorf("failed to call background removal API: %w", err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return nil, fmt.Errorf("background removal API error: HTTP %d", resp.StatusCode())
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, fmt.Errorf("background removal API returned empty body")
	}
	return body, nil
}
