// Package storage uploads photos to the object store over its HTTP API and
// hands back public URLs.
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

type Client struct {
	baseURL     string
	apiKey      string
	bucket      string
	httpClient  *http.Client
	backoffBase time.Duration
	log         *zap.Logger
}

func NewClient(baseURL, apiKey, bucket string, httpClient *http.Client, log *zap.Logger) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		bucket:      bucket,
		httpClient:  httpClient,
		backoffBase: time.Second,
		log:         log,
	}
}

// UploadPhoto stores a JPEG under a fresh random name and returns its public
// URL. Transient store errors are retried; the name is regenerated per call,
// not per attempt, so a retry never duplicates the object.
func (c *Client) UploadPhoto(ctx context.Context, photo []byte) (string, error) {
	name := uuid.NewString() + ".jpg"
	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, name)

	backoff := retry.WithMaxRetries(2, retry.NewExponential(c.backoffBase))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(photo))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "image/jpeg")
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
			return nil
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		failure := fmt.Errorf("upload status %d: %s", resp.StatusCode, string(body))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return retry.RetryableError(failure)
		}
		return failure
	})
	if err != nil {
		return "", fmt.Errorf("uploading %s: %w", name, err)
	}
	c.log.Debug("photo uploaded", zap.String("object", name))
	return c.PublicURL(name), nil
}

func (c *Client) PublicURL(name string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, name)
}
