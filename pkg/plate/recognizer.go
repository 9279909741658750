package plate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrNoPlate is returned when the API answered but found no plate
var ErrNoPlate = errors.New("no plate number recognized")

// Config configures the recognition API client
type Config struct {
	URL        string
	Timeout    time.Duration
	MaxRetries uint64
	Backoff    time.Duration
}

// Client calls an external plate-recognition HTTP API
type Client struct {
	url        string
	http       *http.Client
	maxRetries uint64
	backoff    time.Duration
}

type recognizeRequest struct {
	ImageURL string `json:"imageUrl"`
}

type recognizeResponse struct {
	NumberPlate string `json:"numberPlate"`
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 200 * time.Millisecond
	}
	return &Client{
		url:        cfg.URL,
		http:       &http.Client{Timeout: cfg.Timeout},
		maxRetries: cfg.MaxRetries,
		backoff:    cfg.Backoff,
	}
}

// Recognize sends the image URL to the API and returns the plate number.
// Transport failures and 5xx answers are retried with exponential backoff.
func (c *Client) Recognize(ctx context.Context, imageURL string) (string, error) {
	body, err := json.Marshal(recognizeRequest{ImageURL: imageURL})
	if err != nil {
		return "", err
	}

	var plate string
	b := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.backoff))
	err = retry.Do(ctx, b, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			_, _ = io.Copy(io.Discard, resp.Body)
			return retry.RetryableError(fmt.Errorf("plate api returned %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("plate api returned %d", resp.StatusCode)
		}

		var out recognizeResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return fmt.Errorf("failed to decode plate api response: %w", err)
		}
		plate = strings.TrimSpace(out.NumberPlate)
		return nil
	})
	if err != nil {
		return "", err
	}
	if plate == "" {
		return "", ErrNoPlate
	}
	return plate, nil
}
