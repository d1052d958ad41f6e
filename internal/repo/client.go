package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"bindery/internal/config"
	"bindery/internal/logging"
)

const userAgent = "Bindery-Go/0.1.0"

// HTTPDoer describes the HTTP client used by the repository client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SubmissionResult describes a package accepted by the repository.
type SubmissionResult struct {
	// Location is the created item's URL from the Location header.
	Location string
	// Body is the decoded JSON response body, when the repository sent one.
	Body map[string]any
}

// Client is a token-authenticated client for the repository REST API.
type Client struct {
	baseURL string
	token   string
	client  HTTPDoer
	logger  *slog.Logger
}

// Option customizes client construction.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client, mainly for tests.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		if doer != nil {
			c.client = doer
		}
	}
}

// WithLogger attaches a logger to the client.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "repo")
		}
	}
}

// NewClient builds a repository client from configuration.
func NewClient(cfg *config.Config, opts ...Option) *Client {
	var baseURL, token string
	timeout := 120 * time.Second
	if cfg != nil {
		baseURL = cfg.Repository.BaseURL
		token = cfg.Repository.Token
		if cfg.Repository.RequestTimeout > 0 {
			timeout = time.Duration(cfg.Repository.RequestTimeout) * time.Second
		}
	}

	client := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:   strings.TrimSpace(token),
		client:  &http.Client{Timeout: timeout},
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping verifies the API root is reachable with the configured token.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return fmt.Errorf("build ping request: %w", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return Wrap(ErrConnectivity, "ping repository", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return Wrap(ErrRejected, fmt.Sprintf("repository returned %d; check repository.token", resp.StatusCode), nil)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return Wrap(ErrConnectivity, fmt.Sprintf("repository returned %d", resp.StatusCode), nil)
	}
	return nil
}

// Collection is a handle on one repository collection.
type Collection struct {
	client *Client
	id     int64
}

// Collections returns a handle for the collection with the given ID.
func (c *Client) Collections(id int64) *Collection {
	return &Collection{client: c, id: id}
}

// URL returns the collection's resource URL.
func (col *Collection) URL() string {
	return fmt.Sprintf("%s/collections/%d", col.client.baseURL, col.id)
}

// ID returns the collection identifier.
func (col *Collection) ID() int64 {
	return col.id
}

// SubmitPackage posts the package archive at locator to the collection's
// package endpoint. The returned result carries the created item's location
// and the decoded response body. Failures are tagged with a failure kind.
func (col *Collection) SubmitPackage(ctx context.Context, locator string) (*SubmissionResult, error) {
	c := col.client

	file, err := os.Open(locator)
	if err != nil {
		return nil, Wrap(ErrLocalIO, "open package archive", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, Wrap(ErrLocalIO, "stat package archive", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, col.URL()+"/package", file)
	if err != nil {
		return nil, Wrap(ErrConnectivity, "build submission request", err)
	}
	req.Header.Set("Content-Type", "application/zip")
	req.ContentLength = info.Size()
	c.authorize(req)

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, Wrap(ErrConnectivity, "submit package", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		snippet := strings.TrimSpace(string(body))
		if snippet == "" {
			return nil, Wrap(ErrRejected, fmt.Sprintf("repository returned %d", resp.StatusCode), nil)
		}
		return nil, Wrap(ErrRejected, fmt.Sprintf("repository returned %d: %s", resp.StatusCode, snippet), nil)
	}

	result := &SubmissionResult{Location: resp.Header.Get("Location")}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, Wrap(ErrConnectivity, "read submission response", err)
	}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &result.Body); err != nil {
			return nil, Wrap(ErrRejected, "decode submission response", err)
		}
	}

	c.logger.Info("package submitted",
		logging.String(logging.FieldLocator, locator),
		logging.String("location", result.Location),
		logging.Int64("bytes", info.Size()),
		logging.Duration("elapsed", time.Since(start)),
	)
	return result, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Token "+c.token)
	}
	req.Header.Set("User-Agent", userAgent)
}
