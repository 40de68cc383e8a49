package curiouscat

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"curiousqa/pkg/config"
	"curiousqa/pkg/errors"
	"curiousqa/pkg/logger"

	json "github.com/goccy/go-json"
)

// Client talks to the CuriousCat profile API. It holds no per-request
// state and is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	baseURL    string
	logger     logger.Logger
}

// NewClient creates a client for the API described by cfg
func NewClient(cfg config.CuriousCatConfig, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
		},
		headers: map[string]string{
			"User-Agent": cfg.UserAgent,
			"Accept":     "application/json",
		},
		baseURL: baseURL,
		logger:  log.WithField("component", "curiouscat"),
	}
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		if value != "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, classifyTransportError(req.Context(), err)
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// classifyTransportError separates deadlines from other transport failures.
// A caller cancellation is returned as is so it is not reported as an
// upstream fault.
func classifyTransportError(ctx context.Context, err error) error {
	if stderrors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Timeout(err)
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.Timeout(err)
	}
	return errors.Network(err)
}

// checkResponseStatus rejects every non-2xx response
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	fields := map[string]interface{}{
		"status": resp.StatusCode,
		"url":    resp.Request.URL.String(),
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		c.logger.WarnWithFields("rate limit exceeded", fields)
		e := errors.Status(resp.StatusCode)
		e.Type = errors.ErrorTypeRateLimit
		return e
	}
	c.logger.ErrorWithFields("unexpected API status", fields)
	return errors.Status(resp.StatusCode)
}

// getJSON performs a GET request and decodes the JSON response into target
func (c *Client) getJSON(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.doRequest(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return classifyTransportError(ctx, fmt.Errorf("failed to read response body: %w", err))
	}

	if err := json.Unmarshal(body, target); err != nil {
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return errors.Parsing(resp.StatusCode, err)
	}

	return nil
}

// FetchPage fetches the page of posts strictly older than cursor
func (c *Client) FetchPage(ctx context.Context, username string, cursor int64) (*Page, error) {
	url := ProfileURL(c.baseURL, username, cursor)

	var page Page
	if err := c.getJSON(ctx, url, &page); err != nil {
		c.logger.WarnWithFields("failed to fetch profile page", map[string]interface{}{
			"username": username,
			"cursor":   cursor,
			"error":    err.Error(),
		})
		return nil, err
	}

	return &page, nil
}
