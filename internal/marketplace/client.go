// Package marketplace is the HTTP client for the marketplace API.
package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/eliote-geeks/reveilartist/internal/domain"
	"github.com/google/uuid"
)

const (
	defaultTimeout  = 60 * time.Second
	downloadTimeout = 30 * time.Minute
	maxRetries      = 3
	baseRetryDelay  = 500 * time.Millisecond
)

// Client implements the domain repositories against the marketplace API
type Client struct {
	baseURL    string
	httpClient *http.Client
	dlClient   *http.Client
	logger     *slog.Logger

	mu    sync.RWMutex
	token string

	// retryDelay is the first backoff step; tests shorten it
	retryDelay time.Duration
}

// NewClient creates a new marketplace API client. token may be empty for
// anonymous browsing.
func NewClient(baseURL, token string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		dlClient: &http.Client{
			Timeout: downloadTimeout,
		},
		logger:     logger,
		retryDelay: baseRetryDelay,
	}
}

// Token returns the current bearer token, empty when signed out
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// SetToken replaces the bearer token used for subsequent requests
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Client) newRequest(ctx context.Context, method, reqURL string, payload []byte) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) buildURL(path string, query url.Values) string {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL = reqURL + "?" + query.Encode()
	}
	return reqURL
}

// doRequest performs a JSON request against the marketplace API.
// When retry is set, 5xx responses are retried with exponential backoff.
func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, in any, retry bool) ([]byte, error) {
	reqURL := c.buildURL(path, query)

	var payload []byte
	if in != nil {
		var err error
		payload, err = json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	attempts := 0
	if retry {
		attempts = maxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<(attempt-1)) // 500ms, 1s, 2s
			c.logger.Debug("retrying request", "attempt", attempt, "delay", delay, "url", reqURL)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		req, err := c.newRequest(ctx, method, reqURL, payload)
		if err != nil {
			return nil, err
		}

		c.logger.Debug("marketplace request", "method", method, "url", reqURL, "attempt", attempt)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Error("marketplace request failed", "error", err)
			return nil, fmt.Errorf("%w: %v", domain.ErrNetworkFailure, err)
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read response: %v", domain.ErrNetworkFailure, err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized:
			return nil, domain.ErrUnauthenticated
		case resp.StatusCode == http.StatusNotFound:
			return nil, domain.ErrNotFound
		case resp.StatusCode >= 500 && resp.StatusCode < 600:
			lastErr = fmt.Errorf("%w: server error %d: %s", domain.ErrNetworkFailure, resp.StatusCode, errorMessage(body))
			c.logger.Warn("marketplace server error",
				"status", resp.StatusCode,
				"attempt", attempt,
				"maxRetries", attempts,
				"path", path,
			)
			continue
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			c.logger.Error("marketplace request error", "status", resp.StatusCode, "body", string(body))
			return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, errorMessage(body))
		}

		return body, nil
	}

	c.logger.Error("marketplace request failed after retries", "error", lastErr, "path", path)
	return nil, lastErr
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	body, err := c.doRequest(ctx, http.MethodGet, path, query, nil, true)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// errorMessage extracts {"message"} from an error body, falling back to the raw text
func errorMessage(body []byte) string {
	var e ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}

func collectionPath(t domain.ContentType) string {
	return "/api/" + string(t) + "s"
}

// ListContent returns a page of sounds or events
func (c *Client) ListContent(ctx context.Context, t domain.ContentType, offset, limit int) ([]*domain.Content, int, error) {
	query := url.Values{}
	query.Set("offset", strconv.Itoa(offset))
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	var resp ContentListResponse
	if err := c.getJSON(ctx, collectionPath(t), query, &resp); err != nil {
		return nil, 0, err
	}
	return MapContents(resp.Items), resp.Total, nil
}

// GetPurchases returns every content key the user owns
func (c *Client) GetPurchases(ctx context.Context, userID string) ([]domain.ContentKey, error) {
	path := fmt.Sprintf("/api/users/%s/purchases", url.PathEscape(userID))

	var resp PurchasesResponse
	if err := c.getJSON(ctx, path, nil, &resp); err != nil {
		return nil, err
	}
	return MapPurchases(resp.Items), nil
}

// GetLikeStatuses fetches like state for many ids in one round trip
func (c *Client) GetLikeStatuses(ctx context.Context, contentIDs []string) ([]domain.LikeStatus, error) {
	if len(contentIDs) == 0 {
		return nil, nil
	}
	body, err := c.doRequest(ctx, http.MethodPost, "/api/likes/status", nil, LikeStatusRequest{ContentIDs: contentIDs}, true)
	if err != nil {
		return nil, err
	}

	var resp LikeStatusResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return MapLikeStatuses(resp.Statuses), nil
}

// ToggleLike flips the like for contentID. It is not retried: a repeated
// toggle would undo the first one.
func (c *Client) ToggleLike(ctx context.Context, contentID string) (domain.LikeStatus, error) {
	path := fmt.Sprintf("/api/likes/%s/toggle", url.PathEscape(contentID))
	body, err := c.doRequest(ctx, http.MethodPost, path, nil, nil, false)
	if err != nil {
		return domain.LikeStatus{}, err
	}

	var resp ToggleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.LikeStatus{}, fmt.Errorf("failed to parse response: %w", err)
	}
	return domain.LikeStatus{ContentID: contentID, Liked: resp.Liked, LikeCount: resp.LikeCount}, nil
}

// ResolveStreamURL returns a playable URL for a sound
func (c *Client) ResolveStreamURL(ctx context.Context, trackID string) (string, error) {
	path := fmt.Sprintf("/api/sounds/%s/stream", url.PathEscape(trackID))

	var resp StreamResponse
	if err := c.getJSON(ctx, path, nil, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", domain.ErrNotFound
	}

	// Relative locations are served by the marketplace itself
	if strings.HasPrefix(resp.URL, "/") {
		return c.baseURL + resp.URL, nil
	}
	return resp.URL, nil
}

// GetRecommendations returns personalized recommendations
func (c *Client) GetRecommendations(ctx context.Context) ([]*domain.Content, error) {
	var resp ContentListResponse
	if err := c.getJSON(ctx, "/api/recommendations", nil, &resp); err != nil {
		return nil, err
	}
	return MapContents(resp.Items), nil
}

// FetchContent opens the binary payload for key. The caller closes body.
// Failures are *domain.TransferError except entitlement and auth rejections.
func (c *Client) FetchContent(ctx context.Context, key domain.ContentKey) (io.ReadCloser, int64, string, error) {
	path := fmt.Sprintf("%s/%s/download", collectionPath(key.Type), url.PathEscape(key.ID))
	req, err := c.newRequest(ctx, http.MethodGet, c.buildURL(path, nil), nil)
	if err != nil {
		return nil, 0, "", err
	}
	req.Header.Set("Accept", "*/*")

	c.logger.Debug("marketplace download", "url", req.URL.String())

	resp, err := c.dlClient.Do(req)
	if err != nil {
		c.logger.Error("download request failed", "error", err, "contentID", key.ID)
		return nil, 0, "", &domain.TransferError{ContentID: key.ID, Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()
		msg := errorMessage(body)

		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return nil, 0, "", domain.ErrUnauthenticated
		case http.StatusForbidden, http.StatusPaymentRequired:
			c.logger.Info("download not entitled", "contentID", key.ID, "message", msg)
			return nil, 0, "", fmt.Errorf("%w: %s", domain.ErrNotEntitled, msg)
		}
		c.logger.Error("download error", "status", resp.StatusCode, "contentID", key.ID, "message", msg)
		return nil, 0, "", &domain.TransferError{ContentID: key.ID, StatusCode: resp.StatusCode, Message: msg}
	}

	return resp.Body, resp.ContentLength, attachmentName(resp.Header.Get("Content-Disposition")), nil
}

// attachmentName returns the filename from a Content-Disposition header
func attachmentName(header string) string {
	if header == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(header)
	if err != nil {
		return ""
	}
	name := params["filename"]
	// Never let the server pick a directory
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "." || name == ".." {
		return ""
	}
	return name
}

