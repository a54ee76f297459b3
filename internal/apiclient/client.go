// Package apiclient is a typed HTTP client for the tutoring REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Session carries the bearer token of the signed-in account. It is passed to
// every call explicitly.
type Session struct {
	Token string
}

// Error is a non-2xx response. Message comes from the server envelope when
// present and falls back to the status text; FromServer tells the two apart.
type Error struct {
	Status     int
	Message    string
	FromServer bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// IsUnauthorized reports whether err is a 401 response.
func IsUnauthorized(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusUnauthorized
}

// Client calls the REST API.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// New creates a client with a request timeout.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

// ErrNoStudent is returned by admin-only calls made without a student id.
var ErrNoStudent = errors.New("student id required")

func (c *Client) do(ctx context.Context, sess Session, method, path string, query url.Values, in, out any) error {
	if path == "" {
		return ErrNoStudent
	}
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	target := c.BaseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sess.Token != "" {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var env struct {
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		if json.Unmarshal(raw, &env) == nil && env.Message != "" {
			return &Error{Status: resp.StatusCode, Message: env.Message, FromServer: true}
		}
		return &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// studentPath returns the admin path for studentID, or the self path when it is empty.
func studentPath(studentID, adminSuffix, selfPath string) string {
	if studentID == "" {
		return selfPath
	}
	return "/api/admin/students/" + url.PathEscape(studentID) + adminSuffix
}
