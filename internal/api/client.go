package api

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

	"driver-companion/internal/general/contracts"
	"driver-companion/internal/general/logger"
)

// Paths on the dispatch server's mobile API.
const (
	PathMobileLogin   = "/api/mobile-login"
	PathPushToken     = "/api/push-token"
	PathRequestStatus = "/api/request-status"
)

var (
	// ErrUnauthorized is returned on 401: bad credentials on login, or a
	// session cookie the server no longer accepts.
	ErrUnauthorized = errors.New("unauthorized")
)

// Client calls the dispatch server. It holds the opaque session cookie and
// replays it verbatim on every authenticated request. No retries, no
// refresh; callers decide what a failure means.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logger.Logger

	cookie string
}

// LoginResult is what a successful login yields.
type LoginResult struct {
	Cookie   string
	DriverID string
	Name     string
}

// NewClient creates a Client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, lg *logger.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  lg,
	}
}

// SetSessionCookie installs a previously stored session cookie.
func (c *Client) SetSessionCookie(cookie string) {
	c.cookie = cookie
}

// SessionCookie returns the cookie currently replayed on requests.
func (c *Client) SessionCookie() string {
	return c.cookie
}

// Login posts credentials to /api/mobile-login and captures the session
// cookie from the Set-Cookie header. The cookie is installed on the client
// and returned for persistence.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body, err := json.Marshal(contracts.LoginRequest{Username: username, Password: password})
	if err != nil {
		return nil, fmt.Errorf("encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+PathMobileLogin, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: invalid credentials", ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	cookie := sessionCookie(resp)
	if cookie == "" {
		return nil, errors.New("login response carried no session cookie")
	}

	var lr contracts.LoginResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&lr); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}

	c.cookie = cookie
	c.logger.Info(ctx, "login_succeeded", "Logged in to dispatch server",
		map[string]any{"driver_id": lr.DriverID})

	return &LoginResult{Cookie: cookie, DriverID: lr.DriverID, Name: lr.Name}, nil
}

// RegisterPushToken registers the device for push targeting; the driver
// becomes AVAILABLE on the server side.
func (c *Client) RegisterPushToken(ctx context.Context, tokenReq contracts.PushTokenRequest) error {
	body, err := json.Marshal(tokenReq)
	if err != nil {
		return fmt.Errorf("encode push token request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, PathPushToken, bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	c.logger.Info(ctx, "push_token_registered", "Push token registered",
		map[string]any{"platform": tokenReq.Platform, "device_id": tokenReq.DeviceID})
	return nil
}

// UnregisterPushToken removes the device's push registration; the driver
// becomes UNAVAILABLE.
func (c *Client) UnregisterPushToken(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodDelete, PathPushToken, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	c.logger.Info(ctx, "push_token_unregistered", "Push token unregistered", nil)
	return nil
}

// RequestStatus fetches the server-reported set of still-pending
// ride-request ids.
func (c *Client) RequestStatus(ctx context.Context) ([]string, error) {
	resp, err := c.do(ctx, http.MethodGet, PathRequestStatus, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var rs contracts.RequestStatusResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&rs); err != nil {
		return nil, fmt.Errorf("decode request-status response: %w", err)
	}
	return rs.Pending, nil
}

// ----- internals -----

// do issues an authenticated request with the stored cookie replayed.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	if strings.TrimSpace(c.cookie) == "" {
		return nil, fmt.Errorf("%w: no session cookie", ErrUnauthorized)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cookie", c.cookie)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	return resp, nil
}

// checkStatus maps non-2xx responses to errors without consuming 2xx bodies.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: session rejected", ErrUnauthorized)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	return nil
}

// statusError builds an error from a non-2xx response, preferring the
// server's JSON error message when it sent one.
func statusError(resp *http.Response) error {
	var eb contracts.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&eb); err == nil && eb.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, eb.Error)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}

// sessionCookie extracts the first Set-Cookie pair as an opaque
// "name=value" string. The client never interprets it.
func sessionCookie(resp *http.Response) string {
	for _, ck := range resp.Cookies() {
		if ck.Name != "" && ck.Value != "" {
			return ck.Name + "=" + ck.Value
		}
	}
	return ""
}
