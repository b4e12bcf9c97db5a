// Copyright 2026 The Parley Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/parley-chat/parley/lib/netutil"
	"github.com/parley-chat/parley/lib/ref"
	"github.com/parley-chat/parley/lib/secret"
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// HomeserverURL is the base URL of the Matrix homeserver
	// (e.g., "https://matrix.example.org").
	HomeserverURL string
	// HTTPClient is used for all requests. If nil, http.DefaultClient is used.
	HTTPClient *http.Client
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client is an unauthenticated Matrix client. It owns the homeserver
// URL and the HTTP transport shared by every session derived from it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a new unauthenticated Matrix client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.HomeserverURL == "" {
		return nil, fmt.Errorf("messaging: HomeserverURL is required")
	}

	// The URL is kept as a string and request URLs are built by
	// concatenation: round-tripping through url.URL re-encodes Path
	// and can corrupt already-escaped segments. Parse only to reject
	// malformed input early.
	if _, err := url.Parse(config.HomeserverURL); err != nil {
		return nil, fmt.Errorf("messaging: invalid HomeserverURL %q: %w", config.HomeserverURL, err)
	}

	client := &Client{
		baseURL:    strings.TrimRight(config.HomeserverURL, "/"),
		httpClient: config.HTTPClient,
		logger:     config.Logger,
	}
	if client.httpClient == nil {
		client.httpClient = http.DefaultClient
	}
	if client.logger == nil {
		client.logger = slog.Default()
	}
	return client, nil
}

// CloseIdleConnections drops pooled TCP connections in the underlying
// transport. After a network disruption the pool may hold poisoned
// connections; dropping them forces the next request onto a fresh one.
func (c *Client) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}

// callSpec describes one client-server API request.
type callSpec struct {
	method string
	path   string
	query  url.Values
	body   any
	token  *secret.Buffer
}

// call issues a client-server API request and decodes the JSON
// response into result (pass nil to discard the body). Responses
// outside 2xx decode into a *MatrixError carrying the status code and
// the server's errcode.
func (c *Client) call(ctx context.Context, spec callSpec, result any) error {
	target := c.baseURL + spec.path
	if len(spec.query) > 0 {
		target += "?" + spec.query.Encode()
	}

	var payload io.Reader
	if spec.body != nil {
		encoded, err := json.Marshal(spec.body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		payload = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, spec.method, target, payload)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if spec.body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if spec.token != nil {
		request.Header.Set("Authorization", "Bearer "+spec.token.String())
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%s %s: %w", spec.method, spec.path, err)
	}
	defer response.Body.Close()

	raw, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		// Every Matrix error response carries the same JSON shape. A
		// non-JSON body means something other than the homeserver
		// answered; surface it raw.
		var matrixErr MatrixError
		if jsonErr := json.Unmarshal(raw, &matrixErr); jsonErr != nil {
			return fmt.Errorf("unexpected %d response from %s %s: %s",
				response.StatusCode, spec.method, spec.path, string(raw))
		}
		matrixErr.StatusCode = response.StatusCode
		return &matrixErr
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// ServerVersions returns the Matrix protocol versions and unstable
// features supported by the homeserver. This is an unauthenticated
// endpoint, useful for checking whether the homeserver is reachable
// before prompting for a password.
func (c *Client) ServerVersions(ctx context.Context) (*ServerVersionsResponse, error) {
	var response ServerVersionsResponse
	err := c.call(ctx, callSpec{
		method: http.MethodGet,
		path:   "/_matrix/client/versions",
	}, &response)
	if err != nil {
		return nil, fmt.Errorf("messaging: server versions: %w", err)
	}
	return &response, nil
}

// LoginOptions configures password login.
type LoginOptions struct {
	// DeviceID reuses an existing device from a previous session.
	// Empty lets the server allocate a new one.
	DeviceID string
	// DeviceName is the display name registered for a newly allocated
	// device. Ignored when DeviceID is set.
	DeviceName string
}

// Login authenticates with username and password, returning a
// DirectSession. The password Buffer is read but not closed; the
// caller retains ownership.
func (c *Client) Login(ctx context.Context, username string, password *secret.Buffer, options LoginOptions) (*DirectSession, error) {
	if username == "" {
		return nil, fmt.Errorf("messaging: username is required for login")
	}
	if password == nil {
		return nil, fmt.Errorf("messaging: password is required for login")
	}

	var auth AuthResponse
	err := c.call(ctx, callSpec{
		method: http.MethodPost,
		path:   "/_matrix/client/v3/login",
		// The password crosses to the heap at the JSON boundary. The
		// copy lives only for the duration of the HTTP call.
		body: LoginRequest{
			Type:                     "m.login.password",
			User:                     username,
			Password:                 password.String(),
			DeviceID:                 options.DeviceID,
			InitialDeviceDisplayName: options.DeviceName,
		},
	}, &auth)
	if err != nil {
		return nil, fmt.Errorf("messaging: login: %w", err)
	}

	c.logger.Info("logged in to matrix",
		"user_id", auth.UserID,
		"device_id", auth.DeviceID,
	)
	return c.sessionFromAuth(&auth)
}

// SessionFromToken creates a DirectSession from an existing access
// token string. The token is copied into mmap-backed memory (locked
// against swap, excluded from core dumps); the heap original is left
// for the garbage collector.
//
// The token is not validated; the first API call fails if it is stale.
// The caller must Close the returned session.
func (c *Client) SessionFromToken(userID ref.UserID, deviceID, accessToken string) (*DirectSession, error) {
	token, err := secret.NewFromBytes([]byte(accessToken))
	if err != nil {
		return nil, fmt.Errorf("messaging: protecting access token: %w", err)
	}
	return &DirectSession{
		client:      c,
		accessToken: token,
		userID:      userID,
		deviceID:    deviceID,
	}, nil
}

func (c *Client) sessionFromAuth(auth *AuthResponse) (*DirectSession, error) {
	token, err := secret.NewFromBytes([]byte(auth.AccessToken))
	if err != nil {
		return nil, fmt.Errorf("messaging: protecting access token: %w", err)
	}
	return &DirectSession{
		client:      c,
		accessToken: token,
		userID:      auth.UserID,
		deviceID:    auth.DeviceID,
	}, nil
}
