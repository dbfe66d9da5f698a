// Package client is a Go client for the authcore HTTP API. The server keeps the
// session; the client only carries its cookie, so one AuthClient is one session.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"

	authcore "github.com/gr-backend/authcore"
)

// AuthClient talks to an authcore server, holding its session cookie in a jar.
type AuthClient struct {
	serverURL  string
	apiPrefix  string
	httpClient *http.Client
}

// ClientOption configures an AuthClient
type ClientOption func(*AuthClient)

// WithAPIPrefix sets the path the API is mounted under. Defaults to "/api".
func WithAPIPrefix(prefix string) ClientOption {
	return func(c *AuthClient) {
		c.apiPrefix = "/" + strings.Trim(prefix, "/")
	}
}

// WithHTTPClient sets the base HTTP client (for timeouts, TLS config, etc.).
// A cookie jar is added if the client has none.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *AuthClient) {
		if client == nil {
			return
		}
		copied := *client
		if copied.Jar == nil {
			copied.Jar = c.httpClient.Jar
		}
		c.httpClient = &copied
	}
}

// WithTransport sets a custom base transport (for connection pooling, proxies, etc.)
func WithTransport(transport http.RoundTripper) ClientOption {
	return func(c *AuthClient) {
		c.httpClient.Transport = transport
	}
}

// NewAuthClient creates a client for the server at serverURL
func NewAuthClient(serverURL string, opts ...ClientOption) *AuthClient {
	u, err := url.Parse(serverURL)
	if err == nil && u.Scheme != "" && u.Host != "" {
		serverURL = fmt.Sprintf("%s://%s", u.Scheme, u.Host)
	}

	jar, _ := cookiejar.New(nil)
	c := &AuthClient{
		serverURL:  serverURL,
		apiPrefix:  "/api",
		httpClient: &http.Client{Jar: jar},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// HTTPClient returns the underlying HTTP client. Requests made with it carry
// the session cookie.
func (c *AuthClient) HTTPClient() *http.Client {
	return c.httpClient
}

// ServerURL returns the server URL this client is configured for
func (c *AuthClient) ServerURL() string {
	return c.serverURL
}

type userResponse struct {
	Success bool                      `json:"success"`
	User    *authcore.IdentitySummary `json:"user"`
}

// Login authenticates with email and password and keeps the session cookie.
func (c *AuthClient) Login(ctx context.Context, email, password string) (*authcore.IdentitySummary, error) {
	var resp userResponse
	if err := c.postCredentials(ctx, "/login", email, password, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Register creates a local account; the server logs it in on success.
func (c *AuthClient) Register(ctx context.Context, email, password string) (*authcore.IdentitySummary, error) {
	var resp userResponse
	if err := c.postCredentials(ctx, "/register", email, password, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// WhoAmI returns the session's identity, or nil when the session is anonymous.
func (c *AuthClient) WhoAmI(ctx context.Context) (*authcore.IdentitySummary, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/whoami", nil, &raw); err != nil {
		return nil, err
	}
	var marker struct {
		Authenticated *bool `json:"authenticated"`
	}
	if err := json.Unmarshal(raw, &marker); err != nil {
		return nil, fmt.Errorf("invalid response from server: %w", err)
	}
	if marker.Authenticated != nil && !*marker.Authenticated {
		return nil, nil
	}
	var user authcore.IdentitySummary
	if err := json.Unmarshal(raw, &user); err != nil {
		return nil, fmt.Errorf("invalid response from server: %w", err)
	}
	return &user, nil
}

// IsLoggedIn reports whether the server still recognises this client's session
func (c *AuthClient) IsLoggedIn(ctx context.Context) bool {
	user, err := c.WhoAmI(ctx)
	return err == nil && user != nil
}

// Logout ends the session and returns the server's acknowledgment
func (c *AuthClient) Logout(ctx context.Context) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/logout", nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

func (c *AuthClient) postCredentials(ctx context.Context, path, email, password string, out any) error {
	body, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *AuthClient) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.serverURL+c.apiPrefix+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return newAPIError(resp.StatusCode, data)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid response from server: %w", err)
	}
	return nil
}

// APIError is a failure response from the server.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"error"`
	Field      string `json:"field"`
}

func newAPIError(status int, body []byte) *APIError {
	e := &APIError{StatusCode: status}
	if json.Unmarshal(body, e) != nil || e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
	}
	return e
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("authentication failed: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("authentication failed: HTTP %d: %s", e.StatusCode, e.Message)
}

// Is lets callers match server failures against the authcore sentinels.
func (e *APIError) Is(target error) bool {
	switch e.Code {
	case authcore.ErrCodeInvalidCredentials:
		return errors.Is(authcore.ErrInvalidCredentials, target)
	case authcore.ErrCodeEmailExists:
		return errors.Is(authcore.ErrEmailAlreadyExists, target)
	case authcore.ErrCodeNotAuthenticated:
		return errors.Is(authcore.ErrNotAuthenticated, target)
	}
	return false
}
