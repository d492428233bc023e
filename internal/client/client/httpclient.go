package client

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
	"sync"
	"time"

	"github.com/dmitrijs2005/gophidentity/internal/common"
)

// HTTPClient implements Client over the JSON HTTP API.
type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", baseURL)
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}, nil
}

func (c *HTTPClient) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *HTTPClient) getToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// do sends body as JSON and decodes a 2xx response into out when out is
// not nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, auth bool, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if auth {
		token := c.getToken()
		if token == "" {
			return ErrNotLoggedIn
		}
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = "HTTP_ERROR"
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", false, nil, nil)
}

// Register creates an account and keeps the returned token.
func (c *HTTPClient) Register(ctx context.Context, userName string, password []byte, fullName string) error {
	req := map[string]string{"userName": userName, "password": string(password), "fullName": fullName}

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/register", false, req, &resp); err != nil {
		return err
	}
	c.setToken(resp.Token)
	return nil
}

func (c *HTTPClient) Login(ctx context.Context, userName string, password []byte) (*LoginResult, error) {
	req := map[string]string{"userName": userName, "password": string(password)}

	var resp LoginResult
	if err := c.do(ctx, http.MethodPost, "/login", false, req, &resp); err != nil {
		return nil, err
	}
	c.setToken(resp.Token)
	return &resp, nil
}

func (c *HTTPClient) Logout() {
	c.setToken("")
}

func (c *HTTPClient) Session() (*Session, error) {
	token := c.getToken()
	if token == "" {
		return nil, ErrNotLoggedIn
	}
	return parseSession(token)
}

func (c *HTTPClient) Profile(ctx context.Context, id string) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/user/"+url.PathEscape(id), true, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile renames the identity. The server answers with a fresh token
// carrying the new name, which replaces the current one.
func (c *HTTPClient) UpdateProfile(ctx context.Context, id, userName, fullName string) error {
	req := map[string]string{"userName": userName, "fullName": fullName}

	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPut, "/user/"+url.PathEscape(id), true, req, &resp); err != nil {
		return err
	}
	if resp.Token != "" {
		c.setToken(resp.Token)
	}
	return nil
}

func (c *HTTPClient) ChangePassword(ctx context.Context, id string, current, next []byte) error {
	req := map[string]string{"currentPassword": string(current), "newPassword": string(next)}
	return c.do(ctx, http.MethodPut, "/user/"+url.PathEscape(id)+"/password", true, req, nil)
}

func (c *HTTPClient) DeleteUser(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/user", true, map[string]string{"id": id}, nil)
}

func (c *HTTPClient) ListRoles(ctx context.Context) ([]Role, error) {
	var roles []Role
	if err := c.do(ctx, http.MethodGet, "/role", true, nil, &roles); err != nil {
		return nil, err
	}
	return roles, nil
}

func (c *HTTPClient) CreateRole(ctx context.Context, name string) (string, error) {
	var resp struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/role", true, map[string]string{"name": name}, &resp); err != nil {
		return "", err
	}
	return resp.ID, nil
}

// SetUserRole grants role to the identity named email, or revokes it when
// remove is set.
func (c *HTTPClient) SetUserRole(ctx context.Context, email, role string, remove bool) error {
	req := struct {
		Email  string `json:"email"`
		Role   string `json:"role"`
		Delete bool   `json:"delete"`
	}{email, role, remove}
	return c.do(ctx, http.MethodPut, "/role", true, req, nil)
}
