package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/logging"
	"github.com/dmitrijs2005/gophidentity/internal/server/auth"
	"github.com/dmitrijs2005/gophidentity/internal/server/config"
	"github.com/dmitrijs2005/gophidentity/internal/server/models"
	"github.com/dmitrijs2005/gophidentity/internal/server/services"
	"github.com/stretchr/testify/require"
)

const (
	aliceID = "0b5e4b6c-3f69-4b43-9a0e-5a0f8f0e0001"
	bobID   = "0b5e4b6c-3f69-4b43-9a0e-5a0f8f0e0002"
)

type stubUsers struct {
	register       func(username, password, fullName string) (string, error)
	login          func(username, password string) (*services.LoginResult, error)
	getProfile     func(id string) (*models.User, error)
	updateProfile  func(id, name, fullName string) (string, error)
	changePassword func(id, current, next string) error
	deleteIdentity func(id string) error
}

func (s *stubUsers) Register(_ context.Context, username, password, fullName string) (string, error) {
	return s.register(username, password, fullName)
}
func (s *stubUsers) Login(_ context.Context, username, password string) (*services.LoginResult, error) {
	return s.login(username, password)
}
func (s *stubUsers) GetProfile(_ context.Context, id string) (*models.User, error) {
	return s.getProfile(id)
}
func (s *stubUsers) UpdateProfile(_ context.Context, id, name, fullName string) (string, error) {
	return s.updateProfile(id, name, fullName)
}
func (s *stubUsers) ChangePassword(_ context.Context, id, current, next string) error {
	return s.changePassword(id, current, next)
}
func (s *stubUsers) DeleteIdentity(_ context.Context, id string) error {
	return s.deleteIdentity(id)
}

type stubRoles struct {
	created []string
	granted []string
	revoked []string
	list    []models.Role
	err     error
}

func (s *stubRoles) CreateRole(_ context.Context, name string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.created = append(s.created, name)
	return "role-1", nil
}
func (s *stubRoles) GrantRole(_ context.Context, email, role string) error {
	if s.err != nil {
		return s.err
	}
	s.granted = append(s.granted, email+"/"+role)
	return nil
}
func (s *stubRoles) RevokeRole(_ context.Context, email, role string) error {
	if s.err != nil {
		return s.err
	}
	s.revoked = append(s.revoked, email+"/"+role)
	return nil
}
func (s *stubRoles) ListRoles(_ context.Context) ([]models.Role, error) {
	return s.list, s.err
}

type testServer struct {
	router http.Handler
	issuer *auth.Issuer
	users  *stubUsers
	roles  *stubRoles
	cfg    *config.Config
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	cfg := &config.Config{}
	cfg.LoadDefaults()

	issuer, err := auth.NewIssuer(auth.IssuerConfig{SecretKey: []byte("k"), Validity: time.Hour})
	require.NoError(t, err)

	notCalled := func() { t.Fatalf("unexpected service call") }
	users := &stubUsers{
		register:       func(string, string, string) (string, error) { notCalled(); return "", nil },
		login:          func(string, string) (*services.LoginResult, error) { notCalled(); return nil, nil },
		getProfile:     func(string) (*models.User, error) { notCalled(); return nil, nil },
		updateProfile:  func(string, string, string) (string, error) { notCalled(); return "", nil },
		changePassword: func(string, string, string) error { notCalled(); return nil },
		deleteIdentity: func(string) error { notCalled(); return nil },
	}
	roles := &stubRoles{}

	h := NewHandler(users, roles, issuer, cfg, logging.NewDiscardLogger())
	return &testServer{router: NewRouter(h), issuer: issuer, users: users, roles: roles, cfg: cfg}
}

func (s *testServer) token(t *testing.T, id string, roles ...string) string {
	t.Helper()
	tok, err := s.issuer.IssueToken(&models.User{ID: id, UserName: "user-" + id[len(id)-1:]}, roles)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", common.BearerPrefix+token)
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) apiError {
	t.Helper()
	var e apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e
}

func nopLogger() *logging.SlogLogger {
	return logging.NewDiscardLogger()
}
