package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	secret = []byte("super-secret")
	alice  = &models.User{ID: "8a1c2a7e-8b6c-4f3a-9a55-111111111111", UserName: "alice"}
	issued = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func newTestIssuer(t *testing.T, cfg IssuerConfig) *Issuer {
	t.Helper()
	if cfg.SecretKey == nil {
		cfg.SecretKey = secret
	}
	iss, err := NewIssuer(cfg)
	require.NoError(t, err)
	return iss.WithClock(fixedClock(issued))
}

// payload decodes the raw claim set of a compact token.
func payload(t *testing.T, tok string) map[string]any {
	t.Helper()
	parts := strings.Split(tok, ".")
	require.Len(t, parts, 3)
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	return m
}

func TestNewIssuer_EmptyKey(t *testing.T) {
	_, err := NewIssuer(IssuerConfig{})
	assert.ErrorIs(t, err, common.ErrConfiguration)
}

func TestNewIssuer_ReservedCompatClaim(t *testing.T) {
	for _, name := range []string{"sub", "exp", "role", "Name", " iat "} {
		_, err := NewIssuer(IssuerConfig{SecretKey: secret, CompatClaimName: name, CompatClaimValue: "x"})
		assert.ErrorIs(t, err, common.ErrConfiguration, name)
	}

	_, err := NewIssuer(IssuerConfig{SecretKey: secret, CompatClaimName: "Texto", CompatClaimValue: "x"})
	assert.NoError(t, err)
}

func TestNewIssuer_DefaultValidity(t *testing.T) {
	iss, err := NewIssuer(IssuerConfig{SecretKey: secret})
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, iss.Validity())
}

func TestIssueAndParse_Success(t *testing.T) {
	iss := newTestIssuer(t, IssuerConfig{})

	tok, err := iss.IssueToken(alice, []string{"Seller", "Admin"})
	require.NoError(t, err)

	claims, err := iss.ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, claims.UserID())
	assert.Equal(t, "alice", claims.Name)
	assert.Equal(t, jwt.ClaimStrings{"Admin", "Seller"}, claims.Roles)
	assert.True(t, claims.HasAnyRole("admin"))
	assert.False(t, claims.HasAnyRole("manager"))
}

func TestIssueToken_NilUser(t *testing.T) {
	iss := newTestIssuer(t, IssuerConfig{})
	_, err := iss.IssueToken(nil, nil)
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestIssueToken_ExpiryExactly24h(t *testing.T) {
	iss := newTestIssuer(t, IssuerConfig{})

	tok, err := iss.IssueToken(alice, nil)
	require.NoError(t, err)

	p := payload(t, tok)
	assert.Equal(t, float64(issued.Add(24*time.Hour).Unix()), p["exp"])
	assert.Equal(t, float64(issued.Unix()), p["iat"])

	iss.WithClock(fixedClock(issued.Add(24*time.Hour - time.Second)))
	_, err = iss.ParseToken(tok)
	assert.NoError(t, err, "valid one second before expiry")

	iss.WithClock(fixedClock(issued.Add(24*time.Hour + time.Second)))
	_, err = iss.ParseToken(tok)
	assert.ErrorIs(t, err, common.ErrTokenExpired)
}

func TestIssueToken_RolesDeduplicated(t *testing.T) {
	iss := newTestIssuer(t, IssuerConfig{})

	tok, err := iss.IssueToken(alice, []string{"Seller", "Admin", "Seller", ""})
	require.NoError(t, err)

	p := payload(t, tok)
	assert.Equal(t, []any{"Admin", "Seller"}, p["role"])
}

func TestIssueToken_NoRolesOmitsClaim(t *testing.T) {
	iss := newTestIssuer(t, IssuerConfig{})

	tok, err := iss.IssueToken(alice, nil)
	require.NoError(t, err)

	_, ok := payload(t, tok)["role"]
	assert.False(t, ok)
}

func TestIssueToken_CompatClaim(t *testing.T) {
	with := newTestIssuer(t, IssuerConfig{CompatClaimName: "Texto", CompatClaimValue: "123sdffe"})
	tok, err := with.IssueToken(alice, nil)
	require.NoError(t, err)
	assert.Equal(t, "123sdffe", payload(t, tok)["Texto"])

	without := newTestIssuer(t, IssuerConfig{})
	tok, err = without.IssueToken(alice, nil)
	require.NoError(t, err)
	_, ok := payload(t, tok)["Texto"]
	assert.False(t, ok)
}

func TestParseToken_SingleRoleString(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "u1",
		"role": "Admin",
		"exp":  issued.Add(time.Hour).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)

	claims, err := newTestIssuer(t, IssuerConfig{}).ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, jwt.ClaimStrings{"Admin"}, claims.Roles)
}

func TestParseToken_Rejections(t *testing.T) {
	iss := newTestIssuer(t, IssuerConfig{})

	wrongKey, err := newTestIssuer(t, IssuerConfig{SecretKey: []byte("other")}).IssueToken(alice, nil)
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "u1", "exp": issued.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "u1", "exp": issued.Add(time.Hour).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "u1"}).SignedString(secret)
	require.NoError(t, err)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": issued.Add(time.Hour).Unix(),
	}).SignedString(secret)
	require.NoError(t, err)

	tests := map[string]string{
		"wrong key":  wrongKey,
		"none alg":   noneAlg,
		"hs512":      hs512,
		"no exp":     noExp,
		"no subject": noSub,
		"malformed":  "not.a.jwt",
		"empty":      "",
	}
	for name, tok := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := iss.ParseToken(tok)
			assert.True(t, errors.Is(err, common.ErrInvalidToken), "got %v", err)
		})
	}
}

func TestParseToken_NotYetValid(t *testing.T) {
	iss := newTestIssuer(t, IssuerConfig{})
	tok, err := iss.IssueToken(alice, nil)
	require.NoError(t, err)

	iss.WithClock(fixedClock(issued.Add(-time.Minute)))
	_, err = iss.ParseToken(tok)
	assert.ErrorIs(t, err, common.ErrInvalidToken)
}
