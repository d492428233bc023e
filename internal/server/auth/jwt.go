// Package auth issues and verifies the HS256 bearer tokens handed out on
// login, registration and profile updates.
package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophidentity/internal/common"
	"github.com/dmitrijs2005/gophidentity/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

const DefaultTokenValidity = 24 * time.Hour

// Claims is the verified view of a token.
type Claims struct {
	jwt.RegisteredClaims
	Name  string           `json:"name"`
	Roles jwt.ClaimStrings `json:"role,omitempty"`
}

func (c *Claims) UserID() string {
	return c.Subject
}

// HasAnyRole reports whether the token carries one of roles. Names are
// compared in normalized form.
func (c *Claims) HasAnyRole(roles ...string) bool {
	for _, have := range c.Roles {
		for _, want := range roles {
			if common.NormalizeName(have) == common.NormalizeName(want) {
				return true
			}
		}
	}
	return false
}

type IssuerConfig struct {
	SecretKey []byte
	Validity  time.Duration
	// CompatClaimName/Value add a fixed extra claim to every token. An empty
	// name disables it.
	CompatClaimName  string
	CompatClaimValue string
}

// reservedClaims are set by IssueToken itself or carry registered meaning;
// the compat claim may not reuse them.
var reservedClaims = []string{"sub", "name", "role", "iat", "nbf", "exp", "iss", "aud", "jti"}

type Issuer struct {
	cfg IssuerConfig
	now func() time.Time
}

func NewIssuer(cfg IssuerConfig) (*Issuer, error) {
	if len(cfg.SecretKey) == 0 {
		return nil, fmt.Errorf("%w: empty token signing key", common.ErrConfiguration)
	}
	if slices.Contains(reservedClaims, strings.ToLower(strings.TrimSpace(cfg.CompatClaimName))) {
		return nil, fmt.Errorf("%w: compat claim name %q is reserved", common.ErrConfiguration, cfg.CompatClaimName)
	}
	if cfg.Validity <= 0 {
		cfg.Validity = DefaultTokenValidity
	}
	return &Issuer{cfg: cfg, now: time.Now}, nil
}

// WithClock replaces the time source used for issuing and verifying.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

func (i *Issuer) Validity() time.Duration {
	return i.cfg.Validity
}

// IssueToken signs a token for user carrying one role claim per distinct
// role. Roles are emitted in ascending order.
func (i *Issuer) IssueToken(user *models.User, roles []string) (string, error) {
	if user == nil {
		return "", fmt.Errorf("%w: nil identity", common.ErrInvalidInput)
	}

	issuedAt := jwt.NewNumericDate(i.now())
	expiresAt := jwt.NewNumericDate(issuedAt.Add(i.cfg.Validity))

	claims := jwt.MapClaims{
		"sub":  user.ID,
		"name": user.UserName,
		"iat":  issuedAt,
		"nbf":  issuedAt,
		"exp":  expiresAt,
	}

	if r := uniqueSorted(roles); len(r) > 0 {
		claims["role"] = r
	}

	if i.cfg.CompatClaimName != "" {
		claims[i.cfg.CompatClaimName] = i.cfg.CompatClaimValue
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString(i.cfg.SecretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies signature, algorithm and time claims and returns the
// token claims. Expired tokens yield common.ErrTokenExpired, anything else
// common.ErrInvalidToken.
func (i *Issuer) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)

	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.cfg.SecretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}

func uniqueSorted(roles []string) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		if r != "" {
			out = append(out, r)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
