// Package auth turns a bearer token into the caller's UserScope.
//
// Tokens are HS256 JWTs issued by the identity provider; the subject claim
// is the scope. Verified tokens are cached until they expire.
package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"finboard/internal/cache"
	"finboard/internal/core"
)

// LocalScope is the scope every request gets when auth is disabled.
const LocalScope core.UserScope = "local"

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Verifier validates bearer tokens.
type Verifier struct {
	secret   []byte
	audience string
	parser   *jwt.Parser
	cache    *cache.LRUCache[core.UserScope]
}

// NewVerifier builds a verifier for HS256 tokens signed with secret.
// An empty audience disables the aud check. tokenCache may be nil.
func NewVerifier(secret, audience string, tokenCache *cache.LRUCache[core.UserScope]) *Verifier {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30 * time.Second),
	}
	if audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}
	return &Verifier{
		secret:   []byte(secret),
		audience: audience,
		parser:   jwt.NewParser(opts...),
		cache:    tokenCache,
	}
}

// Verify returns the scope carried by a valid token.
func (v *Verifier) Verify(token string) (core.UserScope, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrMissingToken
	}

	key := cacheKey(token)
	if v.cache != nil {
		if scope, ok := v.cache.Get(key); ok {
			return scope, nil
		}
	}

	claims := &jwt.RegisteredClaims{}
	_, err := v.parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		slog.Debug("JWT rejected", "error", err)
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}

	scope := core.UserScope(claims.Subject)
	if v.cache != nil {
		var until time.Time
		if claims.ExpiresAt != nil {
			until = claims.ExpiresAt.Time
		}
		v.cache.SetUntil(key, scope, until)
	}
	return scope, nil
}

// IssueToken signs a token for subject. The server never calls it; it exists
// for local development (finboard-cli token) and tests.
func IssueToken(secret, subject, audience string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if audience != "" {
		claims.Audience = jwt.ClaimStrings{audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// cacheKey avoids holding raw tokens in memory longer than needed.
func cacheKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
