// Package auth bridges short-lived identity tokens to backend session tokens.
// The identity issuer (Firebase in the hosted product) and the exchange
// endpoint are external collaborators; this package only consumes their
// request/response contracts.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/openamc/amctrack/internal/logger"
)

// expirySkew is how long before the session token's exp claim a re-exchange
// is forced.
const expirySkew = 30 * time.Second

// IdentityProvider supplies a fresh identity token. Implementations must
// refresh the underlying credential on every call so the exchange never sees
// a stale token.
type IdentityProvider interface {
	IdentityToken(ctx context.Context) (string, error)
}

// StaticIdentity is an IdentityProvider returning a fixed token, for tests
// and local development.
type StaticIdentity string

func (s StaticIdentity) IdentityToken(ctx context.Context) (string, error) {
	return string(s), nil
}

// TokenSource exchanges identity tokens for backend session tokens, caching
// the session token until its exp claim is within expirySkew of now.
type TokenSource struct {
	exchangeURL string
	identity    IdentityProvider
	httpClient  *http.Client
	log         *logger.Logger

	mu     sync.Mutex
	cached string
	expiry time.Time
	now    func() time.Time
}

// NewTokenSource creates a TokenSource against the given exchange endpoint.
func NewTokenSource(exchangeURL string, identity IdentityProvider) *TokenSource {
	return &TokenSource{
		exchangeURL: exchangeURL,
		identity:    identity,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		log:         logger.Default().WithPrefix("auth"),
		now:         time.Now,
	}
}

// Token returns a valid backend session token, re-exchanging when the cached
// one is missing or about to expire.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != "" && s.now().Add(expirySkew).Before(s.expiry) {
		return s.cached, nil
	}
	return s.exchangeLocked(ctx)
}

func (s *TokenSource) exchangeLocked(ctx context.Context) (string, error) {
	log := logger.FromContext(ctx).WithPrefix("auth")

	idToken, err := s.identity.IdentityToken(ctx)
	if err != nil {
		log.Error("failed to obtain identity token: %v", err)
		return "", fmt.Errorf("identity token: %w", err)
	}

	body, _ := json.Marshal(map[string]string{"token": idToken})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.exchangeURL, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		log.Error("token exchange failed: %v", err)
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		log.Error("token exchange rejected: status=%d, body=%s", resp.StatusCode, string(respBody))
		return "", fmt.Errorf("token exchange status %d: %s", resp.StatusCode, string(respBody))
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Error("failed to decode exchange response: %v", err)
		return "", err
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("token exchange returned empty access token")
	}

	s.cached = out.AccessToken
	s.expiry = tokenExpiry(out.AccessToken)
	log.Debug("session token exchanged, expires at %v", s.expiry)
	return s.cached, nil
}

// Invalidate drops the cached session token, forcing the next Token call to
// re-exchange.
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = ""
	s.expiry = time.Time{}
}

// tokenExpiry reads the exp claim without verifying the signature; the token
// is only inspected to schedule re-exchange, never trusted locally. Tokens
// without a readable exp claim get a zero expiry and are re-exchanged every
// call.
func tokenExpiry(token string) time.Time {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
