package auth

import (
	"context"
	"fmt"
	"sync"
)

// TokenHolder is an IdentityProvider fed by the UI: the client posts its
// current identity token and refreshes it before it goes stale. Every
// IdentityToken call returns the most recent token.
type TokenHolder struct {
	mu    sync.RWMutex
	token string
}

// NewTokenHolder returns a holder seeded with the given token.
func NewTokenHolder(token string) *TokenHolder {
	return &TokenHolder{token: token}
}

// Set replaces the held identity token.
func (h *TokenHolder) Set(token string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.token = token
}

func (h *TokenHolder) IdentityToken(ctx context.Context) (string, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.token == "" {
		return "", fmt.Errorf("no identity token available")
	}
	return h.token, nil
}
