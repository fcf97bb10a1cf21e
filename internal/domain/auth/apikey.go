// Package auth resolves API keys to their opaque owner identity.
package auth

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrKeyNotFound is returned when no active API key matches a hash.
var ErrKeyNotFound = errors.New("api key not found")

// ScopeFulfillment allows advancing order status (ship, deliver).
const ScopeFulfillment = "fulfillment"

// APIKeyInfo is a validated API key and the identity it authenticates.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	OwnerID string
	Scopes  []string
}

// HasScope reports whether the key grants the named scope.
func (k *APIKeyInfo) HasScope(scope string) bool {
	for _, s := range k.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// Repository provides lookup of API keys by their HMAC-SHA256 hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
}
