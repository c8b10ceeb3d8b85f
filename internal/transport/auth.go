package transport

import (
	"context"
	"sync"
	"time"
)

// TokenSource resolves a bearer token for AuthLogin mode. A real
// implementation persists/refreshes against a provider-scoped login store;
// the transport only consumes this narrow interface and never implements
// the credential store itself.
type TokenSource interface {
	// Token returns the current bearer token and its expiry.
	Token(ctx context.Context) (token string, expiresAt time.Time, err error)
	// Refresh forces a refresh and persists the result.
	Refresh(ctx context.Context) (token string, expiresAt time.Time, err error)
}

// Auth resolves the bearer token to attach to a request.
type Auth struct {
	Mode    AuthMode
	APIKey  string // used when Mode == AuthAPIKey
	Source  TokenSource
	mu      sync.Mutex
	cached  string
	expires time.Time
}

// nearExpiryWindow is the refresh-before-expiry margin: a token within this
// window of expiring is refreshed proactively rather than used as-is.
const nearExpiryWindow = 60 * time.Second

func (a *Auth) resolve(ctx context.Context) (string, error) {
	if a.Mode == AuthAPIKey {
		return a.APIKey, nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cached != "" && time.Until(a.expires) > nearExpiryWindow {
		return a.cached, nil
	}

	token, expiresAt, err := a.Source.Token(ctx)
	if err != nil {
		return "", &APIError{Kind: ErrLoginRequired, Message: err.Error(), Hint: "/login"}
	}
	if time.Until(expiresAt) <= nearExpiryWindow {
		token, expiresAt, err = a.Source.Refresh(ctx)
		if err != nil {
			return "", &APIError{Kind: ErrLoginRequired, Message: "token refresh failed: " + err.Error(), Hint: "/login"}
		}
	}
	a.cached, a.expires = token, expiresAt
	return token, nil
}

// refreshOnce is called on a 401 response; it forces exactly one refresh
// attempt and does not loop.
func (a *Auth) refreshOnce(ctx context.Context) (string, error) {
	if a.Mode == AuthAPIKey {
		return "", &APIError{Kind: ErrLoginRequired, Message: "api-key auth cannot refresh"}
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	token, expiresAt, err := a.Source.Refresh(ctx)
	if err != nil {
		return "", &APIError{Kind: ErrLoginRequired, Message: "token refresh failed: " + err.Error(), Hint: "/login <profile>"}
	}
	a.cached, a.expires = token, expiresAt
	return token, nil
}
