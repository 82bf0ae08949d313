package authgate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/dental-quote-platform/internal/apperr"
)

// Validator asks the server who the bearer of token is.
type Validator interface {
	Validate(ctx context.Context, token string) (User, error)
}

// ValidatorFunc adapts a function into a Validator.
type ValidatorFunc func(ctx context.Context, token string) (User, error)

// Validate calls f.
func (f ValidatorFunc) Validate(ctx context.Context, token string) (User, error) {
	return f(ctx, token)
}

// HTTPValidator calls GET {BaseURL}/api/auth/user.
type HTTPValidator struct {
	baseURL string
	client  *http.Client
}

// NewHTTPValidator creates a validator. A nil client uses a 10s-timeout client.
func NewHTTPValidator(baseURL string, client *http.Client) *HTTPValidator {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPValidator{baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

// Validate returns the server's view of the user. Non-2xx responses come back
// as *apperr.Error carrying the status; transport failures are network errors.
func (v *HTTPValidator) Validate(ctx context.Context, token string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.baseURL+"/api/auth/user", nil)
	if err != nil {
		return User{}, fmt.Errorf("authgate: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	req.Header.Set("Pragma", "no-cache")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return User{}, apperr.Wrap(err, apperr.CategoryNetwork, "auth validation request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return User{}, apperr.FromStatus(resp.StatusCode, fmt.Sprintf("auth validation returned %d", resp.StatusCode))
	}

	var u User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return User{}, apperr.Wrap(err, apperr.CategoryServer, "auth validation returned malformed body")
	}
	return u, nil
}
