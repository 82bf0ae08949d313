// Package authgate guards portal routes. It answers immediately from a cached
// credential and reconciles with the server in the background.
package authgate

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/wolfman30/dental-quote-platform/internal/apperr"
	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

// Status is the gate's verdict.
type Status string

const (
	StatusAuthorized    Status = "authorized"
	StatusNoUser        Status = "unauthorized_no_user"
	StatusWrongRole     Status = "unauthorized_wrong_role"
	accessDeniedMessage        = "Access denied"
)

// Decision is what the caller should render.
type Decision struct {
	Status    Status `json:"status"`
	User      *User  `json:"user,omitempty"`
	Redirect  string `json:"redirect,omitempty"`
	Message   string `json:"message,omitempty"`
	FromCache bool   `json:"fromCache,omitempty"`
	// Pending is set while the server has not confirmed the decision.
	Pending   bool   `json:"pending,omitempty"`
}

// Allowed reports whether the protected content may be shown.
func (d Decision) Allowed() bool { return d.Status == StatusAuthorized }

// Config configures a Gate.
type Config struct {
	// RequiredRole must equal the user's role exactly when set.
	RequiredRole string
	LoginPath    string
	Timeout      time.Duration
}

// Gate decides access for portal routes.
type Gate struct {
	store     *CredentialStore
	validator Validator
	cfg       Config
	logger    *logging.Logger
}

// New creates a Gate.
func New(store *CredentialStore, validator Validator, cfg Config, logger *logging.Logger) *Gate {
	if store == nil {
		store = NewCredentialStore(DefaultCredentialTTL, time.Hour)
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/portal-login"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Gate{store: store, validator: validator, cfg: cfg, logger: logger.WithComponent("authgate")}
}

// Check is one in-flight access check.
type Check struct {
	// Initial is the optimistic decision made from the cache alone.
	Initial Decision

	done  chan struct{}
	once  sync.Once
	final Decision
}

// Wait blocks for the server-confirmed decision.
func (c *Check) Wait(ctx context.Context) (Decision, error) {
	select {
	case <-c.done:
		return c.final, nil
	case <-ctx.Done():
		return c.Initial, ctx.Err()
	}
}

// Done is closed once the final decision is available.
func (c *Check) Done() <-chan struct{} { return c.done }

func (c *Check) resolve(d Decision) {
	c.once.Do(func() {
		c.final = d
		close(c.done)
	})
}

// Check starts validating token for the credential cached under key. The
// returned Initial decision uses the cache only and is marked Pending; a
// cached credential is trusted until the server says otherwise, and a missing
// or expired one is unauthorized until the server confirms a user. Validation
// is attempted once.
func (g *Gate) Check(ctx context.Context, key, token string) *Check {
	cached, hasCached := g.store.Get(key)

	c := &Check{done: make(chan struct{})}
	if hasCached {
		c.Initial = g.decide(cached, true)
	} else {
		c.Initial = Decision{Status: StatusNoUser}
	}
	c.Initial.Pending = true

	if g.validator == nil {
		c.resolve(g.fallback(cached, hasCached))
		return c
	}

	go func() {
		vctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.Timeout)
		defer cancel()
		c.resolve(g.reconcile(vctx, key, token, cached, hasCached))
	}()
	return c
}

// Decide runs a check and waits for the final decision.
func (g *Gate) Decide(ctx context.Context, key, token string) Decision {
	d, err := g.Check(ctx, key, token).Wait(ctx)
	if err != nil {
		g.logger.Warn("auth check abandoned", "error", err)
	}
	return d
}

func (g *Gate) reconcile(ctx context.Context, key, token string, cached User, hasCached bool) Decision {
	user, err := g.validator.Validate(ctx, token)
	if err == nil {
		g.store.Put(key, user)
		return g.decide(user, false)
	}

	ae := apperr.From(err)
	if ae.Status == http.StatusUnauthorized {
		g.store.Clear(key)
		g.logger.Info("server rejected credential", "status", ae.Status)
		return g.noUser()
	}

	g.logger.Warn("auth validation failed, using cached credential",
		"category", string(ae.Category),
		"status", ae.Status,
		"has_cached", hasCached,
		"error", err,
	)
	return g.fallback(cached, hasCached)
}

func (g *Gate) fallback(cached User, hasCached bool) Decision {
	if hasCached {
		return g.decide(cached, true)
	}
	return g.noUser()
}

func (g *Gate) decide(u User, fromCache bool) Decision {
	user := u
	if g.cfg.RequiredRole != "" && u.Role != g.cfg.RequiredRole {
		return Decision{
			Status:    StatusWrongRole,
			User:      &user,
			Redirect:  g.cfg.LoginPath,
			Message:   accessDeniedMessage,
			FromCache: fromCache,
		}
	}
	return Decision{Status: StatusAuthorized, User: &user, FromCache: fromCache}
}

func (g *Gate) noUser() Decision {
	return Decision{Status: StatusNoUser, Redirect: g.cfg.LoginPath}
}
