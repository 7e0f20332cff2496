package supabase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/Rogue-Bear-Innovations/personal-hub/internal/config"
)

var Module = fx.Provide(
	NewFactory,
)

type (
	// Factory holds the process wide service settings. It builds one Client
	// per inbound request and never shares sessions between them.
	Factory struct {
		http       *resty.Client
		anonKey    string
		cookieName string
		secure     bool
		logger     *zap.SugaredLogger
	}

	// Client is scoped to a single request: it reads the caller's session
	// cookies and writes refreshed or cleared cookies to its header sink.
	Client struct {
		http    *resty.Client
		anonKey string
		cookies *cookieStore
		logger  *zap.SugaredLogger
		now     func() time.Time

		session *Session
		loaded  bool
	}

	accessClaims struct {
		Email     string `json:"email"`
		SessionID string `json:"session_id"`
		jwt.RegisteredClaims
	}
)

func NewFactory(cfg *config.Config, logger *zap.SugaredLogger) *Factory {
	cl := resty.New().
		SetBaseURL(strings.TrimRight(cfg.SupabaseURL, "/")).
		SetHeader("apikey", cfg.SupabaseAnonKey).
		SetHeader("Accept", "application/json")

	return &Factory{
		http:       cl,
		anonKey:    cfg.SupabaseAnonKey,
		cookieName: StorageKey(cfg.SupabaseURL),
		secure:     cfg.CookieSecure,
		logger:     logger,
	}
}

// NewServerClient returns the scoped client for r and the headers the
// response must carry.
func (f *Factory) NewServerClient(r *http.Request) (*Client, http.Header) {
	headers := http.Header{}
	return &Client{
		http:    f.http,
		anonKey: f.anonKey,
		cookies: newCookieStore(f.cookieName, f.secure, r, headers),
		logger:  f.logger,
		now:     time.Now,
	}, headers
}

// NewAnonClient returns a client without a session, for public reads.
func (f *Factory) NewAnonClient() *Client {
	return &Client{
		http:    f.http,
		anonKey: f.anonKey,
		cookies: newCookieStore(f.cookieName, f.secure, nil, http.Header{}),
		logger:  f.logger,
		now:     time.Now,
		loaded:  true,
	}
}

// GetSession returns the cookie session, refreshing it when the access token
// is about to expire. It returns nil without error when there is no usable
// session.
func (c *Client) GetSession(ctx context.Context) (*Session, error) {
	if c.loaded {
		return c.session, nil
	}
	c.loaded = true

	session, err := c.cookies.load()
	if err != nil {
		c.logger.Warnw("drop malformed session cookie", "error", err)
		c.cookies.clear()
		return nil, nil
	}
	if session == nil {
		return nil, nil
	}

	if c.expired(session) {
		refreshed, err := c.refresh(ctx, session.RefreshToken)
		if err != nil {
			if statusOf(err) >= http.StatusBadRequest && statusOf(err) < http.StatusInternalServerError {
				c.cookies.clear()
				return nil, nil
			}
			return nil, errors.Wrap(err, "refresh session")
		}
		session = refreshed
	}

	c.session = session
	return session, nil
}

// GetUser validates the session with the auth server.
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	session, err := c.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}

	user := User{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(session.AccessToken).
		SetResult(&user).
		SetError(&APIError{}).
		Get("/auth/v1/user")
	if err := responseError(resp, err); err != nil {
		if s := statusOf(err); s == http.StatusUnauthorized || s == http.StatusForbidden {
			c.forget()
			return nil, nil
		}
		return nil, errors.Wrap(err, "get user")
	}
	return &user, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) error {
	session := Session{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "password").
		SetBody(map[string]string{"email": email, "password": password}).
		SetResult(&session).
		SetError(&APIError{}).
		Post("/auth/v1/token")
	if err := responseError(resp, err); err != nil {
		return err
	}
	return c.store(&session)
}

// SignOut revokes the session and clears the cookies even when the server call
// fails.
func (c *Client) SignOut(ctx context.Context) error {
	session, err := c.GetSession(ctx)
	defer c.forget()
	if err != nil {
		return err
	}
	if session == nil {
		return nil
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(session.AccessToken).
		SetQueryParam("scope", "global").
		SetError(&APIError{}).
		Post("/auth/v1/logout")
	if err := responseError(resp, err); err != nil {
		if s := statusOf(err); s == http.StatusUnauthorized || s == http.StatusNotFound {
			return nil
		}
		return errors.Wrap(err, "sign out")
	}
	return nil
}

func (c *Client) refresh(ctx context.Context, refreshToken string) (*Session, error) {
	if refreshToken == "" {
		return nil, &APIError{Status: http.StatusUnauthorized, ErrorCode: "refresh_token_not_found"}
	}
	session := Session{}
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("grant_type", "refresh_token").
		SetBody(map[string]string{"refresh_token": refreshToken}).
		SetResult(&session).
		SetError(&APIError{}).
		Post("/auth/v1/token")
	if err := responseError(resp, err); err != nil {
		return nil, err
	}
	if err := c.store(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) store(session *Session) error {
	if session.ExpiresAt == 0 && session.ExpiresIn > 0 {
		session.ExpiresAt = c.now().Unix() + session.ExpiresIn
	}
	if err := c.cookies.save(session); err != nil {
		return err
	}
	c.session = session
	c.loaded = true
	return nil
}

func (c *Client) forget() {
	c.cookies.clear()
	c.session = nil
	c.loaded = true
}

// expired reads the expiry from the token itself, falling back to the cookie
// field. Signatures are checked by the auth server, not here.
func (c *Client) expired(session *Session) bool {
	expiresAt := time.Unix(session.ExpiresAt, 0)
	claims := accessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(session.AccessToken, &claims); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return !expiresAt.After(c.now().Add(expiryMargin))
}

// bearer is the caller's access token, or the anon key without a session.
func (c *Client) bearer(ctx context.Context) (string, error) {
	session, err := c.GetSession(ctx)
	if err != nil {
		return "", err
	}
	if session == nil {
		return c.anonKey, nil
	}
	return session.AccessToken, nil
}

func responseError(resp *resty.Response, err error) error {
	if err != nil {
		return errors.Wrap(err, "request supabase")
	}
	if !resp.IsError() {
		return nil
	}
	apiErr, ok := resp.Error().(*APIError)
	if !ok || apiErr == nil {
		apiErr = &APIError{}
	}
	if apiErr.ErrCode() == "" && apiErr.Msg == "" && apiErr.Message == "" {
		apiErr.Message = resp.String()
	}
	apiErr.Status = resp.StatusCode()
	return apiErr
}
