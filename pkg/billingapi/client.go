package billingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/insightball/entitlements/pkg/session"
)

// Config holds the backend API connection settings.
type Config struct {
	BaseURL string        `env:"BILLING_API_BASE_URL,required"`
	Timeout time.Duration `env:"BILLING_API_TIMEOUT" envDefault:"10s"`
}

// Client talks to the backend subscription API with bearer authentication.
type Client struct {
	baseURL        string
	httpClient     *http.Client
	tokens         session.TokenSource
	onUnauthorized func()
	log            *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithUnauthorizedHook registers the callback fired when the backend returns
// 401, before ErrSessionExpired is returned.
func WithUnauthorizedHook(fn func()) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

// WithLogger sets the structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

// New creates a backend API client. Panics on a nil token source to fail
// fast during initialization.
func New(cfg Config, tokens session.TokenSource, opts ...Option) *Client {
	if tokens == nil {
		panic("billingapi: session.TokenSource is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		tokens:     tokens,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// TrialStatus fetches the trial gate state.
func (c *Client) TrialStatus(ctx context.Context) (TrialStatus, error) {
	var out TrialStatus
	err := c.do(ctx, http.MethodGet, "/subscription/trial-status", nil, &out)
	return out, err
}

// SubscriptionStatus fetches the subscription record state.
func (c *Client) SubscriptionStatus(ctx context.Context) (SubscriptionStatus, error) {
	var out SubscriptionStatus
	err := c.do(ctx, http.MethodGet, "/subscription/subscription-status", nil, &out)
	return out, err
}

// HasPaymentMethod reports whether a payment method is on file.
func (c *Client) HasPaymentMethod(ctx context.Context) (PaymentMethodStatus, error) {
	var out PaymentMethodStatus
	err := c.do(ctx, http.MethodGet, "/subscription/has-payment-method", nil, &out)
	return out, err
}

// CreateSetupIntent asks the backend to issue a processor setup intent.
func (c *Client) CreateSetupIntent(ctx context.Context) (SetupIntent, error) {
	var out SetupIntent
	err := c.do(ctx, http.MethodPost, "/subscription/create-setup-intent", struct{}{}, &out)
	return out, err
}

// ConfirmPlan binds a payment method to a plan, starting the trial clock or,
// when converting an active trial, triggering an immediate charge.
func (c *Client) ConfirmPlan(ctx context.Context, req ConfirmPlanRequest) error {
	return c.do(ctx, http.MethodPost, "/subscription/confirm-plan", req, nil)
}

// CancelSubscription schedules or executes cancellation depending on the
// current status: a trial cancels with no charge, a paid subscription keeps
// access until period end.
func (c *Client) CancelSubscription(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/subscription/cancel-subscription", struct{}{}, nil)
}

// CreateCheckoutSession requests a hosted checkout URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, req CheckoutSessionRequest) (RedirectSession, error) {
	var out RedirectSession
	err := c.do(ctx, http.MethodPost, "/subscription/create-checkout-session", req, &out)
	return out, err
}

// CreatePortalSession requests a self-service billing portal URL.
func (c *Client) CreatePortalSession(ctx context.Context, returnURL string) (RedirectSession, error) {
	var out RedirectSession
	err := c.do(ctx, http.MethodPost, "/subscription/create-portal-session", portalSessionRequest{ReturnURL: returnURL}, &out)
	return out, err
}

// RequestClubQuote submits a sales lead for the quoted Club plan. It has no
// billing side effect.
func (c *Client) RequestClubQuote(ctx context.Context, message string) error {
	return c.do(ctx, http.MethodPost, "/subscription/request-club-quote", clubQuoteRequest{Message: message}, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("billingapi: encode %s %s: %w", method, path, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("billingapi: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return errors.Join(ErrSessionExpired, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.WarnContext(ctx, "backend request failed",
			slog.String("method", method), slog.String("path", path), slog.Any("error", err))
		return errors.Join(ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := c.checkStatus(resp, method, path); err != nil {
		return err
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Join(ErrUnavailable, fmt.Errorf("decode %s %s: %w", method, path, err))
		}
	}
	return nil
}

func (c *Client) checkStatus(resp *http.Response, method, path string) error {
	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return ErrSessionExpired
	case resp.StatusCode >= 500:
		// Server-side failures are treated as transient: the read path may
		// fail open on them, mutations surface them without retrying.
		return errors.Join(ErrUnavailable, fmt.Errorf("%s %s: %s", method, path, resp.Status))
	default:
		rej := &RejectionError{Status: resp.StatusCode, Detail: decodeDetail(resp.Body)}
		if resp.StatusCode == http.StatusConflict {
			return errors.Join(ErrStaleState, rej)
		}
		return rej
	}
}

func decodeDetail(r io.Reader) string {
	var er errorResponse
	if err := json.NewDecoder(r).Decode(&er); err != nil {
		return ""
	}
	return er.Detail
}
