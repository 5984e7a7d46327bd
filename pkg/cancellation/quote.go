package cancellation

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

// QuoteSender is the only backend operation the quote workflow can reach,
// which makes the workflow structurally unable to bill anyone. Satisfied by
// *billingapi.Client.
type QuoteSender interface {
	RequestClubQuote(ctx context.Context, message string) error
}

// QuoteWorkflow sends a contact-sales lead for the club tier. Everything
// after the request happens offline between sales and the club; the only
// client-side state is the local acknowledgment.
type QuoteWorkflow struct {
	mu        sync.Mutex
	requested bool

	api QuoteSender
	log *slog.Logger
}

// NewQuoteWorkflow creates a quote workflow. Panics on a nil sender.
func NewQuoteWorkflow(api QuoteSender, opts ...QuoteOption) *QuoteWorkflow {
	if api == nil {
		panic("cancellation: QuoteSender is required")
	}
	w := &QuoteWorkflow{api: api, log: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// QuoteOption configures a QuoteWorkflow.
type QuoteOption func(*QuoteWorkflow)

// WithQuoteLogger sets the structured logger.
func WithQuoteLogger(log *slog.Logger) QuoteOption {
	return func(w *QuoteWorkflow) {
		if log != nil {
			w.log = log
		}
	}
}

// Request sends the lead. Fire-and-forget from the product's point of view:
// success only records the local acknowledgment, no entitlement changes.
func (w *QuoteWorkflow) Request(ctx context.Context, message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}

	if err := w.api.RequestClubQuote(ctx, message); err != nil {
		return err
	}

	w.mu.Lock()
	w.requested = true
	w.mu.Unlock()
	w.log.InfoContext(ctx, "club quote requested", slog.String("component", "cancellation"))
	return nil
}

// Requested reports whether a lead was sent during this session, so the
// screen can swap the form for a confirmation.
func (w *QuoteWorkflow) Requested() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.requested
}
