package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	stripe "github.com/stripe/stripe-go/v82"
	stripeclient "github.com/stripe/stripe-go/v82/client"
)

// StripeConfig holds configuration for the Stripe processor client.
type StripeConfig struct {
	SecretKey string `env:"STRIPE_SECRET_KEY,required"`
}

// StripeProcessor implements ProcessorClient on top of the official Stripe
// SDK: it creates a payment method from the card fields and confirms the
// backend-issued setup intent with it. Only the resulting payment-method
// identifier ever leaves this type.
type StripeProcessor struct {
	sc *stripeclient.API
}

// NewStripeProcessor creates a Stripe-backed processor client. Test and live
// mode are distinguished by the key itself, so the only validation is shape.
func NewStripeProcessor(cfg StripeConfig) (*StripeProcessor, error) {
	if cfg.SecretKey == "" {
		return nil, ErrMissingSecretKey
	}
	if !strings.HasPrefix(cfg.SecretKey, "sk_") && !strings.HasPrefix(cfg.SecretKey, "rk_") {
		return nil, fmt.Errorf("%w: expected sk_ or rk_ prefix", ErrInvalidSecretKey)
	}

	sc := &stripeclient.API{}
	sc.Init(cfg.SecretKey, nil)

	return &StripeProcessor{sc: sc}, nil
}

// ConfirmSetup tokenizes the card into a payment method and confirms the
// setup intent identified by the client secret.
func (p *StripeProcessor) ConfirmSetup(ctx context.Context, clientSecret string, card CardDetails) (string, error) {
	intentID, err := setupIntentID(clientSecret)
	if err != nil {
		return "", err
	}

	pm, err := p.sc.PaymentMethods.New(&stripe.PaymentMethodParams{
		Params: stripe.Params{Context: ctx},
		Type:   stripe.String(string(stripe.PaymentMethodTypeCard)),
		Card: &stripe.PaymentMethodCardParams{
			Number:   stripe.String(card.Number),
			ExpMonth: stripe.Int64(card.ExpMonth),
			ExpYear:  stripe.Int64(card.ExpYear),
			CVC:      stripe.String(card.CVC),
		},
	})
	if err != nil {
		return "", mapStripeError(err)
	}

	intent, err := p.sc.SetupIntents.Confirm(intentID, &stripe.SetupIntentConfirmParams{
		Params:        stripe.Params{Context: ctx},
		PaymentMethod: stripe.String(pm.ID),
	})
	if err != nil {
		return "", mapStripeError(err)
	}

	if intent.PaymentMethod != nil && intent.PaymentMethod.ID != "" {
		return intent.PaymentMethod.ID, nil
	}
	return pm.ID, nil
}

// setupIntentID extracts the intent identifier from a client secret of the
// form "seti_xxx_secret_yyy".
func setupIntentID(clientSecret string) (string, error) {
	id, _, found := strings.Cut(clientSecret, "_secret")
	if !found || !strings.HasPrefix(id, "seti_") {
		return "", ErrInvalidSetupToken
	}
	return id, nil
}

// mapStripeError converts processor card errors into *CardError so the
// product can show them inline; everything else stays an opaque wrapped
// error treated like any other mutation failure.
func mapStripeError(err error) error {
	var sErr *stripe.Error
	if errors.As(err, &sErr) && sErr.Type == stripe.ErrorTypeCard {
		return &CardError{
			Code:        string(sErr.Code),
			DeclineCode: string(sErr.DeclineCode),
			Message:     sErr.Msg,
		}
	}
	return fmt.Errorf("checkout: payment processor: %w", err)
}
