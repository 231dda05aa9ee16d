package payments

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"

	"github.com/streamnest/SuperChat/internal/pkg/env"
)

// MinDonationAmount is the smallest accepted tip in minor units (100 JPY).
const MinDonationAmount = 100

const donationCurrency = "jpy"

// ErrAmountTooSmall rejects donations under the provider minimum.
var ErrAmountTooSmall = fmt.Errorf("amount must be at least %d", MinDonationAmount)

// StripeClient wraps the Stripe API for donation checkout flows. All
// configuration is injected at construction; there is no lazily-initialized
// global client.
type StripeClient struct {
	api     *client.API
	baseURL string
}

// DonationParams carries what the donor entered. StreamCode, DonorName and
// Message travel as Stripe metadata so the webhook can attribute the payment
// later without any free-text parsing.
type DonationParams struct {
	Amount     int64
	DonorName  string
	Message    string
	StreamCode string
}

// CheckoutSession is the subset of a created session the frontend needs.
type CheckoutSession struct {
	SessionID string
	URL       string
}

// NewStripeClient creates a client for the given secret key. baseURL is the
// public origin used for redirect URLs.
func NewStripeClient(secretKey, baseURL string) (*StripeClient, error) {
	key := strings.TrimSpace(secretKey)
	if key == "" {
		return nil, errors.New("stripe secret key is required")
	}
	api := &client.API{}
	api.Init(key, nil)
	return &StripeClient{api: api, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// NewStripeClientFromEnv creates a client from STRIPE_SECRET_KEY and APP_URL.
func NewStripeClientFromEnv() (*StripeClient, error) {
	return NewStripeClient(
		env.GetEnv("STRIPE_SECRET_KEY", ""),
		env.GetEnv("APP_URL", "http://localhost:4000"),
	)
}

// CreateCheckoutSession creates a hosted checkout session for a donation,
// carrying the room attribution in session metadata.
func (c *StripeClient) CreateCheckoutSession(p DonationParams) (*CheckoutSession, error) {
	if p.Amount < MinDonationAmount {
		return nil, ErrAmountTooSmall
	}

	donorName := p.DonorName
	if strings.TrimSpace(donorName) == "" {
		donorName = "匿名"
	}
	description := p.Message
	if strings.TrimSpace(description) == "" {
		description = "応援ありがとうございます！"
	}

	successURL := fmt.Sprintf(
		"%s/donate/success?session_id={CHECKOUT_SESSION_ID}&amount=%d&donorName=%s&message=%s&streamCode=%s",
		c.baseURL,
		p.Amount,
		url.QueryEscape(donorName),
		url.QueryEscape(p.Message),
		url.QueryEscape(p.StreamCode),
	)

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:         stripe.String(successURL),
		CancelURL:          stripe.String(c.baseURL + "/donate/cancel"),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(donationCurrency),
					UnitAmount: stripe.Int64(p.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String("投げ銭（デモ）"),
						Description: stripe.String(description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.AddMetadata("streamCode", p.StreamCode)
	params.AddMetadata("donorName", donorName)
	params.AddMetadata("message", p.Message)

	session, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}
	return &CheckoutSession{SessionID: session.ID, URL: session.URL}, nil
}

// CreatePaymentIntent creates a payment intent for the embedded payment form
// and returns its client secret.
func (c *StripeClient) CreatePaymentIntent(p DonationParams) (string, error) {
	if p.Amount < MinDonationAmount {
		return "", ErrAmountTooSmall
	}

	donorName := p.DonorName
	if strings.TrimSpace(donorName) == "" {
		donorName = "匿名"
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(p.Amount),
		Currency: stripe.String(donationCurrency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.AddMetadata("streamCode", p.StreamCode)
	params.AddMetadata("donorName", donorName)
	params.AddMetadata("message", p.Message)

	intent, err := c.api.PaymentIntents.New(params)
	if err != nil {
		return "", fmt.Errorf("creating payment intent: %w", err)
	}
	return intent.ClientSecret, nil
}
