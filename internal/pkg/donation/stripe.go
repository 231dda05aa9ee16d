package donation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/streamnest/SuperChat/app/models"
)

const (
	StripeEventCheckoutCompleted      = "checkout.session.completed"
	StripeEventPaymentIntentSucceeded = "payment_intent.succeeded"

	// anonymousDonorName mirrors what the checkout flow writes into metadata
	// when the donor leaves the name field empty.
	anonymousDonorName = "匿名"

	defaultCurrency = "JPY"
)

// minorUnitFactor converts Stripe minor units into display units. Stripe
// reports zero-decimal currencies (JPY among them) without a minor unit, but
// the upstream checkout flow creates amounts under the /100 convention, so
// the same factor applies to every currency here.
const minorUnitFactor = 100

// ParseStripeEvent verifies and decodes a Stripe webhook delivery. With a
// configured secret the signature header is required and checked. With no
// secret the payload is decoded unverified; callers must treat that as a
// development-only mode and log it loudly.
func ParseStripeEvent(payload []byte, signatureHeader, webhookSecret string) (stripe.Event, bool, error) {
	secret := strings.TrimSpace(webhookSecret)
	if secret != "" {
		event, err := webhook.ConstructEvent(payload, signatureHeader, secret)
		if err != nil {
			return stripe.Event{}, false, fmt.Errorf("stripe signature verification failed: %w", err)
		}
		return event, true, nil
	}

	var event stripe.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return stripe.Event{}, false, fmt.Errorf("invalid stripe event payload: %w", err)
	}
	return event, false, nil
}

// NormalizeStripeEvent converts the two consumed Stripe event kinds into the
// canonical shape. Other event kinds return ok=false and are ignored.
func NormalizeStripeEvent(event stripe.Event) (NormalizedEvent, bool, error) {
	switch event.Type {
	case StripeEventCheckoutCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return NormalizedEvent{}, false, fmt.Errorf("invalid checkout session object: %w", err)
		}
		ev, err := normalizeCheckoutSession(&session)
		return ev, err == nil, err

	case StripeEventPaymentIntentSucceeded:
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return NormalizedEvent{}, false, fmt.Errorf("invalid payment intent object: %w", err)
		}
		ev, err := normalizePaymentIntent(&intent)
		return ev, err == nil, err
	}
	return NormalizedEvent{}, false, nil
}

func normalizeCheckoutSession(session *stripe.CheckoutSession) (NormalizedEvent, error) {
	if session.ID == "" {
		return NormalizedEvent{}, errors.New("checkout session without id")
	}

	donorName := metadataValue(session.Metadata, "donorName", anonymousDonorName)
	email := ""
	if session.CustomerDetails != nil {
		email = session.CustomerDetails.Email
	}

	return NormalizedEvent{
		SourceType:      models.SourceStripeDonation,
		Provider:        models.DonationProviderStripe,
		EventType:       StripeEventCheckoutCompleted,
		ProviderEventID: session.ID,
		RawDonorName:    donorName,
		RoomCodeHint:    metadataValue(session.Metadata, "streamCode", ""),
		DisplayNameHint: donorName,
		Email:           email,
		Amount:          float64(session.AmountTotal) / minorUnitFactor,
		Currency:        normalizeCurrency(string(session.Currency)),
		Message:         metadataValue(session.Metadata, "message", ""),
		PaymentStatus:   string(session.PaymentStatus),
		IsPublic:        true,
	}, nil
}

func normalizePaymentIntent(intent *stripe.PaymentIntent) (NormalizedEvent, error) {
	if intent.ID == "" {
		return NormalizedEvent{}, errors.New("payment intent without id")
	}

	donorName := metadataValue(intent.Metadata, "donorName", anonymousDonorName)

	// Payment intents carry no customer email.
	return NormalizedEvent{
		SourceType:      models.SourceStripeDonation,
		Provider:        models.DonationProviderStripe,
		EventType:       StripeEventPaymentIntentSucceeded,
		ProviderEventID: intent.ID,
		RawDonorName:    donorName,
		RoomCodeHint:    metadataValue(intent.Metadata, "streamCode", ""),
		DisplayNameHint: donorName,
		Amount:          float64(intent.Amount) / minorUnitFactor,
		Currency:        normalizeCurrency(string(intent.Currency)),
		Message:         metadataValue(intent.Metadata, "message", ""),
		PaymentStatus:   string(intent.Status),
		IsPublic:        true,
	}, nil
}

func metadataValue(metadata map[string]string, key, def string) string {
	if metadata == nil {
		return def
	}
	if v := strings.TrimSpace(metadata[key]); v != "" {
		return v
	}
	return def
}

func normalizeCurrency(currency string) string {
	c := strings.ToUpper(strings.TrimSpace(currency))
	if c == "" {
		return defaultCurrency
	}
	return c
}
