package controllers

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/streamnest/SuperChat/app/models"
	"github.com/streamnest/SuperChat/internal/pkg/donation"
	"github.com/streamnest/SuperChat/internal/pkg/env"
)

const webhookTimeout = 15 * time.Second

// HandleKofiWebhook ingests a Ko-fi donation delivery. Ko-fi posts a
// urlencoded form whose "data" field holds the JSON document. Verification
// happens before any write; a duplicate transaction id appends nothing.
func HandleKofiWebhook(c *fiber.Ctx) error {
	data := c.FormValue("data")
	if data == "" {
		return badRequest(c, "No data received")
	}

	payload, err := donation.ParseKofiData(data)
	if err != nil {
		return badRequest(c, "Invalid Ko-fi payload")
	}

	configuredToken := env.GetEnv("KOFI_VERIFICATION_TOKEN", "")
	if err := donation.VerifyKofiToken(payload, configuredToken); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_verification_token"})
	}

	ev, err := donation.NormalizeKofi(payload)
	if err != nil {
		return badRequest(c, "Invalid Ko-fi payload")
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	created, stored, err := donationService.RecordWebhookEvent(ctx, donation.WebhookEventInput{
		Provider:        models.DonationProviderKofi,
		ProviderEventID: ev.ProviderEventID,
		EventType:       payload.Type,
		PayloadJSON:     data,
		SignatureValid:  configuredToken != "",
	})
	if err != nil {
		return internalError(c, "webhook_persist_failed")
	}
	// A redelivery of a settled event is a true duplicate. An unsettled one
	// means the previous attempt died between event record and ledger
	// append, and the provider's retry is our chance to land the donation.
	if !created && stored.Settled() {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	}

	var record *models.Donation
	var ingestErr error
	if created {
		record, ingestErr = donationService.IngestDonation(ctx, ev)
	} else {
		record, ingestErr = donationService.IngestDonationOnce(ctx, ev)
	}
	_ = donationService.MarkWebhookProcessed(ctx, stored.ID, ingestErr)
	if ingestErr != nil {
		// The payment already happened; a failed append is the one failure
		// that must reach an operator.
		log.Printf("kofi donation persist failed for event %s: %v", ev.ProviderEventID, ingestErr)
		return internalError(c, "donation_persist_failed")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"success":    true,
		"matched":    record.Matched,
		"streamCode": record.RoomCode,
		"nickname":   record.Nickname,
	})
}

// HandleKofiWebhookStatus confirms the endpoint is reachable.
func HandleKofiWebhookStatus(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":   "Ko-fi webhook endpoint is active",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleStripeWebhook ingests checkout.session.completed and
// payment_intent.succeeded deliveries. Signature verification is skipped
// only when no webhook secret is configured, which is a development
// convenience and logged as such.
func HandleStripeWebhook(c *fiber.Ctx) error {
	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get("Stripe-Signature"))
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	if secret == "" {
		log.Print("warning: STRIPE_WEBHOOK_SECRET is not set, accepting unverified webhook (development only)")
	} else if signature == "" {
		return badRequest(c, "No signature found")
	}

	event, verified, err := donation.ParseStripeEvent(rawBody, signature, secret)
	if err != nil {
		return badRequest(c, "Webhook verification failed")
	}

	ev, consumed, err := donation.NormalizeStripeEvent(event)
	if err != nil {
		return badRequest(c, "Invalid event object")
	}
	if !consumed {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "ignored": true})
	}

	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	created, stored, err := donationService.RecordWebhookEvent(ctx, donation.WebhookEventInput{
		Provider:        models.DonationProviderStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(rawBody),
		SignatureValid:  verified,
	})
	if err != nil {
		return internalError(c, "webhook_persist_failed")
	}
	if !created && stored.Settled() {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true, "duplicate": true})
	}

	var ingestErr error
	if created {
		_, ingestErr = donationService.IngestDonation(ctx, ev)
	} else {
		// Retry of an unsettled delivery, see the Ko-fi handler.
		_, ingestErr = donationService.IngestDonationOnce(ctx, ev)
	}
	_ = donationService.MarkWebhookProcessed(ctx, stored.ID, ingestErr)
	if ingestErr != nil {
		log.Printf("stripe donation persist failed for event %s: %v", event.ID, ingestErr)
		return internalError(c, "donation_persist_failed")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"received": true})
}

// HandleStripeWebhookStatus confirms the endpoint is reachable.
func HandleStripeWebhookStatus(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message":   "Stripe webhook endpoint is active",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
