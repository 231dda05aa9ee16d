package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/streamnest/SuperChat/internal/pkg/payments"
)

type donationRequest struct {
	Amount     int64  `json:"amount"`
	DonorName  string `json:"donorName"`
	Message    string `json:"message"`
	StreamCode string `json:"streamCode"`
}

// HandleCreateCheckoutSession creates a Stripe hosted-checkout session for a
// donation. Room attribution travels as session metadata so the webhook can
// match it later without free-text parsing.
func HandleCreateCheckoutSession(c *fiber.Ctx) error {
	var req donationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	client, err := payments.NewStripeClientFromEnv()
	if err != nil {
		log.Printf("stripe client unavailable: %v", err)
		return internalError(c, "stripe_not_configured")
	}

	session, err := client.CreateCheckoutSession(payments.DonationParams{
		Amount:     req.Amount,
		DonorName:  req.DonorName,
		Message:    req.Message,
		StreamCode: req.StreamCode,
	})
	if err != nil {
		if errors.Is(err, payments.ErrAmountTooSmall) {
			return badRequest(c, "金額は100円以上で指定してください")
		}
		log.Printf("checkout session creation failed: %v", err)
		return internalError(c, "checkout_session_failed")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"sessionId": session.SessionID,
		"url":       session.URL,
	})
}

// HandleCreatePaymentIntent creates a payment intent for the embedded
// payment form and returns its client secret.
func HandleCreatePaymentIntent(c *fiber.Ctx) error {
	var req donationRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}

	client, err := payments.NewStripeClientFromEnv()
	if err != nil {
		log.Printf("stripe client unavailable: %v", err)
		return internalError(c, "stripe_not_configured")
	}

	clientSecret, err := client.CreatePaymentIntent(payments.DonationParams{
		Amount:     req.Amount,
		DonorName:  req.DonorName,
		Message:    req.Message,
		StreamCode: req.StreamCode,
	})
	if err != nil {
		if errors.Is(err, payments.ErrAmountTooSmall) {
			return badRequest(c, "金額は100円以上で指定してください")
		}
		log.Printf("payment intent creation failed: %v", err)
		return internalError(c, "payment_intent_failed")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"clientSecret": clientSecret,
	})
}
