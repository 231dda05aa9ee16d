package controllers

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/streamnest/SuperChat/app/repository"
	"github.com/streamnest/SuperChat/internal/pkg/donation"
)

type createClaimRequest struct {
	RoomCode    string `json:"room_code" validate:"required,uppercase,alphanum,max=16"`
	DisplayName string `json:"display_name" validate:"required,min=1,max=150"`
	UserID      *uint  `json:"user_id"`
}

// HandleCreateClaim issues a claim code for a donor. The donor pastes the
// returned code into the payment provider's name field; an inbound payment
// carrying it gets attributed back to this room and display name.
func HandleCreateClaim(c *fiber.Ctx) error {
	var req createClaimRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return badRequest(c, "room_code must be uppercase alphanumeric and display_name must be set")
	}

	// Claims only make sense against a known room.
	if _, err := repository.GetGlobalFactory().GetStreamRepository().GetByRoomCode(req.RoomCode); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Unknown room code")
		}
		log.Printf("room lookup failed for %s: %v", req.RoomCode, err)
		return internalError(c, "room_lookup_failed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	claim, err := donationService.CreateClaim(ctx, req.RoomCode, req.DisplayName, req.UserID)
	if err != nil {
		if errors.Is(err, donation.ErrUnknownUser) {
			return notFound(c, "Unknown user id")
		}
		log.Printf("claim creation failed for room %s: %v", req.RoomCode, err)
		return internalError(c, "claim_creation_failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"claim_code":   claim.ClaimCode,
		"room_code":    claim.RoomCode,
		"display_name": claim.DisplayName,
		"expires_at":   claim.ExpiresAt.UTC().Format(time.RFC3339),
	})
}
