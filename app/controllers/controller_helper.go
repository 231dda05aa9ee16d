package controllers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/streamnest/SuperChat/internal/pkg/donation"
	"github.com/streamnest/SuperChat/internal/pkg/livefeed"
)

var (
	donationService *donation.Service
	feedHub         *livefeed.Hub

	validate = validator.New()
)

// InitializeDonationControllers wires the shared donation service and live
// feed hub into the controller package. Must run before routes are served.
func InitializeDonationControllers(svc *donation.Service, hub *livefeed.Hub) {
	donationService = svc
	feedHub = hub
}

func badRequest(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": message})
}

func notFound(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": message})
}

func internalError(c *fiber.Ctx, code string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": code})
}
