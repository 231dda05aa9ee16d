package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/streamnest/SuperChat/app/controllers"
	"github.com/streamnest/SuperChat/internal/pkg/constants"
	"github.com/streamnest/SuperChat/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIBasePath, limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	// API v1 routes
	v1 := api.Group(constants.APIV1Path)

	// Donor-facing: claim issuance and Stripe checkout flows.
	v1.Post("/claims", controllers.HandleCreateClaim)
	v1.Post("/stripe/checkout", controllers.HandleCreateCheckoutSession)
	v1.Post("/stripe/payment-intent", controllers.HandleCreatePaymentIntent)

	// Public aggregate counters.
	v1.Get("/stats", controllers.HandleStatistics)

	// Viewer-facing: room info and donation feeds.
	v1.Get("/rooms/:code", controllers.HandleGetStream)
	v1.Get("/rooms/:code/donations", controllers.HandleRecentDonations)
	v1.Get("/rooms/:code/feed", controllers.HandleDonationFeed)

	// Operator-facing: room registration requires an API key.
	v1.Post("/rooms", middleware.APIKeyAuthMiddleware(), controllers.HandleCreateStream)
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
