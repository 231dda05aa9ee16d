package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/streamnest/SuperChat/app/controllers"
	"github.com/streamnest/SuperChat/internal/pkg/cache"
	"github.com/streamnest/SuperChat/internal/pkg/constants"
	"github.com/streamnest/SuperChat/internal/pkg/database"
	"github.com/streamnest/SuperChat/internal/pkg/donation"
	"github.com/streamnest/SuperChat/internal/pkg/livefeed"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// Wire the live feed: local hub, bridged across instances via Redis.
	hub := livefeed.NewHub()
	bridge := livefeed.NewRedisBridge(cache.GetClient(), hub)
	bridge.Start()

	svc := donation.NewServiceFromDB(database.GetDB(), bridge)
	controllers.InitializeDonationControllers(svc, hub)

	// Provider webhooks live outside the versioned API: their paths are
	// registered with the providers and must stay stable.
	app.Post(constants.KofiWebhookRoute, controllers.HandleKofiWebhook)
	app.Get(constants.KofiWebhookRoute, controllers.HandleKofiWebhookStatus)
	app.Post(constants.StripeWebhookRoute, controllers.HandleStripeWebhook)
	app.Get(constants.StripeWebhookRoute, controllers.HandleStripeWebhookStatus)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
