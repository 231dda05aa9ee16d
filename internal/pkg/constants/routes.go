package constants

// Route constants shared between routers and controllers
const (
	KofiWebhookRoute   = "/webhook/kofi"
	StripeWebhookRoute = "/webhook/stripe"

	APIBasePath = "/api"
	APIV1Path   = "/v1"
)
