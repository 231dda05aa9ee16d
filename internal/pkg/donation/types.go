package donation

// NormalizedEvent is the provider-agnostic shape every inbound payment event
// is reduced to before reconciliation. Empty strings mean "not present";
// nullability only appears on the persisted model.
type NormalizedEvent struct {
	SourceType      string // models.SourceKofiDonation or models.SourceStripeDonation
	Provider        string
	EventType       string
	ProviderEventID string
	RawDonorName    string // unparsed provider-supplied name, kept for audit
	RoomCodeHint    string // parsed from the name (Ko-fi) or metadata (Stripe)
	DisplayNameHint string
	Email           string
	Amount          float64 // major currency units
	Currency        string
	Message         string
	PaymentStatus   string
	IsPublic        bool
	URL             string
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}
