package controllers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamnest/SuperChat/app/models"
	"github.com/streamnest/SuperChat/app/repository"
	"github.com/streamnest/SuperChat/internal/pkg/donation"
	"github.com/streamnest/SuperChat/internal/pkg/livefeed"
)

// In-memory repositories so the webhook handlers run without a database.

type memClaims struct {
	mu     sync.Mutex
	claims []*models.PendingClaim
}

func (r *memClaims) Create(claim *models.PendingClaim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	claim.ID = uint(len(r.claims) + 1)
	stored := *claim
	r.claims = append(r.claims, &stored)
	return nil
}

func (r *memClaims) Consume(claimCode string, now time.Time) (*models.PendingClaim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, claim := range r.claims {
		if claim.ClaimCode == claimCode && claim.ExpiresAt.After(now) {
			r.claims = append(r.claims[:i], r.claims[i+1:]...)
			found := *claim
			return &found, nil
		}
	}
	return nil, repository.ErrClaimNotFound
}

func (r *memClaims) CountByCode(claimCode string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, claim := range r.claims {
		if claim.ClaimCode == claimCode {
			n++
		}
	}
	return n, nil
}

func (r *memClaims) DeleteExpired(before time.Time) (int64, error) {
	return 0, nil
}

type memLedger struct {
	mu        sync.Mutex
	claims    *memClaims
	donations []models.Donation

	// failNextIngests makes that many IngestWithClaim calls fail, simulating
	// a store outage between event record and ledger append.
	failNextIngests int
}

func (r *memLedger) Create(donation *models.Donation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	donation.ID = uint(len(r.donations) + 1)
	donation.CreatedAt = time.Now()
	r.donations = append(r.donations, *donation)
	return nil
}

func (r *memLedger) GetByPublicID(publicID string) (*models.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.donations {
		if d.PublicID == publicID {
			found := d
			return &found, nil
		}
	}
	return nil, fiber.ErrNotFound
}

func (r *memLedger) RecentByRoom(roomCode string, limit int) ([]models.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Donation
	for i := len(r.donations) - 1; i >= 0 && len(out) < limit; i-- {
		d := r.donations[i]
		if d.RoomCode != nil && *d.RoomCode == roomCode {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *memLedger) CountByRoom(roomCode string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, d := range r.donations {
		if d.RoomCode != nil && *d.RoomCode == roomCode {
			n++
		}
	}
	return n, nil
}

func (r *memLedger) GetByProviderEvent(sourceType, providerEventID string) (*models.Donation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.donations {
		if d.SourceType == sourceType && d.ProviderEventID == providerEventID {
			found := d
			return &found, nil
		}
	}
	return nil, repository.ErrDonationNotFound
}

func (r *memLedger) IngestWithClaim(claimCode string, now time.Time, build func(claim *models.PendingClaim) *models.Donation) (*models.Donation, error) {
	r.mu.Lock()
	if r.failNextIngests > 0 {
		r.failNextIngests--
		r.mu.Unlock()
		return nil, errors.New("store unavailable")
	}
	r.mu.Unlock()

	var claim *models.PendingClaim
	if claimCode != "" {
		if found, err := r.claims.Consume(claimCode, now); err == nil {
			claim = found
		}
	}
	donation := build(claim)
	if err := r.Create(donation); err != nil {
		return nil, err
	}
	return donation, nil
}

type memEvents struct {
	mu     sync.Mutex
	events map[string]*models.WebhookEvent
	nextID uint
}

func (r *memEvents) CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.events == nil {
		r.events = make(map[string]*models.WebhookEvent)
	}
	key := event.Provider + "|" + event.ProviderEventID
	if existing, ok := r.events[key]; ok {
		found := *existing
		return false, &found, nil
	}
	r.nextID++
	event.ID = r.nextID
	stored := *event
	r.events[key] = &stored
	created := stored
	return true, &created, nil
}

func (r *memEvents) MarkProcessed(id uint, processingError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, event := range r.events {
		if event.ID == id {
			now := time.Now()
			event.ProcessedAt = &now
			event.ProcessingError = processingError
		}
	}
	return nil
}

func newWebhookTestApp(t *testing.T) (*fiber.App, *memClaims, *memLedger) {
	t.Helper()

	claims := &memClaims{}
	ledger := &memLedger{claims: claims}
	svc := donation.NewService(&repository.Repositories{
		Claim:        claims,
		Donation:     ledger,
		WebhookEvent: &memEvents{},
	}, nil)
	InitializeDonationControllers(svc, livefeed.NewHub())

	app := fiber.New()
	app.Post("/webhook/kofi", HandleKofiWebhook)
	app.Post("/webhook/stripe", HandleStripeWebhook)
	return app, claims, ledger
}

func postKofi(t *testing.T, app *fiber.App, dataJSON string) (int, map[string]interface{}) {
	t.Helper()
	form := url.Values{}
	form.Set("data", dataJSON)

	req := httptest.NewRequest("POST", "/webhook/kofi", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &decoded))
	}
	return resp.StatusCode, decoded
}

func TestHandleKofiWebhook_MatchedDonation(t *testing.T) {
	app, claims, ledger := newWebhookTestApp(t)

	userID := uint(5)
	require.NoError(t, claims.Create(&models.PendingClaim{
		ClaimCode:   "ABC123-Taro",
		RoomCode:    "ABC123",
		DisplayName: "Taro",
		UserID:      &userID,
		ExpiresAt:   time.Now().Add(time.Hour),
	}))

	status, body := postKofi(t, app, `{
		"type": "Donation",
		"from_name": "ABC123-Taro",
		"amount": "3.00",
		"currency": "USD",
		"message": "hi",
		"kofi_transaction_id": "tx-100"
	}`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["matched"])
	assert.Equal(t, "ABC123", body["streamCode"])
	assert.Equal(t, "Taro", body["nickname"])

	require.Len(t, ledger.donations, 1)
	d := ledger.donations[0]
	require.NotNil(t, d.UserID)
	assert.Equal(t, uint(5), *d.UserID)
	assert.Equal(t, 3.0, d.Amount)
	assert.Equal(t, models.SourceKofiDonation, d.SourceType)

	n, err := claims.CountByCode("ABC123-Taro")
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestHandleKofiWebhook_UnmatchedDonation(t *testing.T) {
	app, _, ledger := newWebhookTestApp(t)

	status, body := postKofi(t, app, `{
		"type": "Donation",
		"from_name": "randomtext",
		"amount": "2.00",
		"currency": "EUR",
		"kofi_transaction_id": "tx-101"
	}`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, false, body["matched"])

	require.Len(t, ledger.donations, 1)
	assert.False(t, ledger.donations[0].Matched)
	assert.Nil(t, ledger.donations[0].RoomCode)
	assert.Equal(t, "randomtext", ledger.donations[0].DonorName)
}

func TestHandleKofiWebhook_DuplicateDelivery(t *testing.T) {
	app, _, ledger := newWebhookTestApp(t)

	payload := `{
		"type": "Donation",
		"from_name": "randomtext",
		"amount": "2.00",
		"currency": "EUR",
		"kofi_transaction_id": "tx-102"
	}`

	status, _ := postKofi(t, app, payload)
	assert.Equal(t, fiber.StatusOK, status)

	status, body := postKofi(t, app, payload)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["duplicate"])

	assert.Len(t, ledger.donations, 1)
}

func TestHandleKofiWebhook_RetryAfterStoreFailureLandsDonation(t *testing.T) {
	app, _, ledger := newWebhookTestApp(t)
	ledger.failNextIngests = 1

	payload := `{
		"type": "Donation",
		"from_name": "randomtext",
		"amount": "4.00",
		"currency": "USD",
		"kofi_transaction_id": "tx-110"
	}`

	// First delivery: the event row lands but the ledger append fails.
	status, _ := postKofi(t, app, payload)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Empty(t, ledger.donations)

	// The provider retries the identical delivery. It must not be treated
	// as a settled duplicate: the donation has to land now.
	status, body := postKofi(t, app, payload)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	require.Len(t, ledger.donations, 1)
	assert.Equal(t, 4.0, ledger.donations[0].Amount)

	// A third delivery is a true duplicate and appends nothing.
	status, body = postKofi(t, app, payload)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["duplicate"])
	assert.Len(t, ledger.donations, 1)
}

func TestHandleStripeWebhook_RetryAfterStoreFailureLandsDonation(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	app, _, ledger := newWebhookTestApp(t)
	ledger.failNextIngests = 1

	payload := `{
		"id": "evt_7",
		"type": "payment_intent.succeeded",
		"data": {"object": {
			"id": "pi_7",
			"amount": 20000,
			"currency": "jpy",
			"status": "succeeded",
			"metadata": {"streamCode": "XYZ99"}
		}}
	}`

	status, _ := postStripe(t, app, payload)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Empty(t, ledger.donations)

	status, body := postStripe(t, app, payload)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["received"])
	require.Len(t, ledger.donations, 1)
	assert.Equal(t, 200.0, ledger.donations[0].Amount)

	status, body = postStripe(t, app, payload)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["duplicate"])
	assert.Len(t, ledger.donations, 1)
}

func TestHandleKofiWebhook_BadInput(t *testing.T) {
	app, _, ledger := newWebhookTestApp(t)

	status, _ := postKofi(t, app, "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = postKofi(t, app, "not json")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = postKofi(t, app, `{"from_name":"x","amount":"free"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)

	assert.Empty(t, ledger.donations)
}

func TestHandleKofiWebhook_TokenMismatch(t *testing.T) {
	t.Setenv("KOFI_VERIFICATION_TOKEN", "expected-token")
	app, _, ledger := newWebhookTestApp(t)

	status, body := postKofi(t, app, `{
		"verification_token": "wrong-token",
		"from_name": "randomtext",
		"amount": "1.00",
		"kofi_transaction_id": "tx-103"
	}`)

	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "invalid_verification_token", body["error"])
	assert.Empty(t, ledger.donations)
}

func postStripe(t *testing.T, app *fiber.App, payload string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest("POST", "/webhook/stripe", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var decoded map[string]interface{}
	if len(body) > 0 {
		require.NoError(t, json.Unmarshal(body, &decoded))
	}
	return resp.StatusCode, decoded
}

func TestHandleStripeWebhook_CheckoutCompleted(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	app, _, ledger := newWebhookTestApp(t)

	status, body := postStripe(t, app, `{
		"id": "evt_1",
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_1",
			"amount_total": 50000,
			"currency": "jpy",
			"payment_status": "paid",
			"metadata": {"streamCode": "ABC123", "donorName": "Hanako", "message": "yay"}
		}}
	}`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["received"])

	require.Len(t, ledger.donations, 1)
	d := ledger.donations[0]
	assert.True(t, d.Matched)
	require.NotNil(t, d.RoomCode)
	assert.Equal(t, "ABC123", *d.RoomCode)
	assert.Equal(t, 500.0, d.Amount)
	assert.Equal(t, "JPY", d.Currency)
	assert.Equal(t, models.SourceStripeDonation, d.SourceType)
}

func TestHandleStripeWebhook_IgnoredEventType(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	app, _, ledger := newWebhookTestApp(t)

	status, body := postStripe(t, app, `{
		"id": "evt_2",
		"type": "charge.refunded",
		"data": {"object": {"id": "ch_1"}}
	}`)

	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["ignored"])
	assert.Empty(t, ledger.donations)
}

func TestHandleStripeWebhook_MissingSignatureWithSecret(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_test")
	app, _, ledger := newWebhookTestApp(t)

	status, _ := postStripe(t, app, `{"id": "evt_3", "type": "payment_intent.succeeded"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Empty(t, ledger.donations)
}

func TestHandleStripeWebhook_DuplicateDelivery(t *testing.T) {
	t.Setenv("STRIPE_WEBHOOK_SECRET", "")
	app, _, ledger := newWebhookTestApp(t)

	payload := `{
		"id": "evt_4",
		"type": "payment_intent.succeeded",
		"data": {"object": {
			"id": "pi_1",
			"amount": 30000,
			"currency": "jpy",
			"status": "succeeded",
			"metadata": {"streamCode": "XYZ99"}
		}}
	}`

	status, _ := postStripe(t, app, payload)
	assert.Equal(t, fiber.StatusOK, status)

	status, body := postStripe(t, app, payload)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["duplicate"])

	assert.Len(t, ledger.donations, 1)
}
