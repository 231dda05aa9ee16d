package donation

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/streamnest/SuperChat/app/models"
)

// ErrKofiTokenMismatch is returned when a verification token is configured
// and the inbound payload carries a different one. This is an authentication
// failure: the event must be rejected before any state mutation.
var ErrKofiTokenMismatch = errors.New("kofi verification token mismatch")

// KofiPayload is the JSON document Ko-fi posts inside the urlencoded "data"
// form field. Decoding is strict-shape: unknown provider experiments simply
// fail to normalize instead of being walked dynamically.
type KofiPayload struct {
	VerificationToken string `json:"verification_token"`
	MessageID         string `json:"message_id"`
	Timestamp         string `json:"timestamp"`
	Type              string `json:"type"`
	IsPublic          bool   `json:"is_public"`
	FromName          string `json:"from_name"`
	Message           string `json:"message"`
	Amount            string `json:"amount"`
	URL               string `json:"url"`
	Email             string `json:"email"`
	Currency          string `json:"currency"`
	KofiTransactionID string `json:"kofi_transaction_id"`
}

// ParseKofiData decodes the JSON blob from the "data" form field.
func ParseKofiData(data string) (*KofiPayload, error) {
	if strings.TrimSpace(data) == "" {
		return nil, errors.New("empty kofi data field")
	}
	var p KofiPayload
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("invalid kofi payload: %w", err)
	}
	return &p, nil
}

// VerifyKofiToken checks the shared-secret verification token. An empty
// configured token disables the check (Ko-fi treats it as optional).
func VerifyKofiToken(p *KofiPayload, configuredToken string) error {
	token := strings.TrimSpace(configuredToken)
	if token == "" {
		return nil
	}
	if p.VerificationToken != token {
		return ErrKofiTokenMismatch
	}
	return nil
}

// NormalizeKofi converts a Ko-fi payload into the canonical event shape.
// The donor name is matched against the claim-code pattern; when it does not
// carry a code the event normalizes as anonymous rather than failing, since
// payment data must never be lost over attribution.
func NormalizeKofi(p *KofiPayload) (NormalizedEvent, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(p.Amount), 64)
	if err != nil {
		return NormalizedEvent{}, fmt.Errorf("kofi amount %q is not numeric: %w", p.Amount, err)
	}

	eventID := strings.TrimSpace(p.KofiTransactionID)
	if eventID == "" {
		eventID = strings.TrimSpace(p.MessageID)
	}

	ev := NormalizedEvent{
		SourceType:      models.SourceKofiDonation,
		Provider:        models.DonationProviderKofi,
		EventType:       p.Type,
		ProviderEventID: eventID,
		RawDonorName:    p.FromName,
		Email:           p.Email,
		Amount:          amount, // Ko-fi already reports major units
		Currency:        strings.ToUpper(p.Currency),
		Message:         p.Message,
		IsPublic:        p.IsPublic,
		URL:             p.URL,
	}

	if room, name, ok := SplitClaimCode(p.FromName); ok {
		ev.RoomCodeHint = room
		ev.DisplayNameHint = name
	}
	return ev, nil
}
