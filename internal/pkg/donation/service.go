package donation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/streamnest/SuperChat/app/models"
	"github.com/streamnest/SuperChat/app/repository"
)

// FeedLimit caps how many ledger entries a room feed exposes; newer entries
// push older ones out, nothing is queued beyond the cap.
const FeedLimit = 50

// FeedPublisher pushes a freshly appended donation to live room feeds.
// Publish must not block ingestion.
type FeedPublisher interface {
	Publish(donation models.Donation)
}

// Service owns claim issuance and the webhook-to-ledger pipeline: record the
// delivery idempotently, reconcile the claim, append the donation and push it
// to the room feed.
type Service struct {
	claims repository.ClaimRepository
	ledger repository.DonationRepository
	events repository.WebhookEventRepository
	users  repository.UserRepository
	feed   FeedPublisher
}

// NewService creates a donation service from injected repositories.
func NewService(repos *repository.Repositories, feed FeedPublisher) *Service {
	return &Service{
		claims: repos.Claim,
		ledger: repos.Donation,
		events: repos.WebhookEvent,
		users:  repos.User,
		feed:   feed,
	}
}

// NewServiceFromDB creates a donation service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, feed FeedPublisher) *Service {
	return NewService(repository.NewRepositories(db), feed)
}

// ErrUnknownUser is returned when a claim names a user id that does not
// exist.
var ErrUnknownUser = errors.New("unknown user")

// CreateClaim issues a claim code binding a room and display name for the
// claim TTL. The code is returned for the donor to paste into the provider's
// name field.
func (s *Service) CreateClaim(ctx context.Context, roomCode, displayName string, userID *uint) (*models.PendingClaim, error) {
	_ = ctx
	room := strings.TrimSpace(roomCode)
	name := strings.TrimSpace(displayName)
	if room == "" || name == "" {
		return nil, errors.New("room_code and display_name are required")
	}
	if userID != nil && s.users != nil {
		if _, err := s.users.GetByID(*userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrUnknownUser
			}
			return nil, err
		}
	}

	now := time.Now()
	claim := &models.PendingClaim{
		ClaimCode:   BuildClaimCode(room, name),
		RoomCode:    room,
		DisplayName: name,
		UserID:      userID,
		ExpiresAt:   now.Add(models.ClaimTTL),
	}
	if err := s.claims.Create(claim); err != nil {
		return nil, err
	}
	return claim, nil
}

// RecordWebhookEvent persists webhook payloads idempotently. Deliveries
// without a provider event id fall back to a payload hash key.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.WebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		sum := sha256.Sum256([]byte(in.PayloadJSON))
		eventID = "hash:" + hex.EncodeToString(sum[:])
	}

	event := &models.WebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		PayloadJSON:     in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.events.CreateIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID uint, processingErr error) error {
	_ = ctx
	if webhookEventID == 0 {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.events.MarkProcessed(webhookEventID, errMsg)
}

// IngestDonation reconciles a normalized event against the claim registry
// and appends the resulting ledger entry. Attribution failure is never an
// error: an event with no code and no claim still lands as an anonymous
// unmatched donation. Claim consumption and the append share one
// transaction.
func (s *Service) IngestDonation(ctx context.Context, ev NormalizedEvent) (*models.Donation, error) {
	_ = ctx

	// The registry is keyed on the full donor-typed string, not the parsed
	// room code, so a claim lookup only makes sense when the name carried a
	// code at all. Stripe attribution comes from metadata, never from claims.
	claimCode := ""
	if ev.SourceType == models.SourceKofiDonation && ev.RoomCodeHint != "" {
		claimCode = ev.RawDonorName
	}

	donation, err := s.ledger.IngestWithClaim(claimCode, time.Now(), func(claim *models.PendingClaim) *models.Donation {
		return buildDonation(ev, claim)
	})
	if err != nil {
		return nil, err
	}

	if s.feed != nil {
		s.feed.Publish(*donation)
	}
	return donation, nil
}

// IngestDonationOnce is the retry form of IngestDonation: when the ledger
// already holds an entry for the same provider event it is returned as-is,
// so a redelivered webhook whose first ingestion failed mid-way can be
// replayed without risking a double append.
func (s *Service) IngestDonationOnce(ctx context.Context, ev NormalizedEvent) (*models.Donation, error) {
	if ev.ProviderEventID != "" {
		existing, err := s.ledger.GetByProviderEvent(ev.SourceType, ev.ProviderEventID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, repository.ErrDonationNotFound) {
			return nil, err
		}
	}
	return s.IngestDonation(ctx, ev)
}

// buildDonation applies the reconciliation rules: a consumed claim's stored
// room, display name and owner override the parsed hints; otherwise the
// hints stand on their own.
func buildDonation(ev NormalizedEvent, claim *models.PendingClaim) *models.Donation {
	donation := &models.Donation{
		PublicID:        uuid.NewString(),
		DonorName:       ev.RawDonorName,
		Amount:          ev.Amount,
		Currency:        ev.Currency,
		Message:         ev.Message,
		ProviderEventID: ev.ProviderEventID,
		PaymentStatus:   ev.PaymentStatus,
		IsPublic:        ev.IsPublic,
		SourceType:      ev.SourceType,
	}

	roomCode := ev.RoomCodeHint
	nickname := ev.DisplayNameHint
	if claim != nil {
		roomCode = claim.RoomCode
		if claim.DisplayName != "" {
			nickname = claim.DisplayName
		}
		donation.UserID = claim.UserID
	}

	if roomCode != "" {
		donation.RoomCode = &roomCode
	}
	if nickname != "" {
		donation.Nickname = &nickname
	}
	if ev.Email != "" {
		email := ev.Email
		donation.DonorEmail = &email
	}
	if ev.URL != "" {
		url := ev.URL
		donation.URL = &url
	}

	donation.Matched = roomCode != ""
	return donation
}

// RecentDonations returns the newest ledger entries for a room, capped at
// FeedLimit.
func (s *Service) RecentDonations(ctx context.Context, roomCode string, limit int) ([]models.Donation, error) {
	_ = ctx
	if limit <= 0 || limit > FeedLimit {
		limit = FeedLimit
	}
	return s.ledger.RecentByRoom(roomCode, limit)
}

// StartClaimSweeper deletes expired claims on an interval until ctx is
// cancelled. Expiry is also enforced at consume time; the sweeper only keeps
// the table from accumulating dead rows.
func (s *Service) StartClaimSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := s.claims.DeleteExpired(time.Now())
				if err != nil {
					log.Errorf("[ClaimSweeper] failed to delete expired claims: %v", err)
					continue
				}
				if deleted > 0 {
					log.Infof("[ClaimSweeper] removed %d expired claims", deleted)
				}
			}
		}
	}()
}
