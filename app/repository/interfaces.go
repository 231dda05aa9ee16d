package repository

import (
	"time"

	"github.com/streamnest/SuperChat/app/models"
)

// ClaimRepository defines the interface for pending-claim database operations.
// Consume is the only mutating read: it must be atomic per claim so that two
// concurrent webhook deliveries can never both win the same code.
type ClaimRepository interface {
	Create(claim *models.PendingClaim) error
	// Consume returns the oldest live (non-expired) claim for the given code
	// and deletes it in the same transaction. Returns ErrClaimNotFound when
	// no live claim exists.
	Consume(claimCode string, now time.Time) (*models.PendingClaim, error)
	CountByCode(claimCode string) (int64, error)
	DeleteExpired(before time.Time) (int64, error)
}

// DonationRepository defines the interface for the append-only donation
// ledger. There are intentionally no update or delete operations.
type DonationRepository interface {
	Create(donation *models.Donation) error
	GetByPublicID(publicID string) (*models.Donation, error)
	// GetByProviderEvent returns the entry a given provider event produced,
	// or ErrDonationNotFound. Used to keep retried ingestion single-append.
	GetByProviderEvent(sourceType, providerEventID string) (*models.Donation, error)
	RecentByRoom(roomCode string, limit int) ([]models.Donation, error)
	CountByRoom(roomCode string) (int64, error)
	// IngestWithClaim runs claim consumption and ledger append in one
	// transaction. claimCode may be empty; build receives the consumed claim
	// (nil on miss) and returns the donation to append.
	IngestWithClaim(claimCode string, now time.Time, build func(claim *models.PendingClaim) *models.Donation) (*models.Donation, error)
}

// WebhookEventRepository stores provider webhook deliveries with a unique
// (provider, provider_event_id) key for idempotent ingestion.
type WebhookEventRepository interface {
	CreateIfNotExists(event *models.WebhookEvent) (bool, *models.WebhookEvent, error)
	MarkProcessed(id uint, processingError string) error
}

// StreamRepository defines the interface for room/stream lookups.
type StreamRepository interface {
	Create(stream *models.Stream) error
	GetByRoomCode(roomCode string) (*models.Stream, error)
	Update(stream *models.Stream) error
	List(offset, limit int) ([]models.Stream, error)
}

// UserRepository defines the interface for user-related database operations.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, error)
	Update(user *models.User) error
}
