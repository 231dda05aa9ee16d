package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/streamnest/SuperChat/app/models"
)

// ErrDonationNotFound is returned when no ledger entry matches a lookup.
var ErrDonationNotFound = errors.New("donation not found")

type donationRepository struct {
	db *gorm.DB
}

// NewDonationRepository creates a donation ledger repository backed by GORM.
func NewDonationRepository(db *gorm.DB) DonationRepository {
	return &donationRepository{db: db}
}

func (r *donationRepository) Create(donation *models.Donation) error {
	return r.db.Create(donation).Error
}

func (r *donationRepository) GetByPublicID(publicID string) (*models.Donation, error) {
	var donation models.Donation
	if err := r.db.Where("public_id = ?", publicID).First(&donation).Error; err != nil {
		return nil, err
	}
	return &donation, nil
}

func (r *donationRepository) GetByProviderEvent(sourceType, providerEventID string) (*models.Donation, error) {
	var donation models.Donation
	err := r.db.Where("source_type = ? AND provider_event_id = ?", sourceType, providerEventID).
		First(&donation).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDonationNotFound
		}
		return nil, err
	}
	return &donation, nil
}

func (r *donationRepository) RecentByRoom(roomCode string, limit int) ([]models.Donation, error) {
	var donations []models.Donation
	err := r.db.Where("room_code = ?", roomCode).
		Order("created_at DESC").
		Limit(limit).
		Find(&donations).Error
	return donations, err
}

func (r *donationRepository) CountByRoom(roomCode string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Donation{}).Where("room_code = ?", roomCode).Count(&count).Error
	return count, err
}

// IngestWithClaim consumes the claim (when a code is given) and appends the
// donation in a single transaction, so a crash can never leave a consumed
// claim without its ledger entry.
func (r *donationRepository) IngestWithClaim(claimCode string, now time.Time, build func(claim *models.PendingClaim) *models.Donation) (*models.Donation, error) {
	var donation *models.Donation
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var claim *models.PendingClaim
		if claimCode != "" {
			found, err := consumeClaimTx(tx, claimCode, now)
			if err != nil && !errors.Is(err, ErrClaimNotFound) {
				return err
			}
			claim = found
		}
		donation = build(claim)
		return tx.Create(donation).Error
	})
	if err != nil {
		return nil, err
	}
	return donation, nil
}
