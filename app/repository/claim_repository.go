package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/streamnest/SuperChat/app/models"
)

// ErrClaimNotFound is returned when no live claim matches a code. Concurrent
// losers of the same code observe this, never a harder error.
var ErrClaimNotFound = errors.New("pending claim not found")

type claimRepository struct {
	db *gorm.DB
}

// NewClaimRepository creates a claim repository backed by GORM.
func NewClaimRepository(db *gorm.DB) ClaimRepository {
	return &claimRepository{db: db}
}

func (r *claimRepository) Create(claim *models.PendingClaim) error {
	return r.db.Create(claim).Error
}

func (r *claimRepository) Consume(claimCode string, now time.Time) (*models.PendingClaim, error) {
	claim, err := consumeClaimTx(r.db, claimCode, now)
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// consumeClaimTx locks the oldest live claim row for the code and deletes it.
// The row lock is what guarantees at most one concurrent caller observes the
// claim; everyone else gets ErrClaimNotFound.
func consumeClaimTx(db *gorm.DB, claimCode string, now time.Time) (*models.PendingClaim, error) {
	var claim models.PendingClaim
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("claim_code = ? AND expires_at > ?", claimCode, now).
			Order("created_at ASC").
			First(&claim).Error; err != nil {
			return err
		}
		return tx.Delete(&claim).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClaimNotFound
		}
		return nil, err
	}
	return &claim, nil
}

func (r *claimRepository) CountByCode(claimCode string) (int64, error) {
	var count int64
	err := r.db.Model(&models.PendingClaim{}).Where("claim_code = ?", claimCode).Count(&count).Error
	return count, err
}

func (r *claimRepository) DeleteExpired(before time.Time) (int64, error) {
	tx := r.db.Where("expires_at <= ?", before).Delete(&models.PendingClaim{})
	return tx.RowsAffected, tx.Error
}
