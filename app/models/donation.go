package models

import "time"

const (
	SourceKofiDonation   = "kofi_donation"
	SourceStripeDonation = "stripe_donation"

	DonationProviderKofi   = "kofi"
	DonationProviderStripe = "stripe"
)

// Donation is one finalized ledger entry. Rows are append-only: nothing in
// this service updates or deletes a donation after Create.
type Donation struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	PublicID        string    `gorm:"type:char(36);uniqueIndex" json:"public_id"`
	RoomCode        *string   `gorm:"type:varchar(32);index" json:"room_code"`
	Nickname        *string   `gorm:"type:varchar(150)" json:"nickname"`
	UserID          *uint     `gorm:"index" json:"user_id,omitempty"`
	DonorName       string    `gorm:"type:varchar(191)" json:"donor_name"`
	DonorEmail      *string   `gorm:"type:varchar(200)" json:"donor_email,omitempty"`
	Amount          float64   `gorm:"type:decimal(12,2);not null" json:"amount"`
	Currency        string    `gorm:"type:varchar(10);not null" json:"currency"`
	Message         string    `gorm:"type:text" json:"message"`
	ProviderEventID string    `gorm:"type:varchar(191);index" json:"provider_event_id"`
	PaymentStatus   string    `gorm:"type:varchar(30)" json:"payment_status"`
	IsPublic        bool      `gorm:"default:true" json:"is_public"`
	URL             *string   `gorm:"type:varchar(255)" json:"url,omitempty"`
	Matched         bool      `gorm:"not null;index" json:"matched"`
	SourceType      string    `gorm:"type:varchar(30);not null;index" json:"source_type"`
	CreatedAt       time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// DisplayName returns the resolved nickname when reconciliation found one,
// falling back to the raw provider-supplied donor name.
func (d *Donation) DisplayName() string {
	if d.Nickname != nil && *d.Nickname != "" {
		return *d.Nickname
	}
	return d.DonorName
}
