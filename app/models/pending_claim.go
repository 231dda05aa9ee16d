package models

import "time"

// PendingClaim binds a donor-typed claim code to a room and display name
// until a matching payment event consumes it. The code is not unique by
// construction: two donors picking the same display name on the same room
// collide, and reconciliation takes the first match.
type PendingClaim struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ClaimCode   string    `gorm:"type:varchar(191);not null;index" json:"claim_code"`
	RoomCode    string    `gorm:"type:varchar(32);not null;index" json:"room_code"`
	DisplayName string    `gorm:"type:varchar(150);not null" json:"display_name"`
	UserID      *uint     `gorm:"index" json:"user_id,omitempty"`
	ExpiresAt   time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// ClaimTTL is the window in which a generated claim code stays matchable.
const ClaimTTL = 24 * time.Hour

// Expired reports whether the claim is past its matchable window.
func (c *PendingClaim) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
