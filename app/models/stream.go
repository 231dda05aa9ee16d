package models

import (
	"crypto/rand"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

const roomCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const roomCodeLength = 6

// Stream is one live session donors attribute their tips to. The RoomCode is
// the short uppercase token viewers see and claim codes embed.
type Stream struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	RoomCode  string         `gorm:"type:varchar(16);uniqueIndex" json:"room_code"`
	Title     string         `gorm:"type:varchar(200)" json:"title" validate:"required,min=1,max=200"`
	UserID    uint           `gorm:"index" json:"user_id"`
	IsLive    bool           `gorm:"default:false" json:"is_live"`
	ViewCount uint           `gorm:"default:0" json:"view_count"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (s *Stream) Validate() error {
	v := validator.New()

	return v.Struct(s)
}

// GenerateRoomCode produces a short uppercase-alphanumeric room token.
// Uniqueness is enforced by the DB index, callers retry on conflict.
func GenerateRoomCode() (string, error) {
	code := make([]byte, roomCodeLength)
	max := big.NewInt(int64(len(roomCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = roomCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}
