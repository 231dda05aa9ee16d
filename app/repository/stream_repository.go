package repository

import (
	"gorm.io/gorm"

	"github.com/streamnest/SuperChat/app/models"
)

type streamRepository struct {
	db *gorm.DB
}

// NewStreamRepository creates a stream repository backed by GORM.
func NewStreamRepository(db *gorm.DB) StreamRepository {
	return &streamRepository{db: db}
}

func (r *streamRepository) Create(stream *models.Stream) error {
	return r.db.Create(stream).Error
}

func (r *streamRepository) GetByRoomCode(roomCode string) (*models.Stream, error) {
	var stream models.Stream
	if err := r.db.Where("room_code = ?", roomCode).First(&stream).Error; err != nil {
		return nil, err
	}
	return &stream, nil
}

func (r *streamRepository) Update(stream *models.Stream) error {
	return r.db.Save(stream).Error
}

func (r *streamRepository) List(offset, limit int) ([]models.Stream, error) {
	var streams []models.Stream
	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&streams).Error
	return streams, err
}
