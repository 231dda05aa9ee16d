package controllers

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/streamnest/SuperChat/app/models"
	"github.com/streamnest/SuperChat/app/repository"
	"github.com/streamnest/SuperChat/internal/pkg/metrics/counter"
	"github.com/streamnest/SuperChat/internal/pkg/middleware"
)

const roomCodeRetries = 3

type createStreamRequest struct {
	Title string `json:"title" validate:"required,min=1,max=200"`
}

// HandleCreateStream registers a new room for the authenticated streamer and
// returns its generated room code. The code is what viewers and claim codes
// reference.
func HandleCreateStream(c *fiber.Ctx) error {
	userID, ok := c.Locals(middleware.KeyAPIUserID).(uint)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}

	var req createStreamRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if err := validate.Struct(&req); err != nil {
		return badRequest(c, "title is required")
	}

	repo := repository.GetGlobalFactory().GetStreamRepository()

	// Room codes collide rarely; retry a few times on the unique index.
	var stream *models.Stream
	for attempt := 0; attempt < roomCodeRetries; attempt++ {
		code, err := models.GenerateRoomCode()
		if err != nil {
			return internalError(c, "room_code_generation_failed")
		}
		candidate := &models.Stream{RoomCode: code, Title: req.Title, UserID: userID}
		if err := repo.Create(candidate); err != nil {
			continue
		}
		stream = candidate
		break
	}
	if stream == nil {
		log.Printf("room code generation exhausted retries for user %d", userID)
		return internalError(c, "room_creation_failed")
	}

	return c.Status(fiber.StatusCreated).JSON(stream)
}

// HandleGetStream returns a room by its code, including its donation count.
func HandleGetStream(c *fiber.Ctx) error {
	roomCode := c.Params("code")
	if roomCode == "" {
		return badRequest(c, "Missing room code")
	}

	repos := repository.GetGlobalFactory().GetRepositories()
	stream, err := repos.Stream.GetByRoomCode(roomCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFound(c, "Unknown room code")
		}
		return internalError(c, "room_lookup_failed")
	}

	count, err := repos.Donation.CountByRoom(roomCode)
	if err != nil {
		return internalError(c, "donation_count_failed")
	}

	// Best effort, the batched flush applies it to the row later.
	if err := counter.AddRoomView(roomCode); err != nil {
		log.Printf("room view counter failed for %s: %v", roomCode, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"stream":         stream,
		"donation_count": count,
	})
}
