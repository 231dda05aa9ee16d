package controllers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"github.com/streamnest/SuperChat/app/models"
	"github.com/streamnest/SuperChat/internal/pkg/donation"
)

const feedHeartbeat = 25 * time.Second

// HandleRecentDonations returns the newest ledger entries for a room,
// newest-first, capped at the feed limit.
func HandleRecentDonations(c *fiber.Ctx) error {
	roomCode := c.Params("code")
	if roomCode == "" {
		return badRequest(c, "Missing room code")
	}

	limit := c.QueryInt("limit", donation.FeedLimit)
	records, err := donationService.RecentDonations(c.Context(), roomCode, limit)
	if err != nil {
		return internalError(c, "donation_query_failed")
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"room_code": roomCode,
		"donations": sortNewestFirst(records),
	})
}

// HandleDonationFeed streams a room's donations over SSE: one snapshot event
// with the recent batch, then one donation event per live append. The watch
// ends when the client disconnects; cancellation releases the hub
// registration.
func HandleDonationFeed(c *fiber.Ctx) error {
	roomCode := c.Params("code")
	if roomCode == "" {
		return badRequest(c, "Missing room code")
	}

	sub := feedHub.Subscribe(roomCode)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sub.Cancel()

		recent, err := donationService.RecentDonations(context.Background(), roomCode, donation.FeedLimit)
		if err == nil {
			if err := writeFeedEvent(w, "snapshot", recent); err != nil {
				return
			}
		}

		heartbeat := time.NewTicker(feedHeartbeat)
		defer heartbeat.Stop()

		for {
			select {
			case record, ok := <-sub.C:
				if !ok {
					return
				}
				if err := writeFeedEvent(w, "donation", record); err != nil {
					return
				}
			case <-heartbeat.C:
				if _, err := w.WriteString(": ping\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))

	return nil
}

func writeFeedEvent(w *bufio.Writer, event string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data); err != nil {
		return err
	}
	return w.Flush()
}

// sortNewestFirst re-sorts a batch by creation time. The store query already
// orders, but the contract is newest-first regardless of backend ordering
// guarantees.
func sortNewestFirst(records []models.Donation) []models.Donation {
	sorted := make([]models.Donation, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return sorted
}
