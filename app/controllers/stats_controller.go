package controllers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/streamnest/SuperChat/internal/pkg/statistics"
)

// HandleStatistics returns the aggregate donation counters. Values come from
// a Redis cache refreshed at most every five minutes.
func HandleStatistics(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(statistics.GetStatistics())
}
