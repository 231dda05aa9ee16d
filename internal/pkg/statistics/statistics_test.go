package statistics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStartOfDay(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skip("tzdata unavailable")
	}

	// 2026-08-31 01:30 JST is still 2026-08-30 in UTC; the daily bucket must
	// follow the server's calendar day, not the UTC one.
	at := time.Date(2026, 8, 31, 1, 30, 0, 0, tokyo)
	got := startOfDay(at)

	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, tokyo), got)
	assert.Equal(t, tokyo, got.Location())
	assert.NotEqual(t, at.Truncate(24*time.Hour), got)
}

func TestDailyKey(t *testing.T) {
	at := time.Date(2026, 8, 31, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "statistics:donations:daily:2026-08-31", dailyKey(at))
}
