package statistics

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/streamnest/SuperChat/app/models"
	"github.com/streamnest/SuperChat/internal/pkg/cache"
	"github.com/streamnest/SuperChat/internal/pkg/database"
)

const (
	CacheKeyDonationsTotal = "statistics:donations:total"
	CacheKeyDonationsDaily = "statistics:donations:daily:%s" // date YYYY-MM-DD
	CacheKeyAmountTotal    = "statistics:donations:amount"
	CacheKeyStreamsTotal   = "statistics:streams:total"
	CacheExpiration        = 30 * time.Minute
)

// Data aggregates the public donation counters.
type Data struct {
	TodayDonations int     `json:"today_donations"`
	TotalDonations int     `json:"total_donations"`
	TotalAmount    float64 `json:"total_amount"`
	TotalStreams   int     `json:"total_streams"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

func shouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()
	if time.Since(lastCacheUpdate) < cacheUpdateInterval {
		return false
	}
	lastCacheUpdate = time.Now()
	return true
}

// GetStatistics returns the aggregate counters, served from Redis when fresh
// and recomputed from the ledger at most every five minutes.
func GetStatistics() Data {
	if shouldUpdateCache() {
		if err := UpdateCache(); err != nil {
			log.Errorf("[Statistics] cache update failed: %v", err)
		}
	}

	data := Data{}
	data.TotalDonations = readCachedInt(CacheKeyDonationsTotal)
	data.TodayDonations = readCachedInt(dailyKey(time.Now()))
	data.TotalStreams = readCachedInt(CacheKeyStreamsTotal)
	data.TotalAmount = readCachedFloat(CacheKeyAmountTotal)
	return data
}

// UpdateCache recomputes all counters from the database and writes them to
// Redis.
func UpdateCache() error {
	db := database.GetDB()

	var totalDonations int64
	if err := db.Model(&models.Donation{}).Count(&totalDonations).Error; err != nil {
		return err
	}

	dayStart := startOfDay(time.Now())
	var todayDonations int64
	if err := db.Model(&models.Donation{}).Where("created_at >= ?", dayStart).Count(&todayDonations).Error; err != nil {
		return err
	}

	var totalAmount float64
	if err := db.Model(&models.Donation{}).Select("COALESCE(SUM(amount), 0)").Scan(&totalAmount).Error; err != nil {
		return err
	}

	var totalStreams int64
	if err := db.Model(&models.Stream{}).Count(&totalStreams).Error; err != nil {
		return err
	}

	if err := cache.Set(CacheKeyDonationsTotal, strconv.FormatInt(totalDonations, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(dailyKey(time.Now()), strconv.FormatInt(todayDonations, 10), CacheExpiration); err != nil {
		return err
	}
	if err := cache.Set(CacheKeyAmountTotal, strconv.FormatFloat(totalAmount, 'f', 2, 64), CacheExpiration); err != nil {
		return err
	}
	return cache.Set(CacheKeyStreamsTotal, strconv.FormatInt(totalStreams, 10), CacheExpiration)
}

func dailyKey(t time.Time) string {
	return fmt.Sprintf(CacheKeyDonationsDaily, t.Format("2006-01-02"))
}

// startOfDay returns midnight of t's calendar day in t's location. A plain
// Truncate(24h) would cut on absolute UTC boundaries instead.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func readCachedInt(key string) int {
	v, err := cache.Get(key)
	if err != nil {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func readCachedFloat(key string) float64 {
	v, err := cache.Get(key)
	if err != nil {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0
	}
	return f
}
