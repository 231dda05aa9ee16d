package counter

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/streamnest/SuperChat/internal/pkg/cache"
	"github.com/streamnest/SuperChat/internal/pkg/database"
)

const roomViewsKey = "room:counters:views"

// AddRoomView increments the pending view counter for a room in Redis.
// Increments buffer in a hash and are flushed to the streams table in
// batches, so a busy room page never turns into per-request UPDATEs.
func AddRoomView(roomCode string) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, roomViewsKey, roomCode, 1).Err()
}

// FlushRoomViews drains the pending room view counters and applies them to
// the streams table in one batched UPDATE. Uses RENAME to a temporary key
// for an atomic drain without losing in-flight increments.
func FlushRoomViews() error {
	ctx := context.Background()
	rdb := cache.GetClient()

	tmpKey := fmt.Sprintf("%s:tmp:%d", roomViewsKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", roomViewsKey, tmpKey).Err(); err != nil {
		// Key absent means nothing to flush.
		if strings.Contains(strings.ToLower(err.Error()), "no such key") || err.Error() == "redis: nil" {
			return nil
		}
		return err
	}
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	type pair struct {
		room string
		inc  int64
	}
	pairs := make([]pair, 0, len(data))
	for room, v := range data {
		inc, err := strconv.ParseInt(v, 10, 64)
		if err != nil || inc == 0 {
			continue
		}
		pairs = append(pairs, pair{room: room, inc: inc})
	}
	if len(pairs) == 0 {
		return nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].room < pairs[j].room })

	// UPDATE streams SET view_count = view_count + CASE room_code WHEN ? THEN ? ... END
	// WHERE room_code IN (...)
	var builder strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	builder.WriteString("UPDATE streams SET view_count = view_count + CASE room_code ")
	for _, p := range pairs {
		builder.WriteString(" WHEN ? THEN ?")
		args = append(args, p.room, p.inc)
	}
	builder.WriteString(" END WHERE room_code IN (")
	for i, p := range pairs {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("?")
		args = append(args, p.room)
	}
	builder.WriteString(")")

	return database.GetDB().Exec(builder.String(), args...).Error
}

// StartFlusher flushes pending counters on an interval until ctx is
// cancelled.
func StartFlusher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := FlushRoomViews(); err != nil {
					log.Errorf("[Counter] failed to flush room views: %v", err)
				}
			}
		}
	}()
}
