package livefeed

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gofiber/fiber/v2/log"
	"github.com/redis/go-redis/v9"

	"github.com/streamnest/SuperChat/app/models"
)

const (
	feedChannelPrefix  = "superchat:feed:"
	feedChannelPattern = feedChannelPrefix + "*"
)

// RedisBridge spans the hub across instances: appends are published to a
// per-room Redis channel, and every instance feeds its local hub from a
// pattern subscription. The webhook receiver and the instance holding a
// viewer's SSE connection therefore do not need to be the same process.
type RedisBridge struct {
	client *redis.Client
	hub    *Hub

	mu      sync.Mutex
	pubsub  *redis.PubSub
	cancel  context.CancelFunc
	running bool
}

// NewRedisBridge wires a Redis client to a local hub.
func NewRedisBridge(client *redis.Client, hub *Hub) *RedisBridge {
	return &RedisBridge{client: client, hub: hub}
}

// Publish broadcasts a donation to all instances via Redis. When Redis is
// unreachable the donation is delivered to the local hub directly so a
// single-instance deployment keeps working.
func (b *RedisBridge) Publish(donation models.Donation) {
	if donation.RoomCode == nil || *donation.RoomCode == "" {
		return
	}

	payload, err := json.Marshal(donation)
	if err != nil {
		log.Errorf("[LiveFeed] failed to encode donation %s: %v", donation.PublicID, err)
		return
	}

	channel := feedChannelPrefix + *donation.RoomCode
	if err := b.client.Publish(context.Background(), channel, payload).Err(); err != nil {
		log.Warnf("[LiveFeed] redis publish failed, delivering locally: %v", err)
		b.hub.Publish(donation)
	}
}

// Start begins relaying Redis feed messages into the local hub.
func (b *RedisBridge) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.running {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.pubsub = b.client.PSubscribe(ctx, feedChannelPattern)
	b.running = true

	go b.relay(ctx, b.pubsub.Channel())
	log.Infof("[LiveFeed] redis bridge subscribed to %s", feedChannelPattern)
}

// Stop ends the relay and releases the subscription.
func (b *RedisBridge) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return
	}
	b.cancel()
	if err := b.pubsub.Close(); err != nil {
		log.Warnf("[LiveFeed] closing redis subscription: %v", err)
	}
	b.running = false
}

func (b *RedisBridge) relay(ctx context.Context, messages <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			var donation models.Donation
			if err := json.Unmarshal([]byte(msg.Payload), &donation); err != nil {
				log.Warnf("[LiveFeed] discarding malformed feed message on %s: %v", msg.Channel, err)
				continue
			}
			b.hub.Publish(donation)
		}
	}
}
