package livefeed

import (
	"sync"

	"github.com/gofiber/fiber/v2/log"

	"github.com/streamnest/SuperChat/app/models"
)

// SubscriptionBuffer is the per-viewer channel capacity. When a slow viewer
// falls this far behind, newer donations are dropped for that viewer rather
// than queued; the next page load re-reads the ledger.
const SubscriptionBuffer = 50

// Hub fans freshly appended donations out to per-room subscribers. All
// methods are safe for concurrent use.
type Hub struct {
	mu   sync.RWMutex
	subs map[string]map[*Subscription]struct{}
}

// Subscription is one viewer's live watch on a room feed. Receive from C
// until it is closed; call Cancel when done.
type Subscription struct {
	C chan models.Donation

	hub  *Hub
	room string
	once sync.Once
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		subs: make(map[string]map[*Subscription]struct{}),
	}
}

// Subscribe registers a live watch on the given room code.
func (h *Hub) Subscribe(roomCode string) *Subscription {
	sub := &Subscription{
		C:    make(chan models.Donation, SubscriptionBuffer),
		hub:  h,
		room: roomCode,
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[roomCode] == nil {
		h.subs[roomCode] = make(map[*Subscription]struct{})
	}
	h.subs[roomCode][sub] = struct{}{}
	return sub
}

// Cancel deregisters the subscription and closes its channel. After Cancel
// returns no further donations are delivered. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.hub.mu.Lock()
		if set, ok := s.hub.subs[s.room]; ok {
			delete(set, s)
			if len(set) == 0 {
				delete(s.hub.subs, s.room)
			}
		}
		s.hub.mu.Unlock()
		close(s.C)
	})
}

// Publish delivers a donation to every subscriber of its room. Unattributed
// donations have no room and reach no feed. Delivery never blocks: a full
// subscriber simply misses the entry.
func (h *Hub) Publish(donation models.Donation) {
	if donation.RoomCode == nil || *donation.RoomCode == "" {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for sub := range h.subs[*donation.RoomCode] {
		select {
		case sub.C <- donation:
		default:
			log.Debugf("[LiveFeed] dropping donation %s for slow subscriber on room %s", donation.PublicID, *donation.RoomCode)
		}
	}
}

// SubscriberCount reports active watches for a room.
func (h *Hub) SubscriberCount(roomCode string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[roomCode])
}
