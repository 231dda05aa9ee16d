package livefeed

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamnest/SuperChat/app/models"
)

func roomDonation(room, publicID string) models.Donation {
	return models.Donation{
		PublicID: publicID,
		RoomCode: &room,
		Amount:   100,
		Currency: "JPY",
	}
}

func TestHubPublishReachesRoomSubscribers(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("ABC123")
	defer sub.Cancel()

	hub.Publish(roomDonation("ABC123", "d-1"))

	select {
	case got := <-sub.C:
		assert.Equal(t, "d-1", got.PublicID)
	case <-time.After(time.Second):
		t.Fatal("no donation delivered")
	}
}

func TestHubRoomIsolation(t *testing.T) {
	hub := NewHub()
	subA := hub.Subscribe("ROOMA")
	subB := hub.Subscribe("ROOMB")
	defer subA.Cancel()
	defer subB.Cancel()

	hub.Publish(roomDonation("ROOMA", "d-a"))

	select {
	case got := <-subA.C:
		assert.Equal(t, "d-a", got.PublicID)
	case <-time.After(time.Second):
		t.Fatal("no donation delivered to room A")
	}

	select {
	case got := <-subB.C:
		t.Fatalf("room B received foreign donation %s", got.PublicID)
	default:
	}
}

func TestHubSkipsUnattributedDonations(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("ABC123")
	defer sub.Cancel()

	hub.Publish(models.Donation{PublicID: "d-none"})
	empty := ""
	hub.Publish(models.Donation{PublicID: "d-empty", RoomCode: &empty})

	select {
	case got := <-sub.C:
		t.Fatalf("unattributed donation %s reached a feed", got.PublicID)
	default:
	}
}

func TestSubscriptionCancel(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("ABC123")
	require.Equal(t, 1, hub.SubscriberCount("ABC123"))

	sub.Cancel()
	assert.Equal(t, 0, hub.SubscriberCount("ABC123"))

	// Channel is closed after Cancel.
	_, open := <-sub.C
	assert.False(t, open)

	// Cancel is idempotent.
	assert.NotPanics(t, func() { sub.Cancel() })

	// Publishing after Cancel must not panic on the closed channel.
	assert.NotPanics(t, func() { hub.Publish(roomDonation("ABC123", "d-late")) })
}

func TestHubSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	hub := NewHub()
	sub := hub.Subscribe("ABC123")
	defer sub.Cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < SubscriptionBuffer+10; i++ {
			hub.Publish(roomDonation("ABC123", "d-flood"))
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}

	assert.Len(t, sub.C, SubscriptionBuffer)
}

func TestHubConcurrentSubscribePublish(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sub := hub.Subscribe("ABC123")
			hub.Publish(roomDonation("ABC123", "d-c"))
			sub.Cancel()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, hub.SubscriberCount("ABC123"))
}
