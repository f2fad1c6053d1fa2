package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisPublisherBroadcasts(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, "test:events")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	pub := NewRedisPublisher(client, "test:events")
	ev := Minted(0, "0xaaa", "0xabc", 5000)
	ev.Seq = 1
	if err := pub.Publish(ctx, ev); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var got Event
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if got.Seq != 1 || got.Kind != KindMinted || got.Owner != "0xaaa" {
			t.Fatalf("unexpected event: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no event received")
	}
}

func TestEventPayloadShapes(t *testing.T) {
	ev := ReputationUpdated(3, "0xbbb", 100, 200)
	var payload map[string]any
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["old_score"].(float64) != 100 || payload["new_score"].(float64) != 200 {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if ev.TokenID != 3 || ev.Kind != KindReputationUpdated {
		t.Fatalf("unexpected event fields: %+v", ev)
	}
	if ev.EmittedAt.IsZero() {
		t.Fatalf("emitted_at not set")
	}
}
