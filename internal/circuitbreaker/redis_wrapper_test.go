package circuitbreaker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap/zaptest"
)

func TestRedisWrapperNormalOperations(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	wrapper := NewRedisWrapper(client, DefaultConfig(), zaptest.NewLogger(t))
	ctx := context.Background()

	if err := wrapper.Ping(ctx).Err(); err != nil {
		t.Errorf("Ping failed: %v", err)
	}

	if err := wrapper.Set(ctx, "session:abc", "payload", time.Minute).Err(); err != nil {
		t.Errorf("Set failed: %v", err)
	}

	got := wrapper.Get(ctx, "session:abc")
	if got.Err() != nil {
		t.Errorf("Get failed: %v", got.Err())
	}
	if got.Val() != "payload" {
		t.Errorf("expected 'payload', got %q", got.Val())
	}

	// Missing key returns redis.Nil and must not trip the breaker.
	if err := wrapper.Get(ctx, "session:missing").Err(); err != redis.Nil {
		t.Errorf("expected redis.Nil, got %v", err)
	}
	if wrapper.IsOpen() {
		t.Error("breaker should remain closed for redis.Nil")
	}

	del := wrapper.Del(ctx, "session:abc")
	if del.Err() != nil {
		t.Errorf("Del failed: %v", del.Err())
	}
	if del.Val() != 1 {
		t.Errorf("expected 1 deleted key, got %d", del.Val())
	}
}

func TestRedisWrapperBreakerTrips(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:1"}) // nothing listening
	defer client.Close()

	cfg := DefaultConfig()
	cfg.FailureThreshold = 3
	wrapper := NewRedisWrapper(client, cfg, zaptest.NewLogger(t))
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if wrapper.Ping(ctx).Err() == nil {
			t.Fatal("expected ping to fail against closed port")
		}
	}
	if !wrapper.IsOpen() {
		t.Error("expected breaker to be open after repeated failures")
	}
}
