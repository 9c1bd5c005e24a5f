package redisbus_test

import (
	"context"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/services/redisbus"
)

func TestPublishRejectsUnencodablePayload(t *testing.T) {
	bus := redisbus.New(config.Redis{Addr: "127.0.0.1:6379"}, nil)
	defer bus.Close()

	err := bus.Publish(context.Background(), "jobs:events", make(chan int))
	if err == nil {
		t.Fatal("expected encode error for unencodable payload")
	}
}

func TestSubscribeRequiresHandler(t *testing.T) {
	bus := redisbus.New(config.Redis{Addr: "127.0.0.1:6379"}, nil)
	defer bus.Close()

	if err := bus.Subscribe(context.Background(), "jobs:events", nil); err == nil {
		t.Fatal("expected error for nil handler")
	}
}

func TestNilBusOperationsFail(t *testing.T) {
	var bus *redisbus.Bus
	if err := bus.Ping(context.Background()); err == nil {
		t.Fatal("expected error from nil bus ping")
	}
	if err := bus.Publish(context.Background(), "ch", struct{}{}); err == nil {
		t.Fatal("expected error from nil bus publish")
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("expected nil bus close to succeed, got %v", err)
	}
}
