package app

import (
	"context"
	"testing"

	"github.com/yungbote/rtc-attention/internal/config"
	"github.com/yungbote/rtc-attention/internal/events"
	"github.com/yungbote/rtc-attention/internal/platform/logger"
	"github.com/yungbote/rtc-attention/internal/vision/mock"
)

func TestNewDetector(t *testing.T) {
	d, err := newDetector(context.Background(), logger.Nop(), config.DetectorConfig{Type: "mock", MockProfile: "drowsy"})
	if err != nil {
		t.Fatalf("mock: %v", err)
	}
	if m, ok := d.(*mock.Detector); !ok || m.Profile() != "drowsy" {
		t.Fatalf("detector=%T", d)
	}

	if _, err := newDetector(context.Background(), logger.Nop(), config.DetectorConfig{Type: "remote"}); err == nil {
		t.Fatalf("remote without base_url should fail")
	}
	if _, err := newDetector(context.Background(), logger.Nop(), config.DetectorConfig{Type: "bogus"}); err == nil {
		t.Fatalf("unknown type should fail")
	}
}

func TestNewBusDefaultsToLocal(t *testing.T) {
	bus, err := newBus(context.Background(), logger.Nop(), config.EventsConfig{})
	if err != nil {
		t.Fatalf("newBus: %v", err)
	}
	if _, ok := bus.(*events.LocalBus); !ok {
		t.Fatalf("bus=%T", bus)
	}
}

func TestReadiness(t *testing.T) {
	if err := readiness(nil)(); err == nil {
		t.Fatalf("nil detector should not be ready")
	}
	d, _ := mock.New("")
	if err := readiness(d)(); err != nil {
		t.Fatalf("ready: %v", err)
	}
}
