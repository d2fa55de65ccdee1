package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/rtc-attention/internal/config"
	"github.com/yungbote/rtc-attention/internal/events"
	httpH "github.com/yungbote/rtc-attention/internal/http/handlers"
	"github.com/yungbote/rtc-attention/internal/platform/logger"
	"github.com/yungbote/rtc-attention/internal/vision"
	"github.com/yungbote/rtc-attention/internal/vision/gcv"
	"github.com/yungbote/rtc-attention/internal/vision/mock"
	"github.com/yungbote/rtc-attention/internal/vision/remote"
)

func newDetector(ctx context.Context, log *logger.Logger, cfg config.DetectorConfig) (vision.Detector, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Type)) {
	case "", "mock":
		d, err := mock.New(cfg.MockProfile)
		if err != nil {
			return nil, err
		}
		log.Warn("using mock face detector; results ignore image content", "profile", d.Profile())
		return d, nil
	case "remote":
		return remote.New(cfg)
	case "gcv":
		return gcv.New(ctx, log, cfg.Timeout.Duration)
	default:
		return nil, fmt.Errorf("unknown detector type %q", cfg.Type)
	}
}

// newBus picks redis fan-out when an address is configured and in-process
// delivery otherwise.
func newBus(ctx context.Context, log *logger.Logger, cfg config.EventsConfig) (events.Bus, error) {
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return events.NewLocalBus(), nil
	}
	return events.NewRedisBus(ctx, log, cfg.RedisAddr, cfg.Channel)
}

func readiness(d vision.Detector) httpH.Readiness {
	return func() error {
		if d == nil {
			return vision.ErrNoDetector
		}
		return nil
	}
}
