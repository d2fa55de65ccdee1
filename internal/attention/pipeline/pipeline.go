// Package pipeline runs one frame through feature extraction, the state
// cascade, confidence estimation and the session store, and publishes the
// outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/yungbote/rtc-attention/internal/attention/classifier"
	"github.com/yungbote/rtc-attention/internal/attention/features"
	"github.com/yungbote/rtc-attention/internal/attention/session"
	"github.com/yungbote/rtc-attention/internal/events"
	"github.com/yungbote/rtc-attention/internal/observability"
	"github.com/yungbote/rtc-attention/internal/platform/ctxutil"
	"github.com/yungbote/rtc-attention/internal/platform/logger"
	"github.com/yungbote/rtc-attention/internal/vision"
)

// ErrBusy is returned when no inference slot frees up before the caller's
// context or the acquire timeout ends.
var ErrBusy = errors.New("pipeline: too many frames in flight")

type Options struct {
	Mode           classifier.Mode
	MaxConcurrency int
	AcquireTimeout time.Duration
	MaxImageSide   int
	MaxImagePixels int

	Metrics *observability.Metrics
	Events  events.Publisher
	Log     *logger.Logger
	Now     func() time.Time
}

type Pipeline struct {
	store    *session.Store
	detector vision.Detector
	mode     classifier.Mode
	cascade  func(features.FeatureVector) classifier.State

	sem            *semaphore.Weighted
	acquireTimeout time.Duration
	decode         vision.DecodeOptions

	metrics *observability.Metrics
	events  events.Publisher
	log     *logger.Logger
	now     func() time.Time
	tracer  trace.Tracer
}

// Result is the outcome of classifying one frame.
type Result struct {
	UserID              string
	State               classifier.State
	Category            classifier.Category
	AttentionPercentage int
	// Confidence is in [0,1].
	Confidence   float64
	StateSinceMs int64
	Measurements features.FeatureVector
	TimestampMs  int64

	Transition *session.TransitionRecord
	Calibrated bool
}

func New(store *session.Store, detector vision.Detector, opts Options) *Pipeline {
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 8
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{
		store:          store,
		detector:       detector,
		mode:           opts.Mode,
		cascade:        classifier.Cascade(opts.Mode),
		sem:            semaphore.NewWeighted(int64(opts.MaxConcurrency)),
		acquireTimeout: opts.AcquireTimeout,
		decode:         vision.DecodeOptions{MaxSide: opts.MaxImageSide, MaxPixels: opts.MaxImagePixels},
		metrics:        opts.Metrics,
		events:         opts.Events,
		log:            opts.Log.With("component", "pipeline"),
		now:            opts.Now,
		tracer:         otel.Tracer("rtc-attention/pipeline"),
	}
}

func (p *Pipeline) Store() *session.Store { return p.store }

func (p *Pipeline) acquire(ctx context.Context) (func(), error) {
	actx := ctx
	if p.acquireTimeout > 0 {
		var cancel context.CancelFunc
		actx, cancel = context.WithTimeout(ctx, p.acquireTimeout)
		defer cancel()
	}
	if err := p.sem.Acquire(actx, 1); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBusy, err)
	}
	p.metrics.InflightInc()
	return func() {
		p.metrics.InflightDec()
		p.sem.Release(1)
	}, nil
}

// Classify records one frame for userID. It only fails when the
// concurrency gate cannot be entered.
func (p *Pipeline) Classify(ctx context.Context, userID string, frame features.Frame) (Result, error) {
	release, err := p.acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer release()
	return p.classify(ctx, userID, frame), nil
}

// ClassifyImage decodes payload, runs the detector and classifies the
// resulting frame.
func (p *Pipeline) ClassifyImage(ctx context.Context, userID, payload string) (Result, error) {
	release, err := p.acquire(ctx)
	if err != nil {
		return Result{}, err
	}
	defer release()

	ctx, span := p.tracer.Start(ctx, "attention.classify_image")
	defer span.End()

	frame, err := p.frame(ctx, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}
	return p.classify(ctx, userID, frame), nil
}

// Calibrate decodes payload and tries to set the user's lighting baseline.
// It reports false when the face is not clear enough or a baseline is
// already set.
func (p *Pipeline) Calibrate(ctx context.Context, userID, payload string) (bool, error) {
	release, err := p.acquire(ctx)
	if err != nil {
		return false, err
	}
	defer release()

	ctx, span := p.tracer.Start(ctx, "attention.calibrate")
	defer span.End()

	frame, err := p.frame(ctx, payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}
	fv := features.Extract(frame)
	fv.CapturedAt = p.now()
	ok := p.store.Calibrate(userID, fv)
	span.SetAttributes(attribute.Bool("attention.calibrated", ok))
	return ok, nil
}

func (p *Pipeline) frame(ctx context.Context, payload string) (features.Frame, error) {
	if p.detector == nil {
		return features.Frame{}, vision.ErrNoDetector
	}

	start := time.Now()
	img, err := vision.DecodeFrame(payload, p.decode)
	p.metrics.ObserveStage("decode", time.Since(start))
	if err != nil {
		return features.Frame{}, err
	}

	start = time.Now()
	det, err := p.detector.Detect(ctx, img)
	p.metrics.ObserveStage("detect", time.Since(start))
	if err != nil {
		var de *vision.DetectorError
		if errors.As(err, &de) {
			p.metrics.IncDetectorError(de.Detector)
		}
		return features.Frame{}, err
	}
	return det.Frame(img), nil
}

func (p *Pipeline) classify(ctx context.Context, userID string, frame features.Frame) Result {
	ctx, span := p.tracer.Start(ctx, "attention.classify")
	defer span.End()

	start := time.Now()
	now := p.now()

	fv := features.Extract(frame)
	fv.CapturedAt = now
	state := p.cascade(fv)

	rec := p.store.Record(userID, fv, state)

	var window []features.FeatureVector
	if rec.PriorMeasurements > 0 {
		window = rec.Window
	}
	confidence := classifier.ConfidenceFor(p.mode, window, state)

	res := Result{
		UserID:              userID,
		State:               rec.State,
		Category:            rec.State.Category(),
		AttentionPercentage: rec.State.Percentage(),
		Confidence:          confidence,
		StateSinceMs:        rec.StateSinceMs,
		Measurements:        fv,
		TimestampMs:         now.UnixMilli(),
		Transition:          rec.Transition,
		Calibrated:          rec.Calibrated,
	}

	span.SetAttributes(
		attribute.String("attention.state", string(res.State)),
		attribute.Float64("attention.confidence", confidence),
		attribute.Bool("attention.session_created", rec.Created),
	)
	p.metrics.ObserveStage("classify", time.Since(start))
	p.metrics.ObserveClassification(string(res.State))
	if rec.Changed() {
		p.metrics.ObserveTransition(string(rec.Previous), string(rec.State))
		p.log.Debug("attention state changed",
			append([]any{"user_id", userID, "from", rec.Previous, "to", rec.State}, ctxutil.LogFields(ctx)...)...)
	}
	if rec.Calibrated {
		p.log.Info("calibration baseline captured", "user_id", userID, "brightness", fv.Brightness)
	}

	p.publish(ctx, res)
	p.evict()
	return res
}

func (p *Pipeline) publish(ctx context.Context, res Result) {
	if p.events == nil {
		return
	}
	msg, err := events.NewAttentionMessage(events.AttentionUpdate{
		UserID:              res.UserID,
		AttentionState:      string(res.State),
		AttentionCategory:   string(res.Category),
		AttentionPercentage: res.AttentionPercentage,
		Confidence:          PresentConfidence(res.Confidence),
		StateSince:          res.StateSinceMs,
		Timestamp:           res.TimestampMs,
	})
	if err != nil {
		p.log.Warn("failed to build attention update", "error", err)
		return
	}
	if err := p.events.Publish(ctx, msg); err != nil {
		p.log.Warn("failed to publish attention update",
			append([]any{"user_id", res.UserID, "error", err}, ctxutil.LogFields(ctx)...)...)
	}
}

// Evict runs an eviction pass when one is due and records the outcome.
func (p *Pipeline) Evict() session.EvictionReport {
	return p.evict()
}

func (p *Pipeline) evict() session.EvictionReport {
	rep := p.store.Evict()
	if rep.Ran {
		p.metrics.AddEvictions("idle", rep.Idle)
		p.metrics.AddEvictions("overflow", rep.Overflow)
		if rep.Idle+rep.Overflow > 0 {
			p.log.Info("evicted sessions", "idle", rep.Idle, "overflow", rep.Overflow, "remaining", rep.Remaining)
		}
	}
	p.metrics.SetSessions(p.store.Len())
	return rep
}

// Janitor runs eviction passes every interval until ctx ends, so idle
// sessions are dropped even when no frames arrive.
func (p *Pipeline) Janitor(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = time.Minute
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			p.evict()
		}
	}
}
