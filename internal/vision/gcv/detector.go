// Package gcv detects faces with Google Cloud Vision. Cloud Vision reports a
// few dozen named landmarks rather than a dense mesh, so the named points
// are placed at their mesh indices and the remaining slots are filled with
// the face-box center.
package gcv

import (
	"context"
	"errors"
	"fmt"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/yungbote/rtc-attention/internal/attention/features"
	"github.com/yungbote/rtc-attention/internal/platform/ctxutil"
	"github.com/yungbote/rtc-attention/internal/platform/gcp"
	"github.com/yungbote/rtc-attention/internal/platform/logger"
	attnvision "github.com/yungbote/rtc-attention/internal/vision"
)

type Detector struct {
	log     *logger.Logger
	client  *vision.ImageAnnotatorClient
	timeout time.Duration
}

func New(ctx context.Context, log *logger.Logger, timeout time.Duration) (*Detector, error) {
	if log == nil {
		return nil, errors.New("logger required")
	}
	client, err := vision.NewImageAnnotatorClient(ctx, gcp.ClientOptionsFromEnv()...)
	if err != nil {
		return nil, fmt.Errorf("vision client: %w", err)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Detector{
		log:     log.With("service", "gcv.Detector"),
		client:  client,
		timeout: timeout,
	}, nil
}

func (d *Detector) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *Detector) Detect(ctx context.Context, img attnvision.Image) (attnvision.Detection, error) {
	ctx = ctxutil.Default(ctx)
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req := &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: img.Bytes},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_FACE_DETECTION, MaxResults: 1}},
		}},
	}
	resp, err := d.client.BatchAnnotateImages(ctx, req)
	if err != nil {
		return attnvision.Detection{}, &attnvision.DetectorError{Detector: "gcv", Err: fmt.Errorf("BatchAnnotateImages: %w", err)}
	}
	if resp == nil || len(resp.Responses) == 0 || resp.Responses[0] == nil {
		return attnvision.Detection{}, nil
	}
	r0 := resp.Responses[0]
	if r0.Error != nil && r0.Error.Message != "" {
		return attnvision.Detection{}, &attnvision.DetectorError{Detector: "gcv", Err: errors.New(r0.Error.Message)}
	}
	if len(r0.FaceAnnotations) == 0 {
		return attnvision.Detection{}, nil
	}
	if len(r0.FaceAnnotations) > 1 {
		d.log.Debug("multiple faces detected; using the first", "faces", len(r0.FaceAnnotations))
	}
	return FromAnnotation(r0.FaceAnnotations[0], img.Width, img.Height), nil
}

// FromAnnotation converts one face annotation. width and height are the
// image size in pixels.
func FromAnnotation(fa *visionpb.FaceAnnotation, width, height int) attnvision.Detection {
	if fa == nil {
		return attnvision.Detection{}
	}
	det := attnvision.Detection{Confidence: float64(fa.GetDetectionConfidence())}

	poly := fa.GetFdBoundingPoly()
	if len(poly.GetVertices()) == 0 {
		poly = fa.GetBoundingPoly()
	}
	det.Box = boxFromPoly(poly)

	if width > 0 && height > 0 && det.Box != nil {
		det.Landmarks = meshFromLandmarks(fa.GetLandmarks(), *det.Box, float64(width), float64(height))
	}
	return det
}

func boxFromPoly(poly *visionpb.BoundingPoly) *features.BoundingBox {
	vs := poly.GetVertices()
	if len(vs) == 0 {
		return nil
	}
	minX, minY := float64(vs[0].GetX()), float64(vs[0].GetY())
	maxX, maxY := minX, minY
	for _, v := range vs[1:] {
		x, y := float64(v.GetX()), float64(v.GetY())
		minX, maxX = min(minX, x), max(maxX, x)
		minY, maxY = min(minY, y), max(maxY, y)
	}
	if maxX <= minX || maxY <= minY {
		return nil
	}
	return &features.BoundingBox{XMin: minX, YMin: minY, Width: maxX - minX, Height: maxY - minY}
}
