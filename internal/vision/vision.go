// Package vision turns an encoded still image into the frame signal the
// attention pipeline consumes: decode, image statistics, and face detection
// through a pluggable Detector.
package vision

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/rtc-attention/internal/attention/features"
)

var ErrNoDetector = errors.New("vision: no detector configured")

// Image is a decoded still frame. Bytes keeps the original encoding for
// detectors that want to re-upload it.
type Image struct {
	Bytes  []byte
	Format string
	Width  int
	Height int

	Brightness float64
	Contrast   float64
}

// Detection is one detector's view of a frame. Box is in pixels; Landmarks
// are normalized to the image size. Either may be missing.
type Detection struct {
	Box        *features.BoundingBox
	Confidence float64
	Landmarks  []features.Point
}

type Detector interface {
	Detect(ctx context.Context, img Image) (Detection, error)
	Close() error
}

// Frame combines the image statistics and detection into the extractor input.
func (d Detection) Frame(img Image) features.Frame {
	return features.Frame{
		Brightness:        img.Brightness,
		Contrast:          img.Contrast,
		ImageWidth:        img.Width,
		ImageHeight:       img.Height,
		FaceBox:           d.Box,
		FaceBoxConfidence: d.Confidence,
		Landmarks:         d.Landmarks,
	}
}

// DetectorError wraps a failed detector call.
type DetectorError struct {
	Detector string
	Err      error
}

func (e *DetectorError) Error() string {
	return fmt.Sprintf("vision: %s detector: %v", e.Detector, e.Err)
}

func (e *DetectorError) Unwrap() error { return e.Err }

// DecodeError reports a payload that could not be turned into an image.
type DecodeError struct {
	Op  string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("vision: %s: %v", e.Op, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
