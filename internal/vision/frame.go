package vision

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

const (
	DefaultMaxSide   = 640
	DefaultMaxPixels = 4096 * 4096
)

// ErrImageTooLarge is wrapped in a *DecodeError when the header declares
// more pixels than DecodeOptions.MaxPixels.
var ErrImageTooLarge = errors.New("image exceeds pixel limit")

type DecodeOptions struct {
	// MaxSide bounds the copy brightness and contrast are measured on.
	MaxSide int
	// MaxPixels bounds width*height as declared by the image header.
	MaxPixels int
}

// DecodeFrame accepts a base64 payload, bare or as a data URL, and returns
// the decoded image with its grayscale brightness (mean) and contrast
// (standard deviation) on a 0-255 scale.
//
// EXIF orientation is not applied: Width and Height describe the stored
// pixel grid, which is what the detectors receive in Bytes.
func DecodeFrame(payload string, opts DecodeOptions) (Image, error) {
	if opts.MaxSide <= 0 {
		opts.MaxSide = DefaultMaxSide
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = DefaultMaxPixels
	}

	raw, err := decodePayload(payload)
	if err != nil {
		return Image{}, err
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(raw))
	if err != nil {
		return Image{}, &DecodeError{Op: "decode config", Err: err}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Image{}, &DecodeError{Op: "decode config", Err: errors.New("empty image dimensions")}
	}
	if int64(cfg.Width)*int64(cfg.Height) > int64(opts.MaxPixels) {
		return Image{}, &DecodeError{
			Op:  "decode config",
			Err: fmt.Errorf("%w: %dx%d > %d", ErrImageTooLarge, cfg.Width, cfg.Height, opts.MaxPixels),
		}
	}

	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return Image{}, &DecodeError{Op: "decode image", Err: err}
	}

	bounds := img.Bounds()
	small := img
	if bounds.Dx() > opts.MaxSide || bounds.Dy() > opts.MaxSide {
		small = imaging.Fit(img, opts.MaxSide, opts.MaxSide, imaging.Box)
	}
	brightness, contrast := grayStats(imaging.Grayscale(small))

	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		width, height = cfg.Width, cfg.Height
	}

	return Image{
		Bytes:      raw,
		Format:     format,
		Width:      width,
		Height:     height,
		Brightness: brightness,
		Contrast:   contrast,
	}, nil
}

func decodePayload(payload string) ([]byte, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, &DecodeError{Op: "read payload", Err: errors.New("empty image")}
	}
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 || !strings.Contains(payload[:comma], ";base64") {
			return nil, &DecodeError{Op: "read payload", Err: errors.New("unsupported data url")}
		}
		payload = payload[comma+1:]
	}

	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		raw, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	}
	if err != nil {
		return nil, &DecodeError{Op: "base64", Err: err}
	}
	if len(raw) == 0 {
		return nil, &DecodeError{Op: "base64", Err: errors.New("empty image")}
	}
	return raw, nil
}

// grayStats reads the red channel of an already-grayscale image.
func grayStats(img *image.NRGBA) (mean, std float64) {
	b := img.Bounds()
	n := float64(b.Dx() * b.Dy())
	if n == 0 {
		return 0, 0
	}
	var sum, sumSq float64
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			v := float64(row[x])
			sum += v
			sumSq += v * v
		}
	}
	mean = sum / n
	variance := sumSq/n - mean*mean
	if variance < 0 {
		variance = 0
	}
	return mean, math.Sqrt(variance)
}
