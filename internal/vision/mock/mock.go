// Package mock is a deterministic detector for local runs and tests. It
// ignores the image content and reports a fixed synthetic face.
package mock

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/yungbote/rtc-attention/internal/attention/features"
	"github.com/yungbote/rtc-attention/internal/attention/features/synth"
	"github.com/yungbote/rtc-attention/internal/vision"
)

type profile struct {
	face    synth.Face
	noFace  bool
	boxConf float64
}

var profiles = map[string]profile{
	"attentive": {face: synth.Face{EAR: 0.4}, boxConf: 0.95},
	"drowsy":    {face: synth.Face{EAR: 0.2, Pitch: 0.15}, boxConf: 0.9},
	"sleeping":  {face: synth.Face{EAR: 0.05, Pitch: 0.35, Roll: 32}, boxConf: 0.9},
	"away":      {face: synth.Face{EAR: 0.4, Yaw: 0.7}, boxConf: 0.9},
	"absent":    {noFace: true},
}

// Profiles lists the supported profile names.
func Profiles() []string {
	out := make([]string, 0, len(profiles))
	for name := range profiles {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type Detector struct {
	name string
	p    profile
}

func New(name string) (*Detector, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "attentive"
	}
	p, ok := profiles[name]
	if !ok {
		return nil, fmt.Errorf("mock detector: unknown profile %q (want one of %s)", name, strings.Join(Profiles(), ", "))
	}
	return &Detector{name: name, p: p}, nil
}

func (d *Detector) Profile() string { return d.name }

func (d *Detector) Detect(ctx context.Context, img vision.Image) (vision.Detection, error) {
	if err := ctx.Err(); err != nil {
		return vision.Detection{}, err
	}
	if d.p.noFace {
		return vision.Detection{}, nil
	}

	w, h := float64(img.Width), float64(img.Height)
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	face := d.p.face
	face.Aspect = w / h
	return vision.Detection{
		Box: &features.BoundingBox{
			XMin:   0.3 * w,
			YMin:   0.25 * h,
			Width:  0.4 * w,
			Height: 0.5 * h,
		},
		Confidence: d.p.boxConf,
		Landmarks:  synth.Mesh(face),
	}, nil
}

func (d *Detector) Close() error { return nil }
