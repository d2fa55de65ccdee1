package gcv

import (
	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/yungbote/rtc-attention/internal/attention/features"
)

type lm = visionpb.FaceAnnotation_Landmark_Type

// Single-point landmarks with a direct mesh slot.
var directSlots = map[lm]int{
	visionpb.FaceAnnotation_Landmark_RIGHT_EAR_TRAGION: 234,
	visionpb.FaceAnnotation_Landmark_LEFT_EAR_TRAGION:  454,
	visionpb.FaceAnnotation_Landmark_FOREHEAD_GLABELLA: 10,
	visionpb.FaceAnnotation_Landmark_CHIN_GNATHION:     152,
}

type eyeLandmarks struct {
	cornerA, cornerB lm
	top, bottom      lm
	contour          []int
	// outer is the mesh slot for the eye's outermost corner, and
	// outerIsMaxX tells which of the two corners that is in image space.
	outer       int
	outerIsMaxX bool
}

var eyes = []eyeLandmarks{
	{
		cornerA:     visionpb.FaceAnnotation_Landmark_RIGHT_EYE_LEFT_CORNER,
		cornerB:     visionpb.FaceAnnotation_Landmark_RIGHT_EYE_RIGHT_CORNER,
		top:         visionpb.FaceAnnotation_Landmark_RIGHT_EYE_TOP_BOUNDARY,
		bottom:      visionpb.FaceAnnotation_Landmark_RIGHT_EYE_BOTTOM_BOUNDARY,
		contour:     features.RightEyeIndices[:6],
		outer:       33,
		outerIsMaxX: false,
	},
	{
		cornerA:     visionpb.FaceAnnotation_Landmark_LEFT_EYE_LEFT_CORNER,
		cornerB:     visionpb.FaceAnnotation_Landmark_LEFT_EYE_RIGHT_CORNER,
		top:         visionpb.FaceAnnotation_Landmark_LEFT_EYE_TOP_BOUNDARY,
		bottom:      visionpb.FaceAnnotation_Landmark_LEFT_EYE_BOTTOM_BOUNDARY,
		contour:     features.LeftEyeIndices[:6],
		outer:       263,
		outerIsMaxX: true,
	},
}

// meshFromLandmarks builds a sparse features.MeshSize mesh. Every eye contour
// is laid out so that its aspect ratio equals the eye's height over width:
// p0/p3 are the corners, p1 and p2 the top boundary, p4 and p5 the bottom.
// Returns nil when any landmark the features need is missing.
func meshFromLandmarks(lms []*visionpb.FaceAnnotation_Landmark, box features.BoundingBox, w, h float64) []features.Point {
	pos := make(map[lm]features.Point, len(lms))
	for _, l := range lms {
		p := l.GetPosition()
		if p == nil {
			continue
		}
		pos[l.GetType()] = features.Point{X: float64(p.GetX()) / w, Y: float64(p.GetY()) / h}
	}

	center := features.Point{
		X: (box.XMin + box.Width/2) / w,
		Y: (box.YMin + box.Height/2) / h,
	}
	mesh := make([]features.Point, features.MeshSize)
	for i := range mesh {
		mesh[i] = center
	}

	for t, slot := range directSlots {
		p, ok := pos[t]
		if !ok {
			return nil
		}
		mesh[slot] = p
	}

	for _, e := range eyes {
		a, okA := pos[e.cornerA]
		b, okB := pos[e.cornerB]
		top, okT := pos[e.top]
		bottom, okBt := pos[e.bottom]
		if !okA || !okB || !okT || !okBt {
			return nil
		}
		lo, hi := a, b
		if hi.X < lo.X {
			lo, hi = hi, lo
		}

		c := e.contour
		mesh[c[0]], mesh[c[3]] = lo, hi
		mesh[c[1]], mesh[c[2]] = top, top
		mesh[c[4]], mesh[c[5]] = bottom, bottom

		if e.outerIsMaxX {
			mesh[e.outer] = hi
		} else {
			mesh[e.outer] = lo
		}
	}
	return mesh
}
