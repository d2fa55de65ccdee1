package gcv

import (
	"math"
	"testing"

	visionpb "cloud.google.com/go/vision/v2/apiv1/visionpb"

	"github.com/yungbote/rtc-attention/internal/attention/classifier"
	"github.com/yungbote/rtc-attention/internal/attention/features"
	attnvision "github.com/yungbote/rtc-attention/internal/vision"
)

func landmark(t visionpb.FaceAnnotation_Landmark_Type, x, y float32) *visionpb.FaceAnnotation_Landmark {
	return &visionpb.FaceAnnotation_Landmark{Type: t, Position: &visionpb.Position{X: x, Y: y}}
}

// frontalFace is a level, centered face in a 400x400 image with eyes 40px
// wide and 16px tall (EAR 0.4).
func frontalFace() *visionpb.FaceAnnotation {
	return &visionpb.FaceAnnotation{
		DetectionConfidence: 0.97,
		FdBoundingPoly: &visionpb.BoundingPoly{Vertices: []*visionpb.Vertex{
			{X: 120, Y: 100}, {X: 280, Y: 100}, {X: 280, Y: 300}, {X: 120, Y: 300},
		}},
		Landmarks: []*visionpb.FaceAnnotation_Landmark{
			landmark(visionpb.FaceAnnotation_Landmark_RIGHT_EYE_LEFT_CORNER, 140, 180),
			landmark(visionpb.FaceAnnotation_Landmark_RIGHT_EYE_RIGHT_CORNER, 180, 180),
			landmark(visionpb.FaceAnnotation_Landmark_RIGHT_EYE_TOP_BOUNDARY, 160, 172),
			landmark(visionpb.FaceAnnotation_Landmark_RIGHT_EYE_BOTTOM_BOUNDARY, 160, 188),
			landmark(visionpb.FaceAnnotation_Landmark_LEFT_EYE_LEFT_CORNER, 220, 180),
			landmark(visionpb.FaceAnnotation_Landmark_LEFT_EYE_RIGHT_CORNER, 260, 180),
			landmark(visionpb.FaceAnnotation_Landmark_LEFT_EYE_TOP_BOUNDARY, 240, 172),
			landmark(visionpb.FaceAnnotation_Landmark_LEFT_EYE_BOTTOM_BOUNDARY, 240, 188),
			landmark(visionpb.FaceAnnotation_Landmark_RIGHT_EAR_TRAGION, 120, 200),
			landmark(visionpb.FaceAnnotation_Landmark_LEFT_EAR_TRAGION, 280, 200),
			landmark(visionpb.FaceAnnotation_Landmark_FOREHEAD_GLABELLA, 200, 140),
			landmark(visionpb.FaceAnnotation_Landmark_CHIN_GNATHION, 200, 260),
		},
	}
}

func TestFromAnnotationBuildsMesh(t *testing.T) {
	det := FromAnnotation(frontalFace(), 400, 400)
	if det.Box == nil || det.Box.XMin != 120 || det.Box.Width != 160 || det.Box.Height != 200 {
		t.Fatalf("box=%+v", det.Box)
	}
	if len(det.Landmarks) != features.MeshSize {
		t.Fatalf("landmarks=%d", len(det.Landmarks))
	}
	if p := det.Landmarks[33]; p.X != 140.0/400 {
		t.Fatalf("right outer corner=%+v", p)
	}
	if p := det.Landmarks[263]; p.X != 260.0/400 {
		t.Fatalf("left outer corner=%+v", p)
	}

	img := attnvision.Image{Width: 400, Height: 400, Brightness: 110, Contrast: 40}
	f := det.Frame(img)
	left, right := features.EyeRatios(f)
	if math.Abs(left-0.4) > 1e-3 || math.Abs(right-0.4) > 1e-3 {
		t.Fatalf("ears=%v/%v", left, right)
	}

	pose := features.HeadOrientation(f)
	if math.Abs(pose.Yaw) > 1e-9 || math.Abs(pose.Roll) > 1e-9 {
		t.Fatalf("pose=%+v", pose)
	}
	if got := classifier.Classify(features.Extract(f)); got != classifier.Attentive {
		t.Fatalf("state=%s", got)
	}
}

func TestFromAnnotationMissingLandmarks(t *testing.T) {
	fa := frontalFace()
	fa.Landmarks = fa.Landmarks[:4]

	det := FromAnnotation(fa, 400, 400)
	if det.Box == nil {
		t.Fatalf("box should survive")
	}
	if det.Landmarks != nil {
		t.Fatalf("expected no mesh, got %d points", len(det.Landmarks))
	}
}

func TestFromAnnotationNil(t *testing.T) {
	if det := FromAnnotation(nil, 10, 10); det.Box != nil || det.Landmarks != nil {
		t.Fatalf("det=%+v", det)
	}
}
