package features

import "math"

const (
	// Confidence assigned to a face seen only by the mesh model.
	meshConfidence  = 0.8
	meshFloorFactor = 0.8

	centerDistanceLimit = 0.8
	centerDistanceSpan  = 0.2
	minAreaRatio        = 0.03
	minAspectRatio      = 0.6
)

// FacePresence scores how clearly a usable face is in frame, 0-100.
func FacePresence(f Frame) float64 {
	meshSeen := len(f.Landmarks) > 0
	if f.FaceBox == nil && !meshSeen {
		return 0
	}

	c := canvasFor(f)
	box := f.FaceBox
	confidence := clamp(f.FaceBoxConfidence, 0, 1)
	if box == nil {
		synth := landmarkBox(f.Landmarks, c)
		box = &synth
		confidence = meshConfidence
	}

	cx := box.XMin + box.Width/2
	cy := box.YMin + box.Height/2
	relX := (cx - c.w/2) / (c.w/2 + eps)
	relY := (cy - c.h/2) / (c.h/2 + eps)
	centerDistance := math.Hypot(relX, relY)

	areaRatio := (box.Width * box.Height) / (c.w*c.h + eps)
	aspect := box.Width / math.Max(box.Height, eps)

	adjusted := confidence
	if centerDistance > centerDistanceLimit {
		adjusted *= clamp(1-(centerDistance-centerDistanceLimit)/centerDistanceSpan, 0, 1)
	}
	if areaRatio < minAreaRatio {
		adjusted *= clamp(areaRatio/minAreaRatio, 0, 1)
	}
	if aspect < minAspectRatio {
		adjusted *= clamp(aspect/minAspectRatio, 0, 1)
	}

	if meshSeen {
		adjusted = math.Max(adjusted, meshConfidence*meshFloorFactor)
	}

	return clamp(adjusted*100, 0, 100)
}

// landmarkBox is the pixel bounding extent of a landmark set.
func landmarkBox(points []Point, c canvas) BoundingBox {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		v := c.px(p)
		minX = math.Min(minX, v.x)
		minY = math.Min(minY, v.y)
		maxX = math.Max(maxX, v.x)
		maxY = math.Max(maxY, v.y)
	}
	return BoundingBox{
		XMin:   minX,
		YMin:   minY,
		Width:  maxX - minX,
		Height: maxY - minY,
	}
}
