// Package features turns one frame of detector output into the numeric
// signals the attention classifier works on.
package features

import "time"

// Point is a face-mesh landmark in normalized image coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// BoundingBox is a face box in pixels.
type BoundingBox struct {
	XMin   float64 `json:"xmin"`
	YMin   float64 `json:"ymin"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Frame is the raw signal for one still frame.
//
// ImageWidth/ImageHeight are the pixel dimensions the box and landmarks refer
// to. When they are zero the box and landmarks are both taken to be in a unit
// square.
type Frame struct {
	Brightness float64
	Contrast   float64

	ImageWidth  int
	ImageHeight int

	FaceBox           *BoundingBox
	FaceBoxConfidence float64

	Landmarks []Point
}

func (f Frame) HasFace() bool {
	return f.FaceBox != nil || len(f.Landmarks) > 0
}

type HeadPose struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// FeatureVector holds the derived behavioral signals for one frame.
type FeatureVector struct {
	FacePresence    float64 `json:"facePresence"`
	EyeOpenness     float64 `json:"eyeOpenness"`
	LookingScore    float64 `json:"lookingScore"`
	DrowsinessScore float64 `json:"drowsinessScore"`
	SleepingScore   float64 `json:"sleepingScore"`
	Sleeping        bool    `json:"sleeping"`
	Brightness      float64 `json:"brightness"`
	Contrast        float64 `json:"contrast"`

	Pose     HeadPose `json:"headPose"`
	LeftEAR  float64  `json:"leftEar"`
	RightEAR float64  `json:"rightEar"`

	CapturedAt time.Time `json:"capturedAt"`
}
