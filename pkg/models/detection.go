package models

import "time"

// DefaultFrameID is the frame every detection array is expressed in
const DefaultFrameID = "camera"

// Header stamps a published message
type Header struct {
	Seq     uint64    `json:"seq"`
	Stamp   time.Time `json:"stamp"`
	FrameID string    `json:"frame_id"`
}

// CameraInfo is the calibration record of the camera that took the image.
// It is handed to the detector unchanged.
type CameraInfo struct {
	Header          Header      `json:"header"`
	Height          uint32      `json:"height"`
	Width           uint32      `json:"width"`
	DistortionModel string      `json:"distortion_model,omitempty"`
	D               []float64   `json:"D,omitempty"`
	K               [9]float64  `json:"K"`
	R               [9]float64  `json:"R"`
	P               [12]float64 `json:"P"`
	BinningX        uint32      `json:"binning_x,omitempty"`
	BinningY        uint32      `json:"binning_y,omitempty"`
}

// Intrinsics returns fx, fy, cx, cy of the (rectified) camera.
// The projection matrix wins over K when it is populated.
func (c CameraInfo) Intrinsics() (fx, fy, cx, cy float64) {
	if c.P != ([12]float64{}) {
		return c.P[0], c.P[5], c.P[2], c.P[6]
	}
	return c.K[0], c.K[4], c.K[2], c.K[5]
}

// Point is a position in meters
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is an orientation
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// Pose is a position and orientation
type Pose struct {
	Position    Point      `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

// PoseWithCovariance carries a row-major 6x6 covariance next to the pose
type PoseWithCovariance struct {
	Pose       Pose        `json:"pose"`
	Covariance [36]float64 `json:"covariance"`
}

// PoseWithCovarianceStamped is a pose with its header
type PoseWithCovarianceStamped struct {
	Header Header             `json:"header"`
	Pose   PoseWithCovariance `json:"pose"`
}

// AprilTagDetection describes one detected tag (or bundle) and its pose
// relative to the camera frame.
type AprilTagDetection struct {
	ID   []int                     `json:"id"`
	Size []float64                 `json:"size"`
	Pose PoseWithCovarianceStamped `json:"pose"`

	// Corners and Center are in full resolution pixel coordinates. They are
	// used for drawing and are not part of the published message.
	Corners [4]Pixel `json:"-"`
	Center  Pixel    `json:"-"`
}

// Pixel is an image coordinate with subpixel precision
type Pixel struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// AprilTagDetectionArray is what a single image analysis yields and what is
// published on the tag detections channel
type AprilTagDetectionArray struct {
	Header     Header              `json:"header"`
	Detections []AprilTagDetection `json:"detections"`
}

// Len returns the number of detections
func (a AprilTagDetectionArray) Len() int {
	return len(a.Detections)
}
