package detector

import (
	"context"
	"image"

	"go-tag-detector/pkg/models"
)

// TagDetector finds fiducial tags in an image and estimates their pose
type TagDetector interface {
	// DetectTags returns every reported tag with its pose in the camera frame
	DetectTags(ctx context.Context, img image.Image, cameraInfo models.CameraInfo) (models.AprilTagDetectionArray, error)

	// DrawDetections returns a copy of img with the detections outlined
	DrawDetections(img image.Image, detections models.AprilTagDetectionArray) image.Image

	// Lifecycle management
	Close() error
}

// PoolStatsReporter is implemented by detectors that estimate poses on a
// worker pool
type PoolStatsReporter interface {
	PoolStats() PoolStats
}

// MarkerFinder locates tag markers in a grayscale image
type MarkerFinder interface {
	FindMarkers(ctx context.Context, gray *image.Gray) ([]RawMarker, error)
	Close() error
}

// RawMarker is a decoded marker before filtering and pose estimation.
// Corners wrap counter-clockwise starting at the tag's (-s/2, -s/2) corner.
type RawMarker struct {
	ID      int
	Hamming int
	Corners [4]models.Pixel
}
