package repository

import (
	"context"
	"image"

	"go-tag-detector/pkg/models"
)

// ImageRepository defines the interface for image data access operations
type ImageRepository interface {
	// LoadImage reads and decodes the image at a location
	LoadImage(ctx context.Context, location string) (image.Image, error)

	// SaveImage encodes and writes an image, the format follows the extension
	SaveImage(ctx context.Context, location string, img image.Image) error

	// ValidateSource checks that images can be read from a location
	ValidateSource(location string) error

	// ValidateDestination checks that images can be written to a location
	ValidateDestination(location string) error
}

// DetectionRepository records published detection arrays
type DetectionRepository interface {
	// SaveDetections stores an array published on topic and returns its id
	SaveDetections(ctx context.Context, topic string, detections models.AprilTagDetectionArray) (int64, error)

	// GetDetections retrieves a stored array by id
	GetDetections(ctx context.Context, id int64) (*models.HistoryEntry, error)

	// ListRecent returns the newest arrays first
	ListRecent(ctx context.Context, limit int) ([]models.HistoryEntry, error)

	// ListByTag returns the newest arrays that contain the tag id
	ListByTag(ctx context.Context, tagID int, limit int) ([]models.HistoryEntry, error)

	Close() error
}
