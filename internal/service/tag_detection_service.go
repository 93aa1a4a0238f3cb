package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go-tag-detector/internal/broadcast"
	"go-tag-detector/internal/detector"
	apperrors "go-tag-detector/internal/errors"
	"go-tag-detector/internal/logger"
	"go-tag-detector/internal/repository"
	"go-tag-detector/pkg/models"
)

// couldNotReadImage is reported to the caller when the source image is unusable
const couldNotReadImage = "could not read image"

// TagDetectionService answers single image tag detection requests
type TagDetectionService interface {
	// AnalyzeSingleImage loads the source image, detects tags, publishes the
	// detections, then writes the annotated image to the destination. A
	// source that cannot be read is reported with Success=false and nothing
	// is published or written.
	AnalyzeSingleImage(ctx context.Context, request models.AnalyzeSingleImageRequest) (*models.AnalyzeSingleImageResponse, error)
}

// tagDetectionService implements TagDetectionService
type tagDetectionService struct {
	imageRepo    repository.ImageRepository
	detector     detector.TagDetector
	publisher    broadcast.Publisher
	events       broadcast.Subject
	newRequestID func() string
}

// NewTagDetectionService creates a new tag detection service. events may be nil.
func NewTagDetectionService(
	imageRepository repository.ImageRepository,
	tagDetector detector.TagDetector,
	publisher broadcast.Publisher,
	events broadcast.Subject,
) TagDetectionService {
	return &tagDetectionService{
		imageRepo:    imageRepository,
		detector:     tagDetector,
		publisher:    publisher,
		events:       events,
		newRequestID: uuid.NewString,
	}
}

func (s *tagDetectionService) AnalyzeSingleImage(ctx context.Context, request models.AnalyzeSingleImageRequest) (*models.AnalyzeSingleImageResponse, error) {
	start := time.Now()
	requestID := s.newRequestID()
	log := logger.WithField("request_id", requestID)

	log.Info("Summoned to analyze image")
	log.WithField("image_load_path", request.FullPathWhereToGetImage).Info("Image load path")
	log.WithField("image_save_path", request.FullPathWhereToSaveImage).Info("Image save path")
	s.notify(ctx, broadcast.AnalysisEvent{EventType: broadcast.AnalysisStarted, RequestID: requestID, ImagePath: request.FullPathWhereToGetImage})

	img, err := s.imageRepo.LoadImage(ctx, request.FullPathWhereToGetImage)
	if err != nil {
		log.WithError(err).WithField("image_load_path", request.FullPathWhereToGetImage).Error("Could not read image")
		s.notifyFailure(ctx, broadcast.ImageLoadFailed, requestID, request, start, err)
		return &models.AnalyzeSingleImageResponse{
			RequestID: requestID,
			Success:   false,
			Message:   couldNotReadImage,
		}, nil
	}

	detections, err := s.detector.DetectTags(ctx, img, request.CameraInfo)
	if err != nil {
		s.notifyFailure(ctx, broadcast.AnalysisFailed, requestID, request, start, err)
		return nil, asAppError(err, apperrors.NewDetectionError, "tag detection failed")
	}

	if err := s.publisher.Publish(ctx, detections); err != nil {
		s.notifyFailure(ctx, broadcast.AnalysisFailed, requestID, request, start, err)
		return nil, asAppError(err, apperrors.NewPublishError, "failed to publish tag detections")
	}

	annotated := s.detector.DrawDetections(img, detections)
	if err := s.imageRepo.SaveImage(ctx, request.FullPathWhereToSaveImage, annotated); err != nil {
		s.notifyFailure(ctx, broadcast.AnalysisFailed, requestID, request, start, err)
		return nil, asAppError(err, apperrors.NewStorageError, "failed to write annotated image")
	}

	elapsed := time.Since(start)
	log.WithFields(logrus.Fields{
		"detections":         detections.Len(),
		"seq":                detections.Header.Seq,
		"processing_time_ms": elapsed.Milliseconds(),
	}).Info("Done!")
	s.notify(ctx, broadcast.AnalysisEvent{
		EventType:      broadcast.AnalysisCompleted,
		RequestID:      requestID,
		ImagePath:      request.FullPathWhereToGetImage,
		ProcessingTime: elapsed,
		Success:        true,
		Metadata:       map[string]interface{}{"detections": detections.Len()},
	})

	return &models.AnalyzeSingleImageResponse{
		RequestID:     requestID,
		Success:       true,
		TagDetections: detections,
	}, nil
}

func (s *tagDetectionService) notify(ctx context.Context, event broadcast.AnalysisEvent) {
	if s.events == nil {
		return
	}
	event.Timestamp = time.Now().UTC()
	s.events.NotifyObservers(ctx, event)
}

func (s *tagDetectionService) notifyFailure(ctx context.Context, eventType broadcast.EventType, requestID string, request models.AnalyzeSingleImageRequest, start time.Time, err error) {
	s.notify(ctx, broadcast.AnalysisEvent{
		EventType:      eventType,
		RequestID:      requestID,
		ImagePath:      request.FullPathWhereToGetImage,
		ProcessingTime: time.Since(start),
		ErrorMessage:   err.Error(),
	})
}

// asAppError keeps typed errors as they are and gives untyped ones a type
func asAppError(err error, wrap func(string, error) *apperrors.AppError, message string) error {
	if _, ok := apperrors.AsAppError(err); ok {
		return err
	}
	return wrap(message, err)
}
