package broadcast

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LoggingSubscriber logs publications and analysis events
type LoggingSubscriber struct {
	logger *logrus.Logger
}

// NewLoggingSubscriber creates a new logging subscriber
func NewLoggingSubscriber(logger *logrus.Logger) *LoggingSubscriber {
	return &LoggingSubscriber{
		logger: logger,
	}
}

// OnPublish logs the published detection array
func (o *LoggingSubscriber) OnPublish(ctx context.Context, msg Message) error {
	ids := make([]int, 0, msg.Detections.Len())
	for _, det := range msg.Detections.Detections {
		ids = append(ids, det.ID...)
	}

	o.logger.WithFields(logrus.Fields{
		"topic":    msg.Topic,
		"seq":      msg.Detections.Header.Seq,
		"frame_id": msg.Detections.Header.FrameID,
		"tag_ids":  ids,
	}).Debug("Published tag detections")
	return nil
}

// OnEvent handles analysis events by logging them
func (o *LoggingSubscriber) OnEvent(ctx context.Context, event AnalysisEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"request_id":      event.RequestID,
		"image_path":      event.ImagePath,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}

	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
	}

	for k, v := range event.Metadata {
		fields[k] = v
	}

	switch event.EventType {
	case AnalysisStarted:
		o.logger.WithFields(fields).Debug("Image analysis started")
	case AnalysisCompleted:
		o.logger.WithFields(fields).Info("Image analysis completed")
	case AnalysisFailed:
		o.logger.WithFields(fields).Error("Image analysis failed")
	case ImageLoadFailed:
		o.logger.WithFields(fields).Warn("Image load failed")
	default:
		o.logger.WithFields(fields).Info("Analysis event occurred")
	}
}

// Name returns the subscriber name
func (o *LoggingSubscriber) Name() string {
	return "logging"
}

// GetObserverName returns the observer name
func (o *LoggingSubscriber) GetObserverName() string {
	return o.Name()
}
