package broadcast

import (
	"context"

	"go-tag-detector/internal/repository"
)

// HistoryRecorder stores every published array
type HistoryRecorder struct {
	repo repository.DetectionRepository
}

// NewHistoryRecorder records into repo
func NewHistoryRecorder(repo repository.DetectionRepository) *HistoryRecorder {
	return &HistoryRecorder{repo: repo}
}

// OnPublish saves the message
func (h *HistoryRecorder) OnPublish(ctx context.Context, msg Message) error {
	_, err := h.repo.SaveDetections(ctx, msg.Topic, msg.Detections)
	return err
}

// Name returns the subscriber name
func (h *HistoryRecorder) Name() string {
	return "history"
}

// Close closes the repository
func (h *HistoryRecorder) Close() error {
	return h.repo.Close()
}
