package broadcast

import (
	"context"
	"sync"
	"time"
)

// MetricsCollector counts analyses, publications and tag sightings
type MetricsCollector struct {
	mu                  sync.RWMutex
	totalAnalyses       int64
	successfulAnalyses  int64
	failedAnalyses      int64
	imageLoadFailures   int64
	totalProcessingTime time.Duration

	publishedArrays  int64
	publishedTags    int64
	tagSightings     map[int]int64
	lastPublishedSeq uint64
	lastPublishedAt  time.Time
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		tagSightings: make(map[int]int64),
	}
}

// OnPublish counts the published detection array
func (o *MetricsCollector) OnPublish(ctx context.Context, msg Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.publishedArrays++
	o.publishedTags += int64(msg.Detections.Len())
	for _, det := range msg.Detections.Detections {
		for _, id := range det.ID {
			o.tagSightings[id]++
		}
	}
	o.lastPublishedSeq = msg.Detections.Header.Seq
	o.lastPublishedAt = msg.PublishedAt
	return nil
}

// OnEvent handles analysis events by collecting metrics
func (o *MetricsCollector) OnEvent(ctx context.Context, event AnalysisEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case AnalysisStarted:
		o.totalAnalyses++
	case AnalysisCompleted:
		o.successfulAnalyses++
		o.totalProcessingTime += event.ProcessingTime
	case AnalysisFailed:
		o.failedAnalyses++
	case ImageLoadFailed:
		o.imageLoadFailures++
	}
}

// Name returns the subscriber name
func (o *MetricsCollector) Name() string {
	return "metrics"
}

// GetObserverName returns the observer name
func (o *MetricsCollector) GetObserverName() string {
	return o.Name()
}

// GetMetrics returns current metrics
func (o *MetricsCollector) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.successfulAnalyses > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.successfulAnalyses)
	}

	sightings := make(map[int]int64, len(o.tagSightings))
	for id, n := range o.tagSightings {
		sightings[id] = n
	}

	return map[string]interface{}{
		"total_analyses":        o.totalAnalyses,
		"successful_analyses":   o.successfulAnalyses,
		"failed_analyses":       o.failedAnalyses,
		"image_load_failures":   o.imageLoadFailures,
		"total_processing_time": o.totalProcessingTime,
		"avg_processing_time":   avgProcessingTime,
		"published_arrays":      o.publishedArrays,
		"published_tags":        o.publishedTags,
		"tag_sightings":         sightings,
		"last_published_seq":    o.lastPublishedSeq,
		"last_published_at":     o.lastPublishedAt,
	}
}
