package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go-tag-detector/pkg/models"
)

// Message is one publication on a topic
type Message struct {
	Topic       string                        `json:"topic"`
	PublishedAt time.Time                     `json:"published_at"`
	Detections  models.AprilTagDetectionArray `json:"tag_detections"`
}

// Encode returns the JSON wire form shared by every transport subscriber
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// Subscriber receives every message published by a Broadcaster
type Subscriber interface {
	OnPublish(ctx context.Context, msg Message) error
	Name() string
}

// Publisher publishes detection arrays
type Publisher interface {
	Publish(ctx context.Context, detections models.AprilTagDetectionArray) error
}

// Broadcaster fans detection arrays out to its subscribers. Delivery is
// synchronous and every subscriber is tried even if an earlier one fails.
type Broadcaster struct {
	topic string

	mu          sync.RWMutex
	subscribers []Subscriber
	now         func() time.Time
}

// NewBroadcaster creates a broadcaster for a topic
func NewBroadcaster(topic string) *Broadcaster {
	return &Broadcaster{
		topic:       topic,
		subscribers: make([]Subscriber, 0),
		now:         time.Now,
	}
}

// Topic returns the topic name
func (b *Broadcaster) Topic() string {
	return b.topic
}

// Subscribe adds a subscriber
func (b *Broadcaster) Subscribe(subscriber Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, subscriber)
}

// Unsubscribe removes a subscriber by name
func (b *Broadcaster) Unsubscribe(subscriber Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.subscribers {
		if s.Name() == subscriber.Name() {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			break
		}
	}
}

// Subscribers returns the names of the current subscribers
func (b *Broadcaster) Subscribers() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	names := make([]string, 0, len(b.subscribers))
	for _, s := range b.subscribers {
		names = append(names, s.Name())
	}
	return names
}

// Publish delivers detections to every subscriber and joins their errors
func (b *Broadcaster) Publish(ctx context.Context, detections models.AprilTagDetectionArray) error {
	b.mu.RLock()
	subscribers := make([]Subscriber, len(b.subscribers))
	copy(subscribers, b.subscribers)
	b.mu.RUnlock()

	msg := Message{
		Topic:       b.topic,
		PublishedAt: b.now().UTC(),
		Detections:  detections,
	}

	var errs []error
	for _, s := range subscribers {
		if err := s.OnPublish(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every subscriber that holds resources
func (b *Broadcaster) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for _, s := range b.subscribers {
		if closer, ok := s.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			}
		}
	}
	b.subscribers = nil
	return errors.Join(errs...)
}
