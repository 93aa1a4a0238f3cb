package container

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go-tag-detector/internal/broadcast"
	"go-tag-detector/internal/config"
	"go-tag-detector/internal/detector"
	"go-tag-detector/internal/factory"
	"go-tag-detector/internal/logger"
	"go-tag-detector/internal/repository"
	"go-tag-detector/internal/repository/sqlite"
	"go-tag-detector/internal/service"
	"go-tag-detector/internal/transport"
	"go-tag-detector/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	imageRepository     repository.ImageRepository
	tagDetector         detector.TagDetector
	broadcaster         *broadcast.Broadcaster
	events              *broadcast.EventPublisher
	metrics             *broadcast.MetricsCollector
	hub                 *broadcast.WebsocketHub
	history             repository.DetectionRepository
	tagDetectionService service.TagDetectionService
	handler             http.Handler
}

// DetectorOptions maps the configuration onto the options of the
// configured detector profile
func DetectorOptions(cfg *config.Config) (detector.DetectorOptions, error) {
	opts, err := detector.ProfileOptions(cfg.TagProfile)
	if err != nil {
		return opts, err
	}

	decimate := opts.Decimate
	if cfg.TagDecimate > 0 {
		decimate = cfg.TagDecimate
	}
	opts = opts.WithFamily(cfg.TagFamily).
		WithPreprocessing(decimate, cfg.TagBlur).
		WithThreads(cfg.TagThreads)
	if cfg.MaxHammingDistance >= 0 {
		opts.MaxHammingDistance = cfg.MaxHammingDistance
	}
	opts.RemoveDuplicates = cfg.RemoveDuplicates
	opts.DefaultTagSize = cfg.DefaultTagSize

	if cfg.Tags != nil {
		tags := make([]detector.TagDescription, 0, len(cfg.Tags.StandaloneTags))
		for _, tag := range cfg.Tags.StandaloneTags {
			tags = append(tags, detector.TagDescription{ID: tag.ID, Size: tag.Size, Name: tag.Name})
		}
		opts = opts.WithStandaloneTags(tags)
	}
	return opts, nil
}

// StorageOptions maps the configuration onto storage options. Azure
// credentials are only passed on when both parts are set.
func StorageOptions(cfg *config.Config) factory.StorageOptions {
	opts := factory.StorageOptions{FetchTimeout: cfg.ImageFetchTimeout}
	if cfg.AzureEnabled() {
		opts.AzureAccountName = cfg.AzureAccountName
		opts.AzureAccountKey = cfg.AzureAccountKey
	}
	return opts
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	components := factory.NewComponentFactory(StorageOptions(cfg))

	options, err := DetectorOptions(cfg)
	if err != nil {
		return nil, err
	}
	tagDetector, err := components.DetectorFactory.CreateDetector(options)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector: %w", err)
	}

	c := &Container{
		imageRepository: repository.NewStorageImageRepository(
			validation.NewPathValidatorWithOptions(validation.SupportedSchemes(), cfg.AllowedImageHosts),
			components.StorageFactory,
		),
		tagDetector:     tagDetector,
		broadcaster:     broadcast.NewBroadcaster(cfg.PublishTopic),
		events:          broadcast.NewEventPublisher(),
		metrics:         broadcast.NewMetricsCollector(),
		hub:             broadcast.NewWebsocketHub(),
	}

	if err := c.wireBroadcast(cfg); err != nil {
		c.Close()
		return nil, err
	}

	c.tagDetectionService = service.NewTagDetectionService(c.imageRepository, c.tagDetector, c.broadcaster, c.events)
	deps := transport.Dependencies{
		Service: c.tagDetectionService,
		Hub:     c.hub,
		History: c.history,
		Metrics: c.metrics,
	}
	if stats, ok := c.tagDetector.(detector.PoolStatsReporter); ok {
		deps.DetectorStats = stats
	}
	c.handler = transport.NewHandler(deps, cfg)

	return c, nil
}

// wireBroadcast subscribes every configured sink to the detections topic
func (c *Container) wireBroadcast(cfg *config.Config) error {
	logging := broadcast.NewLoggingSubscriber(logger.Logger)
	c.events.Subscribe(logging)
	c.events.Subscribe(c.metrics)

	c.broadcaster.Subscribe(logging)
	c.broadcaster.Subscribe(c.metrics)
	c.broadcaster.Subscribe(c.hub)

	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := broadcast.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return err
		}
		c.broadcaster.Subscribe(kafka)
	}

	if cfg.RedisAddr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
		defer cancel()
		redis, err := broadcast.NewRedisPublisher(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisChannel)
		if err != nil {
			return err
		}
		c.broadcaster.Subscribe(redis)
	}

	if cfg.HistoryDBPath != "" {
		db, err := sqlite.New(cfg.HistoryDBPath)
		if err != nil {
			return fmt.Errorf("history database: %w", err)
		}
		c.history = sqlite.NewDetectionRepository(db)
		c.broadcaster.Subscribe(broadcast.NewHistoryRecorder(c.history))
	}

	logger.WithField("subscribers", c.broadcaster.Subscribers()).
		WithField("topic", c.broadcaster.Topic()).
		Info("Tag detections broadcast ready")
	return nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Close releases the detector and every broadcast sink
func (c *Container) Close() error {
	c.events.Wait()
	return errors.Join(c.tagDetector.Close(), c.broadcaster.Close())
}
