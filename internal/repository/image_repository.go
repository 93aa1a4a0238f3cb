package repository

import (
	"context"
	"fmt"
	"image"
	"sync"

	"go-tag-detector/internal/factory"
	"go-tag-detector/internal/storage"
	"go-tag-detector/pkg/validation"
)

// StorageImageRepository implements ImageRepository by routing every
// location to the storage backend of its scheme
type StorageImageRepository struct {
	validator *validation.PathValidator
	factory   factory.StorageFactory

	mu     sync.Mutex
	stores map[factory.StorageType]storage.ImageStore
}

// NewStorageImageRepository creates an image repository. Backends are built
// on first use.
func NewStorageImageRepository(validator *validation.PathValidator, storageFactory factory.StorageFactory) ImageRepository {
	return &StorageImageRepository{
		validator: validator,
		factory:   storageFactory,
		stores:    make(map[factory.StorageType]storage.ImageStore),
	}
}

// LoadImage retrieves an image from its location
func (r *StorageImageRepository) LoadImage(ctx context.Context, location string) (image.Image, error) {
	if err := r.ValidateSource(location); err != nil {
		return nil, err
	}
	store, err := r.storeFor(location)
	if err != nil {
		return nil, err
	}
	return store.LoadImage(ctx, location)
}

// SaveImage writes an image to its location
func (r *StorageImageRepository) SaveImage(ctx context.Context, location string, img image.Image) error {
	if err := r.ValidateDestination(location); err != nil {
		return err
	}
	store, err := r.storeFor(location)
	if err != nil {
		return err
	}
	return store.SaveImage(ctx, location, img)
}

// ValidateSource validates a location images are read from
func (r *StorageImageRepository) ValidateSource(location string) error {
	if err := r.validator.ValidateSource(location); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImagePath, err)
	}
	return nil
}

// ValidateDestination validates a location images are written to
func (r *StorageImageRepository) ValidateDestination(location string) error {
	if err := r.validator.ValidateDestination(location); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImagePath, err)
	}
	return nil
}

func (r *StorageImageRepository) storeFor(location string) (storage.ImageStore, error) {
	storageType := factory.StorageTypeFor(validation.SchemeOf(location))

	r.mu.Lock()
	defer r.mu.Unlock()

	if store, ok := r.stores[storageType]; ok {
		return store, nil
	}
	store, err := r.factory.CreateStorage(storageType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	r.stores[storageType] = store
	return store, nil
}
