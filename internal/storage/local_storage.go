package storage

import (
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// LocalStorage keeps images on the local filesystem. The output format is
// chosen from the file extension.
type LocalStorage struct{}

// NewLocalStorage creates a filesystem backed image store
func NewLocalStorage() ImageStore {
	return &LocalStorage{}
}

func (s *LocalStorage) LoadImage(ctx context.Context, location string) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	img, err := imaging.Open(localPath(location), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	return img, nil
}

func (s *LocalStorage) SaveImage(ctx context.Context, location string, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := imaging.Save(img, localPath(location)); err != nil {
		return fmt.Errorf("save image: %w", err)
	}
	return nil
}

func localPath(location string) string {
	return strings.TrimPrefix(location, "file://")
}
