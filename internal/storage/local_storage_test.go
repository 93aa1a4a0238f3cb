package storage

import (
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalStorage_SaveAndLoad(t *testing.T) {
	store := NewLocalStorage()
	dir := t.TempDir()

	img := image.NewNRGBA(image.Rect(0, 0, 8, 5))
	img.Set(3, 2, color.NRGBA{0, 255, 0, 255})

	for _, name := range []string{"out.png", "out.jpg", "out.bmp"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			if err := store.SaveImage(context.Background(), path, img); err != nil {
				t.Fatalf("SaveImage() error: %v", err)
			}

			loaded, err := store.LoadImage(context.Background(), "file://"+path)
			if err != nil {
				t.Fatalf("LoadImage() error: %v", err)
			}
			if loaded.Bounds().Dx() != 8 || loaded.Bounds().Dy() != 5 {
				t.Errorf("Unexpected bounds %v", loaded.Bounds())
			}
		})
	}
}

func TestLocalStorage_LoadErrors(t *testing.T) {
	store := NewLocalStorage()
	dir := t.TempDir()

	corrupt := filepath.Join(dir, "corrupt.png")
	if err := os.WriteFile(corrupt, []byte("not a png"), 0o600); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{filepath.Join(dir, "missing.png"), corrupt} {
		if _, err := store.LoadImage(context.Background(), path); err == nil {
			t.Errorf("Expected error loading %s", path)
		}
	}
}

func TestLocalStorage_SaveErrors(t *testing.T) {
	store := NewLocalStorage()
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	dir := t.TempDir()

	if err := store.SaveImage(context.Background(), filepath.Join(dir, "out.unknown"), img); err == nil {
		t.Error("Expected unsupported extension to fail")
	}
	if err := store.SaveImage(context.Background(), filepath.Join(dir, "missing", "out.png"), img); err == nil {
		t.Error("Expected missing directory to fail")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := store.SaveImage(ctx, filepath.Join(dir, "out.png"), img); err == nil {
		t.Error("Expected cancelled context to fail")
	}
}
