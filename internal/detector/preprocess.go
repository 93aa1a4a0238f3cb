package detector

import (
	"image"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/disintegration/imaging"

	"go-tag-detector/pkg/models"
)

// frame is the grayscale image the marker finder searches, with the mapping
// back to the coordinates of the original image
type frame struct {
	gray   *image.Gray
	scaleX float64
	scaleY float64
	origin image.Point
}

// toImage maps a point found in the frame back to original image coordinates
func (f frame) toImage(p models.Pixel) models.Pixel {
	return models.Pixel{
		X: p.X*f.scaleX + float64(f.origin.X),
		Y: p.Y*f.scaleY + float64(f.origin.Y),
	}
}

// preprocess decimates, blurs and converts img to grayscale
func preprocess(img image.Image, opts DetectorOptions) frame {
	bounds := img.Bounds()
	src := img
	scaleX, scaleY := 1.0, 1.0

	if opts.Decimate > 1 {
		width := int(math.Round(float64(bounds.Dx()) / opts.Decimate))
		height := int(math.Round(float64(bounds.Dy()) / opts.Decimate))
		if width >= 1 && height >= 1 {
			src = imaging.Resize(img, width, height, imaging.Box)
			scaleX = float64(bounds.Dx()) / float64(width)
			scaleY = float64(bounds.Dy()) / float64(height)
		}
	}

	if opts.Blur > 0 {
		src = blur.Gaussian(src, opts.Blur)
	}

	return frame{
		gray:   toGray(effect.Grayscale(src)),
		scaleX: scaleX,
		scaleY: scaleY,
		origin: bounds.Min,
	}
}

// toGray copies a grayscale RGBA image into a zero-origin single channel image
func toGray(rgba *image.RGBA) *image.Gray {
	b := rgba.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), rgba, b.Min, draw.Src)
	return gray
}
