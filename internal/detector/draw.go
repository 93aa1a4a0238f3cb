package detector

import (
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"go-tag-detector/pkg/models"
)

var (
	edgeGreen = color.NRGBA{0, 255, 0, 255}
	edgeRed   = color.NRGBA{255, 0, 0, 255}
	edgeBlue  = color.NRGBA{0, 0, 255, 255}
)

const lineWidth = 2

// drawDetections outlines every detection on a copy of img: the edge from
// corner 0 to 1 (the tag x axis) is green, 0 to 3 (the y axis) is red, the
// rest blue. The tag id is labelled at its centre.
func drawDetections(img image.Image, detections models.AprilTagDetectionArray) image.Image {
	canvas := imaging.Clone(img)
	offset := img.Bounds().Min

	for _, det := range detections.Detections {
		c := det.Corners
		for i := range c {
			c[i].X -= float64(offset.X)
			c[i].Y -= float64(offset.Y)
		}

		drawLine(canvas, c[0], c[1], edgeGreen)
		drawLine(canvas, c[0], c[3], edgeRed)
		drawLine(canvas, c[1], c[2], edgeBlue)
		drawLine(canvas, c[2], c[3], edgeBlue)

		if len(det.ID) > 0 {
			drawLabel(canvas, center(c), det.ID[0])
		}
	}
	return canvas
}

// drawLine draws a thick segment by stamping squares along it
func drawLine(dst *image.NRGBA, from, to models.Pixel, col color.Color) {
	dx, dy := to.X-from.X, to.Y-from.Y
	steps := int(math.Ceil(math.Max(math.Abs(dx), math.Abs(dy))))
	if steps == 0 {
		steps = 1
	}

	src := image.NewUniform(col)
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(math.Round(from.X + t*dx))
		y := int(math.Round(from.Y + t*dy))
		r := image.Rect(x-lineWidth/2, y-lineWidth/2, x-lineWidth/2+lineWidth, y-lineWidth/2+lineWidth)
		draw.Draw(dst, r.Intersect(dst.Bounds()), src, image.Point{}, draw.Src)
	}
}

// labelColor gives every id its own stable hue
func labelColor(id int) colorful.Color {
	hue := math.Mod(float64(id)*47, 360)
	if hue < 0 {
		hue += 360
	}
	return colorful.Hsv(hue, 0.8, 0.9)
}

func drawLabel(dst *image.NRGBA, at models.Pixel, id int) {
	text := strconv.Itoa(id)
	face := basicfont.Face7x13
	width := font.MeasureString(face, text).Ceil()
	height := face.Metrics().Height.Ceil()

	x := int(math.Round(at.X)) - width/2
	y := int(math.Round(at.Y)) - height/2
	box := image.Rect(x-2, y-1, x+width+2, y+height+1)

	background := labelColor(id)
	draw.Draw(dst, box.Intersect(dst.Bounds()), image.NewUniform(background), image.Point{}, draw.Src)

	var ink color.Color = color.White
	if l, _, _ := background.Lab(); l > 0.6 {
		ink = color.Black
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(ink),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y + face.Metrics().Ascent.Ceil())},
	}
	d.DrawString(text)
}
