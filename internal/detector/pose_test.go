package detector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"go-tag-detector/pkg/models"
)

const (
	testFx = 600.0
	testFy = 610.0
	testCx = 320.0
	testCy = 240.0
)

// projectTag renders the corners of a tag with the given pose through a
// pinhole camera
func projectTag(rotation *mat.Dense, t [3]float64, size float64) [4]models.Pixel {
	var corners [4]models.Pixel
	for i, p := range tagObjectPoints(size) {
		var cam mat.VecDense
		cam.MulVec(rotation, mat.NewVecDense(3, []float64{p[0], p[1], 0}))
		x := cam.AtVec(0) + t[0]
		y := cam.AtVec(1) + t[1]
		z := cam.AtVec(2) + t[2]
		corners[i] = models.Pixel{X: testFx*x/z + testCx, Y: testFy*y/z + testCy}
	}
	return corners
}

func rotationY(angle float64) *mat.Dense {
	c, s := math.Cos(angle), math.Sin(angle)
	return mat.NewDense(3, 3, []float64{
		c, 0, s,
		0, 1, 0,
		-s, 0, c,
	})
}

func TestEstimatePose_FrontoParallel(t *testing.T) {
	identity := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	corners := projectTag(identity, [3]float64{0, 0, 1}, 0.2)

	pose, err := estimatePose(corners, 0.2, testFx, testFy, testCx, testCy)
	require.NoError(t, err)

	assert.InDelta(t, 0, pose.Position.X, 1e-9)
	assert.InDelta(t, 0, pose.Position.Y, 1e-9)
	assert.InDelta(t, 1, pose.Position.Z, 1e-9)
	assert.InDelta(t, 1, pose.Orientation.W, 1e-9)
}

func TestEstimatePose_RotatedAndTranslated(t *testing.T) {
	const angle = 0.4
	translation := [3]float64{0.12, -0.05, 1.5}
	corners := projectTag(rotationY(angle), translation, 0.16)

	pose, err := estimatePose(corners, 0.16, testFx, testFy, testCx, testCy)
	require.NoError(t, err)

	assert.InDelta(t, translation[0], pose.Position.X, 1e-6)
	assert.InDelta(t, translation[1], pose.Position.Y, 1e-6)
	assert.InDelta(t, translation[2], pose.Position.Z, 1e-6)

	assert.InDelta(t, 0, pose.Orientation.X, 1e-6)
	assert.InDelta(t, math.Sin(angle/2), pose.Orientation.Y, 1e-6)
	assert.InDelta(t, 0, pose.Orientation.Z, 1e-6)
	assert.InDelta(t, math.Cos(angle/2), pose.Orientation.W, 1e-6)
}

func TestEstimatePose_ScalesWithTagSize(t *testing.T) {
	identity := mat.NewDense(3, 3, []float64{1, 0, 0, 0, 1, 0, 0, 0, 1})
	corners := projectTag(identity, [3]float64{0, 0, 2}, 0.1)

	// The same pixels interpreted as a tag twice as large is twice as far
	pose, err := estimatePose(corners, 0.2, testFx, testFy, testCx, testCy)
	require.NoError(t, err)
	assert.InDelta(t, 4, pose.Position.Z, 1e-6)
}

func TestEstimatePose_Degenerate(t *testing.T) {
	var collapsed [4]models.Pixel
	for i := range collapsed {
		collapsed[i] = models.Pixel{X: 100, Y: 100}
	}

	_, err := estimatePose(collapsed, 0.1, testFx, testFy, testCx, testCy)
	assert.Error(t, err)

	_, err = estimatePose(collapsed, 0, testFx, testFy, testCx, testCy)
	assert.Error(t, err)
}

func TestRotationToQuaternion_HalfTurn(t *testing.T) {
	// 180 degrees about x exercises the negative trace branch
	r := mat.NewDense(3, 3, []float64{1, 0, 0, 0, -1, 0, 0, 0, -1})
	q := rotationToQuaternion(r)

	assert.InDelta(t, 1, math.Abs(q.X), 1e-9)
	assert.InDelta(t, 0, q.Y, 1e-9)
	assert.InDelta(t, 0, q.Z, 1e-9)
	assert.InDelta(t, 0, q.W, 1e-9)
}
