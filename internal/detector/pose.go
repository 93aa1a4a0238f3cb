package detector

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"go-tag-detector/pkg/models"
)

var errDegenerateHomography = errors.New("degenerate tag homography")

// tagObjectPoints are the tag corners in the tag frame for a tag of edge
// length size, in the same order as RawMarker corners
func tagObjectPoints(size float64) [4][2]float64 {
	s := size / 2
	return [4][2]float64{{-s, -s}, {s, -s}, {s, s}, {-s, s}}
}

// estimatePose recovers the tag pose in the camera frame from its four image
// corners. The image is assumed rectified.
func estimatePose(corners [4]models.Pixel, size, fx, fy, cx, cy float64) (models.Pose, error) {
	if size <= 0 {
		return models.Pose{}, fmt.Errorf("tag size must be > 0 (got %g)", size)
	}

	var normalized [4][2]float64
	for i, c := range corners {
		normalized[i] = [2]float64{(c.X - cx) / fx, (c.Y - cy) / fy}
	}

	h, err := homography(tagObjectPoints(size), normalized)
	if err != nil {
		return models.Pose{}, err
	}

	// H ~ [r1 r2 t]
	c1 := mat.NewVecDense(3, []float64{h.At(0, 0), h.At(1, 0), h.At(2, 0)})
	c2 := mat.NewVecDense(3, []float64{h.At(0, 1), h.At(1, 1), h.At(2, 1)})
	c3 := mat.NewVecDense(3, []float64{h.At(0, 2), h.At(1, 2), h.At(2, 2)})

	norm := mat.Norm(c1, 2) + mat.Norm(c2, 2)
	if norm == 0 {
		return models.Pose{}, errDegenerateHomography
	}
	scale := 2 / norm
	// the tag is in front of the camera
	if c3.AtVec(2) < 0 {
		scale = -scale
	}

	c1.ScaleVec(scale, c1)
	c2.ScaleVec(scale, c2)
	c3.ScaleVec(scale, c3)
	r3 := cross(c1, c2)

	rotation := mat.NewDense(3, 3, nil)
	rotation.SetCol(0, c1.RawVector().Data)
	rotation.SetCol(1, c2.RawVector().Data)
	rotation.SetCol(2, r3.RawVector().Data)

	orthonormal, err := orthonormalize(rotation)
	if err != nil {
		return models.Pose{}, err
	}

	return models.Pose{
		Position: models.Point{
			X: c3.AtVec(0),
			Y: c3.AtVec(1),
			Z: c3.AtVec(2),
		},
		Orientation: rotationToQuaternion(orthonormal),
	}, nil
}

// homography solves the 3x3 projective map with h33 = 1 taking src onto dst
func homography(src, dst [4][2]float64) (*mat.Dense, error) {
	a := mat.NewDense(8, 8, nil)
	b := mat.NewVecDense(8, nil)
	for i := 0; i < 4; i++ {
		X, Y := src[i][0], src[i][1]
		x, y := dst[i][0], dst[i][1]
		a.SetRow(2*i, []float64{X, Y, 1, 0, 0, 0, -x * X, -x * Y})
		a.SetRow(2*i+1, []float64{0, 0, 0, X, Y, 1, -y * X, -y * Y})
		b.SetVec(2*i, x)
		b.SetVec(2*i+1, y)
	}

	var solution mat.VecDense
	if err := solution.SolveVec(a, b); err != nil {
		return nil, fmt.Errorf("%w: %v", errDegenerateHomography, err)
	}

	data := make([]float64, 9)
	for i := 0; i < 8; i++ {
		data[i] = solution.AtVec(i)
	}
	data[8] = 1
	for _, v := range data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errDegenerateHomography
		}
	}
	return mat.NewDense(3, 3, data), nil
}

// orthonormalize returns the rotation matrix closest to m
func orthonormalize(m *mat.Dense) (*mat.Dense, error) {
	var svd mat.SVD
	if !svd.Factorize(m, mat.SVDFull) {
		return nil, errors.New("rotation SVD failed")
	}

	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	var r mat.Dense
	r.Mul(&u, v.T())
	if mat.Det(&r) < 0 {
		for i := 0; i < 3; i++ {
			u.Set(i, 2, -u.At(i, 2))
		}
		r.Mul(&u, v.T())
	}
	return &r, nil
}

func cross(a, b *mat.VecDense) *mat.VecDense {
	return mat.NewVecDense(3, []float64{
		a.AtVec(1)*b.AtVec(2) - a.AtVec(2)*b.AtVec(1),
		a.AtVec(2)*b.AtVec(0) - a.AtVec(0)*b.AtVec(2),
		a.AtVec(0)*b.AtVec(1) - a.AtVec(1)*b.AtVec(0),
	})
}

// rotationToQuaternion converts a rotation matrix to a unit quaternion with
// a non-negative scalar part
func rotationToQuaternion(r mat.Matrix) models.Quaternion {
	m00, m01, m02 := r.At(0, 0), r.At(0, 1), r.At(0, 2)
	m10, m11, m12 := r.At(1, 0), r.At(1, 1), r.At(1, 2)
	m20, m21, m22 := r.At(2, 0), r.At(2, 1), r.At(2, 2)

	var q quat.Number
	trace := m00 + m11 + m22
	switch {
	case trace > 0:
		s := 2 * math.Sqrt(trace+1)
		q = quat.Number{Real: s / 4, Imag: (m21 - m12) / s, Jmag: (m02 - m20) / s, Kmag: (m10 - m01) / s}
	case m00 > m11 && m00 > m22:
		s := 2 * math.Sqrt(1+m00-m11-m22)
		q = quat.Number{Real: (m21 - m12) / s, Imag: s / 4, Jmag: (m01 + m10) / s, Kmag: (m02 + m20) / s}
	case m11 > m22:
		s := 2 * math.Sqrt(1+m11-m00-m22)
		q = quat.Number{Real: (m02 - m20) / s, Imag: (m01 + m10) / s, Jmag: s / 4, Kmag: (m12 + m21) / s}
	default:
		s := 2 * math.Sqrt(1+m22-m00-m11)
		q = quat.Number{Real: (m10 - m01) / s, Imag: (m02 + m20) / s, Jmag: (m12 + m21) / s, Kmag: s / 4}
	}

	q = quat.Scale(1/quat.Abs(q), q)
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return models.Quaternion{X: q.Imag, Y: q.Jmag, Z: q.Kmag, W: q.Real}
}
