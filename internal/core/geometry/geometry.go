// Package geometry holds the small amount of vector math the samplers need.
// Y is up; planar distances are measured in the XZ plane.
package geometry

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Vec3 is a point or direction in scene coordinates. It marshals as [x, y, z].
type Vec3 struct {
	r3.Vec
}

func V(x, y, z float64) Vec3 {
	return Vec3{r3.Vec{X: x, Y: y, Z: z}}
}

func (v Vec3) Add(o Vec3) Vec3 { return Vec3{r3.Add(v.Vec, o.Vec)} }

func (v Vec3) Sub(o Vec3) Vec3 { return Vec3{r3.Sub(v.Vec, o.Vec)} }

func (v Vec3) Scale(f float64) Vec3 { return Vec3{r3.Scale(f, v.Vec)} }

func (v Vec3) Norm() float64 { return r3.Norm(v.Vec) }

// IsFinite reports whether no component is NaN or infinite.
func (v Vec3) IsFinite() bool {
	for _, c := range []float64{v.X, v.Y, v.Z} {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

func (v Vec3) Slice() []float64 { return []float64{v.X, v.Y, v.Z} }

func (v Vec3) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Slice())
}

func (v *Vec3) UnmarshalJSON(b []byte) error {
	var xs []float64
	if err := json.Unmarshal(b, &xs); err != nil {
		return err
	}
	if len(xs) != 3 {
		return fmt.Errorf("position must have 3 components, got %d", len(xs))
	}
	*v = V(xs[0], xs[1], xs[2])
	return nil
}

// Quaternion is a rotation. It marshals in habitat order [x, y, z, w].
type Quaternion struct {
	quat.Number
}

func (q Quaternion) Slice() []float64 {
	return []float64{q.Imag, q.Jmag, q.Kmag, q.Real}
}

func (q Quaternion) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.Slice())
}

func (q *Quaternion) UnmarshalJSON(b []byte) error {
	var xs []float64
	if err := json.Unmarshal(b, &xs); err != nil {
		return err
	}
	if len(xs) != 4 {
		return fmt.Errorf("rotation must have 4 components, got %d", len(xs))
	}
	q.Number = quat.Number{Imag: xs[0], Jmag: xs[1], Kmag: xs[2], Real: xs[3]}
	return nil
}

// Yaw returns the rotation angle about the Y axis.
func (q Quaternion) Yaw() float64 {
	return 2 * math.Atan2(q.Jmag, q.Real)
}

// YawQuaternion returns the rotation of yaw radians about the Y axis.
func YawQuaternion(yaw float64) Quaternion {
	half := yaw / 2
	return Quaternion{quat.Number{Real: math.Cos(half), Jmag: math.Sin(half)}}
}

// ProjectHorizontal drops the vertical component.
func ProjectHorizontal(v Vec3) Vec3 {
	return V(v.X, 0, v.Z)
}

// PlanarDistance is the Euclidean distance over the X and Z axes.
func PlanarDistance(a, b Vec3) float64 {
	return ProjectHorizontal(a.Sub(b)).Norm()
}

// Distance is the full 3D Euclidean distance.
func Distance(a, b Vec3) float64 {
	return a.Sub(b).Norm()
}

func facingYaw(src, dst Vec3) float64 {
	d := ProjectHorizontal(dst.Sub(src))
	return math.Atan2(d.X, d.Z)
}

// RotationToPoint faces src toward dst, ignoring height.
func RotationToPoint(src, dst Vec3) Quaternion {
	return YawQuaternion(facingYaw(src, dst))
}

// NoisyRotationToPoint faces src toward dst with up to ±45° of uniform yaw noise.
func NoisyRotationToPoint(src, dst Vec3, rng *rand.Rand) Quaternion {
	noise := uniform(rng, -math.Pi/4, math.Pi/4)
	return YawQuaternion(facingYaw(src, dst) + noise)
}

// Closest returns the index of the point nearest to target in 3D, or -1 for
// an empty slice.
func Closest(points []Vec3, target Vec3) int {
	best, bestDist := -1, math.Inf(1)
	for i, p := range points {
		if d := Distance(p, target); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}
