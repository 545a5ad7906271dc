package geometry

import (
	"encoding/json"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanarDistanceIgnoresHeight(t *testing.T) {
	a := V(0, 0, 0)
	b := V(3, 10, 4)

	assert.InDelta(t, 5.0, PlanarDistance(a, b), 1e-9)
	assert.InDelta(t, math.Sqrt(125), Distance(a, b), 1e-9)
}

func TestYawQuaternion(t *testing.T) {
	q := YawQuaternion(math.Pi / 2)
	xs := q.Slice()

	assert.InDelta(t, 0, xs[0], 1e-12)
	assert.InDelta(t, math.Sin(math.Pi/4), xs[1], 1e-12)
	assert.InDelta(t, 0, xs[2], 1e-12)
	assert.InDelta(t, math.Cos(math.Pi/4), xs[3], 1e-12)
	assert.InDelta(t, math.Pi/2, q.Yaw(), 1e-12)
}

func TestRotationToPoint(t *testing.T) {
	t.Run("faces +X", func(t *testing.T) {
		q := RotationToPoint(V(0, 0, 0), V(5, 3, 0))
		assert.InDelta(t, math.Pi/2, q.Yaw(), 1e-9)
	})

	t.Run("faces +Z regardless of height", func(t *testing.T) {
		q := RotationToPoint(V(1, 5, 1), V(1, -2, 9))
		assert.InDelta(t, 0, q.Yaw(), 1e-9)
	})

	t.Run("noise stays within 45 degrees", func(t *testing.T) {
		rng := rand.New(rand.NewPCG(1, 2))
		for i := 0; i < 200; i++ {
			q := NoisyRotationToPoint(V(0, 0, 0), V(0, 0, 1), rng)
			assert.LessOrEqual(t, math.Abs(q.Yaw()), math.Pi/4+1e-9)
		}
	})
}

func TestClosest(t *testing.T) {
	points := []Vec3{V(10, 0, 0), V(1, 0, 1), V(0, 5, 0)}
	assert.Equal(t, 1, Closest(points, V(0, 0, 0)))
	assert.Equal(t, -1, Closest(nil, V(0, 0, 0)))
}

func TestJSONShapes(t *testing.T) {
	b, err := json.Marshal(struct {
		P Vec3       `json:"p"`
		R Quaternion `json:"r"`
	}{V(1, 2, 3), YawQuaternion(0)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"p":[1,2,3],"r":[0,0,0,1]}`, string(b))

	var v Vec3
	require.NoError(t, json.Unmarshal([]byte(`[4.5, -1, 2]`), &v))
	assert.Equal(t, V(4.5, -1, 2), v)

	assert.Error(t, json.Unmarshal([]byte(`[1, 2]`), &v))

	var q Quaternion
	require.NoError(t, json.Unmarshal([]byte(`[0, 0.7071, 0, 0.7071]`), &q))
	assert.InDelta(t, math.Pi/2, q.Yaw(), 1e-3)
}

func TestIsFinite(t *testing.T) {
	assert.True(t, V(1, 2, 3).IsFinite())
	assert.False(t, V(math.NaN(), 0, 0).IsFinite())
	assert.False(t, V(0, math.Inf(1), 0).IsFinite())
}
