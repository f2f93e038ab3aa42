package tensor

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcastAdd(t *testing.T) {
	got := Vector(1, 2, 3).Add(Scalar(1))
	assert.Equal(t, []float64{2, 3, 4}, got.Values())

	got = Scalar(1).Sub(Vector(1, 2))
	assert.Equal(t, []float64{0, -1}, got.Values())

	// The empty Tensor counts as zero.
	assert.True(t, Tensor{}.Add(Zero()).IsZero())
}

func TestShapePanics(t *testing.T) {
	defer func() {
		x := recover()
		require.NotNil(t, x)
		_, is := x.(*ShapeError)
		assert.True(t, is, "got %T", x)
	}()
	Vector(1, 2).Add(Vector(1, 2, 3))
}

func TestGradFlows(t *testing.T) {
	a := Scalar(2).WithGrad()
	b := Scalar(3)

	assert.True(t, a.Add(b).RequiresGrad())
	assert.False(t, b.Add(b).RequiresGrad())
	assert.False(t, a.Add(b).Detach().RequiresGrad())
	assert.True(t, a.Sum().RequiresGrad())
	assert.True(t, a.Neg().RequiresGrad())
}

func TestStackSum(t *testing.T) {
	got, err := StackSum(nil)
	require.NoError(t, err)
	assert.True(t, got.Equal(Zero()))

	got, err = StackSum([]Tensor{Scalar(1), Vector(1, 2), Scalar(-1)})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, got.Values())

	_, err = StackSum([]Tensor{Vector(1, 2), Vector(1, 2, 3)})
	var se *ShapeError
	assert.True(t, errors.As(err, &se))
}

func TestIsZero(t *testing.T) {
	assert.True(t, Zero().IsZero())
	assert.True(t, Vector(0, 0).IsZero())
	assert.False(t, Vector(0, 1).IsZero())
	assert.False(t, Tensor{}.IsZero())
}

func TestJSON(t *testing.T) {
	js, err := json.Marshal(Vector(1, 2.5))
	require.NoError(t, err)
	assert.Equal(t, `[1,2.5]`, string(js))

	var x Tensor
	require.NoError(t, json.Unmarshal([]byte(`3`), &x))
	assert.True(t, x.Equal(Scalar(3)))

	require.Error(t, json.Unmarshal([]byte(`["a"]`), &x))
}
