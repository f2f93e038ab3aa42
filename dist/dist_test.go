package dist

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func TestNormalLogProb(t *testing.T) {
	d, err := Normal(0, 1)
	require.NoError(t, err)

	lp, err := d.LogProb(0.0)
	require.NoError(t, err)
	assert.InDelta(t, -0.5*math.Log(2*math.Pi), lp.Float(), 1e-12)
	assert.True(t, lp.RequiresGrad())
	assert.Equal(t, 1, lp.Len())
}

func TestSampleIsReproducible(t *testing.T) {
	d, err := New("normal", map[string]interface{}{"mu": 1, "sigma": 2.0})
	require.NoError(t, err)

	x := d.Sample(rand.NewSource(42))
	y := d.Sample(rand.NewSource(42))
	assert.Equal(t, x, y)
}

func TestNewErrors(t *testing.T) {
	_, err := New("zipf", nil)
	var uf *UnknownFamily
	assert.True(t, errors.As(err, &uf))

	_, err = New("normal", map[string]interface{}{"mu": 0})
	var bp *BadParams
	assert.True(t, errors.As(err, &bp))

	_, err = New("normal", map[string]interface{}{"mu": 0, "sigma": -1})
	assert.True(t, errors.As(err, &bp))

	_, err = New("normal", map[string]interface{}{"mu": 0, "sigma": 1, "n": 1.5})
	assert.True(t, errors.As(err, &bp))
}

func TestIID(t *testing.T) {
	d, err := New("bernoulli", map[string]interface{}{"p": 0.5, "n": 3})
	require.NoError(t, err)
	assert.Equal(t, "iid", d.Family())

	x := d.Sample(rand.NewSource(1))
	xs, ok := x.([]float64)
	require.True(t, ok)
	assert.Len(t, xs, 3)

	lp, err := d.LogProb(xs)
	require.NoError(t, err)
	assert.Equal(t, 3, lp.Len())
	for _, v := range lp.Values() {
		assert.InDelta(t, math.Log(0.5), v, 1e-12)
	}

	_, err = d.LogProb([]float64{1})
	var bv *BadValue
	assert.True(t, errors.As(err, &bv))
}

func TestCategorical(t *testing.T) {
	d, err := New("categorical", map[string]interface{}{
		"probs": []interface{}{1.0, 3.0},
	})
	require.NoError(t, err)

	lp, err := d.LogProb(1)
	require.NoError(t, err)
	assert.InDelta(t, math.Log(0.75), lp.Float(), 1e-12)
}

func TestDelta(t *testing.T) {
	d, err := New("delta", map[string]interface{}{"v": 2})
	require.NoError(t, err)
	assert.Equal(t, 2.0, d.Sample(nil))

	lp, err := d.LogProb(2.0)
	require.NoError(t, err)
	assert.True(t, lp.IsZero())

	lp, err = d.LogProb(3.0)
	require.NoError(t, err)
	assert.True(t, math.IsInf(lp.Float(), -1))
}

func TestFamilies(t *testing.T) {
	fs := Families()
	assert.Contains(t, fs, "normal")
	assert.Contains(t, fs, "categorical")
	assert.IsIncreasing(t, fs)
}
