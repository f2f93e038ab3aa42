package bolt

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Comcast/combinators/params"
	"github.com/Comcast/combinators/tensor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImpl(t *testing.T) {
	// Just confirm that this code compiles.
	var _ params.Store = &Store{}
	var _ params.Initializer = &Store{}
}

func TestBasics(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "params.db")

	s, err := NewStore(filename)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, _, err = s.Get(ctx, "locs")
	assert.Equal(t, NotOpen, err)

	require.NoError(t, s.Open(ctx))
	s.Debug = true

	_, have, err := s.Get(ctx, "locs")
	require.NoError(t, err)
	assert.False(t, have)

	v, err := params.GetOrInit(ctx, s, "locs", tensor.Vector(0, 1))
	require.NoError(t, err)
	assert.True(t, v.RequiresGrad())

	require.NoError(t, s.Set(ctx, "scales", tensor.Vector(1, 1)))

	names, err := s.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"locs", "scales"}, names)

	require.NoError(t, s.Close(ctx))

	// Values survive reopening.
	require.NoError(t, s.Open(ctx))
	defer s.Close(ctx)

	v, have, err = s.Get(ctx, "locs")
	require.NoError(t, err)
	require.True(t, have)
	assert.Equal(t, []float64{0, 1}, v.Values())
}

func TestInitRace(t *testing.T) {
	ctx := context.Background()

	s, err := NewStore(filepath.Join(t.TempDir(), "params.db"))
	require.NoError(t, err)
	require.NoError(t, s.Open(ctx))
	defer s.Close(ctx)

	vals := make([]float64, 8)
	var wg sync.WaitGroup
	for i := range vals {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := params.GetOrInit(ctx, s, "loc", tensor.Scalar(float64(i)))
			assert.NoError(t, err)
			vals[i] = v.Float()
		}(i)
	}
	wg.Wait()

	v, have, err := s.Get(ctx, "loc")
	require.NoError(t, err)
	require.True(t, have)
	for _, x := range vals {
		assert.Equal(t, v.Float(), x)
	}
}
