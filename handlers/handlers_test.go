package handlers

import (
	"context"
	"errors"
	"testing"

	"github.com/Comcast/combinators/dist"
	"github.com/Comcast/combinators/tensor"
	"github.com/Comcast/combinators/trace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func normal(t *testing.T) dist.Distribution {
	d, err := dist.Normal(0, 1)
	require.NoError(t, err)
	return d
}

func twoSites(d dist.Distribution) Program {
	return func(rt *Runtime, in trace.Input) (interface{}, error) {
		z, err := rt.Sample("z", d)
		if err != nil {
			return nil, err
		}
		if _, err := rt.Observe("x", d, 0.5); err != nil {
			return nil, err
		}
		return z, nil
	}
}

func TestRunUnderTrace(t *testing.T) {
	rt := NewRuntime(context.Background(), 1, nil)
	tr, out, err := RunUnderTrace(rt, twoSites(normal(t)), trace.Call(1, 2))
	require.NoError(t, err)

	assert.Equal(t, []string{"z", "x", trace.InputAddr, trace.ReturnAddr}, tr.Addrs())
	assert.Equal(t, tr.Site("z").Value, out)
	assert.Equal(t, out, tr.Site(trace.ReturnAddr).Value)
	assert.True(t, tr.Site("x").IsObserved)
	assert.False(t, tr.Site("z").IsObserved)
	assert.Equal(t, []interface{}{1, 2}, tr.Site(trace.InputAddr).Input.Args)
	assert.Equal(t, []trace.Edge{{From: "z", To: "x"}}, tr.Edges())
	assert.Equal(t, 0, rt.Depth())
}

func TestSeedsAreDeterministic(t *testing.T) {
	d := normal(t)
	run := func(seed uint64) interface{} {
		rt := NewRuntime(context.Background(), seed, nil)
		_, out, err := RunUnderTrace(rt, twoSites(d), trace.Input{})
		require.NoError(t, err)
		return out
	}
	assert.Equal(t, run(42), run(42))
	assert.NotEqual(t, run(42), run(43))
}

func TestAuxiliaryMarking(t *testing.T) {
	rt := NewRuntime(context.Background(), 1, nil)
	tr, _, err := RunWithAuxiliaryMarking(rt, twoSites(normal(t)), trace.Input{})
	require.NoError(t, err)
	assert.True(t, tr.Site("z").Infer.IsAuxiliary)
	assert.True(t, tr.Site("x").Infer.IsAuxiliary)
	assert.False(t, tr.Site(trace.ReturnAddr).Infer.IsAuxiliary)
}

func TestSubstitution(t *testing.T) {
	d := normal(t)

	ref := trace.New()
	require.NoError(t, ref.Add(&trace.Site{
		Name:  "z",
		Type:  trace.SampleType,
		Dist:  d,
		Value: 0.25,
		Infer: trace.Infer{
			Extra: map[string]interface{}{"enumerate": "parallel"},
		},
	}))
	require.NoError(t, ref.Add(&trace.Site{
		Name:       "x",
		Type:       trace.SampleType,
		Dist:       d,
		Value:      9.0,
		IsObserved: true,
	}))

	rt := NewRuntime(context.Background(), 1, nil)
	tr, out, err := RunWithSubstitution(rt, ref, twoSites(d), trace.Input{})
	require.NoError(t, err)

	assert.Equal(t, 0.25, out)
	z := tr.Site("z")
	assert.True(t, z.Infer.Substituted)
	assert.Equal(t, "parallel", z.Infer.Extra["enumerate"])
	assert.True(t, z.HasLogProb())

	// Observed sites keep their own values.
	x := tr.Site("x")
	assert.Equal(t, 0.5, x.Value)
	assert.False(t, x.Infer.Substituted)
}

func TestSubstitutionMismatch(t *testing.T) {
	d := normal(t)
	ref := trace.New()
	require.NoError(t, ref.Add(&trace.Site{
		Name:  "z",
		Type:  trace.SampleType,
		Value: "not a number",
	}))

	rt := NewRuntime(context.Background(), 1, nil)
	_, _, err := RunWithSubstitution(rt, ref, twoSites(d), trace.Input{})
	var sm *SubstitutionMismatch
	require.True(t, errors.As(err, &sm))
	assert.Equal(t, "z", sm.Addr)
	assert.Equal(t, 0, rt.Depth())
}

func TestParam(t *testing.T) {
	prog := func(rt *Runtime, in trace.Input) (interface{}, error) {
		a, err := rt.Param("loc", tensor.Scalar(3))
		if err != nil {
			return nil, err
		}
		b, err := rt.Param("loc", tensor.Scalar(4))
		if err != nil {
			return nil, err
		}
		return a.Add(b), nil
	}

	rt := NewRuntime(context.Background(), 1, nil)
	tr, out, err := RunUnderTrace(rt, prog, trace.Input{})
	require.NoError(t, err)
	assert.Equal(t, 6.0, out.(tensor.Tensor).Float())
	assert.Equal(t, trace.ParamType, tr.Site("loc").Type)
	assert.True(t, out.(tensor.Tensor).RequiresGrad())
}

func TestWithPopsOnPanic(t *testing.T) {
	rt := NewRuntime(context.Background(), 1, nil)
	func() {
		defer func() {
			recover()
		}()
		rt.With(&AuxiliaryMessenger{}, func() error {
			panic("chimp")
		})
	}()
	assert.Equal(t, 0, rt.Depth())
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rt := NewRuntime(ctx, 1, nil)
	_, _, err := RunUnderTrace(rt, twoSites(normal(t)), trace.Input{})
	assert.Equal(t, context.Canceled, err)
}

func TestNoName(t *testing.T) {
	rt := NewRuntime(context.Background(), 1, nil)
	_, err := rt.Sample("", normal(t))
	assert.Equal(t, trace.ErrNoName, err)

	_, err = rt.Sample("z", nil)
	assert.Equal(t, ErrNoDist, err)
}

// stopper hides messages from the messengers below it.
type stopper struct {
	seen int
}

func (m *stopper) Process(rt *Runtime, msg *Message) error {
	m.seen++
	msg.Stop = true
	return nil
}

func (m *stopper) Postprocess(rt *Runtime, msg *Message) error {
	return nil
}

func TestStop(t *testing.T) {
	rt := NewRuntime(context.Background(), 1, nil)
	s := &stopper{}
	err := rt.With(&AuxiliaryMessenger{}, func() error {
		tr, _, err := RunUnderTrace(rt, func(rt *Runtime, in trace.Input) (interface{}, error) {
			return nil, rt.With(s, func() error {
				_, err := rt.Sample("z", normal(t))
				return err
			})
		}, trace.Input{})
		if err != nil {
			return err
		}
		// Neither the trace messenger nor the auxiliary messenger
		// saw the sample.
		assert.False(t, tr.Has("z"))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, s.seen)
}
