package core

import (
	"errors"
	"testing"

	"github.com/Comcast/combinators/dist"
	"github.com/Comcast/combinators/tensor"
	"github.com/Comcast/combinators/trace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture(t *testing.T, names ...string) *trace.Trace {
	d, err := dist.Normal(0, 1)
	require.NoError(t, err)
	tr := trace.New()
	for i, name := range names {
		require.NoError(t, tr.Add(&trace.Site{
			Name:  name,
			Type:  trace.SampleType,
			Dist:  d,
			Value: float64(i) / 2,
		}))
		if 0 < i {
			tr.AddEdge(names[i-1], name)
		}
	}
	require.NoError(t, SetParam(tr, trace.ReturnAddr, trace.ReturnType, "out"))
	return tr
}

func TestConcatTraces(t *testing.T) {
	t0 := fixture(t, "a", "b", "c")
	t1 := fixture(t, "d")

	// Drop "b" and any return sites.
	f := func(addr string, s *trace.Site) bool {
		return addr != "b" && IsSampleType(s)
	}
	tr, err := ConcatTraces(f, t0, t1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c", "d"}, tr.Addrs())
	assert.Empty(t, tr.Edges())

	// Sites are copies.
	tr.Site("a").Infer.IsAuxiliary = true
	assert.False(t, t0.Site("a").Infer.IsAuxiliary)

	tr, err = ConcatTraces(nil, t0)
	require.NoError(t, err)
	assert.Equal(t, []trace.Edge{{From: "a", To: "b"}, {From: "b", To: "c"}}, tr.Edges())
}

func TestConcatTracesDuplicate(t *testing.T) {
	_, err := ConcatTraces(NodeFilter(IsSampleType), fixture(t, "a"), fixture(t, "a"))
	var dup *trace.DuplicateSite
	assert.True(t, errors.As(err, &dup))
}

func TestConcatTracesIdempotent(t *testing.T) {
	tr := fixture(t, "a", "b", "c")
	tr.Site("b").IsObserved = true
	f := SampleFilter(NotObserved)

	once, err := ConcatTraces(f, tr)
	require.NoError(t, err)
	twice, err := ConcatTraces(f, once)
	require.NoError(t, err)
	assert.Equal(t, once.Addrs(), twice.Addrs())
	assert.Equal(t, []string{"a", "c"}, twice.Addrs())
}

func TestStackedLogProb(t *testing.T) {
	tr := fixture(t, "a", "b")

	none, err := StackedLogProb(tr, MembershipFilter())
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, none.Values())

	lp, err := StackedLogProb(tr, nil)
	require.NoError(t, err)
	want := logNormal(t, 0, 0) + logNormal(t, 0, 0.5)
	assert.InDelta(t, want, lp.Float(), 1e-12)
	assert.Equal(t, 1, lp.Len())
	assert.True(t, lp.RequiresGrad())

	// Filtered to one site.
	lp, err = StackedLogProb(tr, MembershipFilter("b"))
	require.NoError(t, err)
	assert.InDelta(t, logNormal(t, 0, 0.5), lp.Float(), 1e-12)
}

func TestStackedLogProbVectors(t *testing.T) {
	d, err := dist.New("normal", map[string]interface{}{"mu": 0.0, "sigma": 1.0, "n": 2})
	require.NoError(t, err)

	tr := trace.New()
	require.NoError(t, tr.Add(&trace.Site{Name: "v", Type: trace.SampleType, Dist: d, Value: []float64{0, 0}}))
	require.NoError(t, tr.Add(&trace.Site{Name: "w", Type: trace.SampleType, Dist: d, Value: []float64{0, 0}}))

	lp, err := StackedLogProb(tr, nil)
	require.NoError(t, err)
	require.Equal(t, 2, lp.Len())
	assert.InDelta(t, 2*logNormal(t, 0, 0), lp.At(0), 1e-12)
}

func TestGetMarginalMissing(t *testing.T) {
	_, _, err := GetMarginal(trace.New())
	var ms *MissingSite
	require.True(t, errors.As(err, &ms))
	assert.Equal(t, trace.ReturnAddr, ms.Addr)
}

func TestAccessors(t *testing.T) {
	tr := trace.New()
	require.NoError(t, SetInput(tr, trace.Call(1).With("k", 2)))
	require.NoError(t, SetParam(tr, trace.ReturnAddr, trace.ReturnType, "out"))
	require.NoError(t, SetParam(tr, trace.LogWeightAddr, trace.ReturnType, "oops"))

	out, err := Output(tr)
	require.NoError(t, err)
	assert.Equal(t, "out", out)

	_, err = LogWeight(tr)
	var bv *BadSiteValue
	require.True(t, errors.As(err, &bv))
	assert.Equal(t, trace.LogWeightAddr, bv.Addr)

	_, err = ValueAt(tr, "z")
	var ms *MissingSite
	require.True(t, errors.As(err, &ms))

	l, err := Loss(tr)
	require.NoError(t, err)
	assert.True(t, l.IsZero())

	require.NoError(t, SetParam(tr, trace.LossAddr, trace.LossType, tensor.Scalar(3)))
	l, err = Loss(tr)
	require.NoError(t, err)
	assert.Equal(t, 3.0, l.Float())

	assert.Empty(t, Addrs(tr))
	in := tr.Site(trace.InputAddr).Input
	assert.Equal(t, 2, in.Kwargs["k"])
}

func TestAssertNoOverlap(t *testing.T) {
	assert.NoError(t, AssertNoOverlap(fixture(t, "a", "b"), fixture(t, "c"), "here"))

	err := AssertNoOverlap(fixture(t, "b", "a", "c"), fixture(t, "c", "a"), "here")
	var ac *AddressCollision
	require.True(t, errors.As(err, &ac))
	assert.Equal(t, []string{"a", "c"}, ac.Addrs)
	assert.Contains(t, ac.Error(), "here")

	// Reserved sites never collide.
	assert.NoError(t, AssertNoOverlap(fixture(t), fixture(t), "here"))
}
