package trace

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/Comcast/combinators/dist"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(t *testing.T, name string, x float64) *Site {
	d, err := dist.Normal(0, 1)
	require.NoError(t, err)
	return &Site{
		Name:  name,
		Type:  SampleType,
		Dist:  d,
		Value: x,
	}
}

func TestAddOrder(t *testing.T) {
	tr := New()
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, tr.Add(sample(t, name, 0)))
	}
	assert.Equal(t, []string{"c", "a", "b"}, tr.Addrs())
	assert.Equal(t, 3, tr.Len())
	assert.True(t, tr.Has("a"))
	assert.Nil(t, tr.Site("z"))
}

func TestAddDuplicate(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Add(sample(t, "z", 0)))

	err := tr.Add(sample(t, "z", 1))
	var dup *DuplicateSite
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, "z", dup.Addr)

	assert.Equal(t, ErrNoName, tr.Add(&Site{Type: SampleType}))
}

func TestAddReserved(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Add(&Site{Name: ReturnAddr, Type: ReturnType, Value: 1}))
	require.NoError(t, tr.Add(&Site{Name: ReturnAddr, Type: ReturnType, Value: 2}))
	assert.Equal(t, 2, tr.Site(ReturnAddr).Value)
	assert.Equal(t, 1, tr.Len())
}

func TestAddParam(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Add(&Site{Name: "loc", Type: ParamType, Value: 1}))
	require.NoError(t, tr.Add(&Site{Name: "loc", Type: ParamType, Value: 2}))
	assert.Equal(t, 1, tr.Site("loc").Value)
}

func TestComputeLogProb(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Add(sample(t, "a", 0)))
	require.NoError(t, tr.Add(sample(t, "b", 0)))
	require.NoError(t, tr.Add(&Site{Name: ReturnAddr, Type: ReturnType}))

	onlyA := func(addr string, s *Site) bool { return addr == "a" }
	require.NoError(t, tr.ComputeLogProb(onlyA))
	assert.True(t, tr.Site("a").HasLogProb())
	assert.False(t, tr.Site("b").HasLogProb())
	assert.False(t, tr.Site(ReturnAddr).HasLogProb())

	// Memoized values are left alone.
	lp := tr.Site("a").LogProb
	require.NoError(t, tr.ComputeLogProb(nil))
	assert.True(t, lp.Equal(tr.Site("a").LogProb))
	assert.True(t, tr.Site("b").HasLogProb())
}

func TestComputeLogProbError(t *testing.T) {
	tr := New()
	s := sample(t, "a", 0)
	s.Value = "chimp"
	require.NoError(t, tr.Add(s))

	err := tr.ComputeLogProb(nil)
	var lpe *LogProbError
	require.True(t, errors.As(err, &lpe))
	assert.Equal(t, "a", lpe.Addr)

	var bv *dist.BadValue
	assert.True(t, errors.As(err, &bv))
}

func TestInferUpdate(t *testing.T) {
	ret := &Site{Name: ReturnAddr}
	i := Infer{Extra: map[string]interface{}{"a": 1}}
	i.Update(Infer{
		IsAuxiliary: true,
		MReturnNode: ret,
		Extra:       map[string]interface{}{"a": 2, "b": 3},
	})
	assert.True(t, i.IsAuxiliary)
	assert.False(t, i.Substituted)
	assert.Equal(t, ret, i.MReturnNode)
	assert.Equal(t, map[string]interface{}{"a": 2, "b": 3}, i.Extra)

	// Copies don't share Extra.
	j := i.Copy()
	j.Extra["a"] = 4
	assert.Equal(t, 2, i.Extra["a"])
}

func TestInput(t *testing.T) {
	in := Call(1, 2).With("k", "v")
	p := in.Prepend(0)
	assert.Equal(t, []interface{}{0, 1, 2}, p.Args)
	assert.Equal(t, []interface{}{1, 2}, in.Args)
	assert.Equal(t, "v", p.Kwargs["k"])
	assert.Nil(t, p.Arg(7))
	assert.Equal(t, 0, p.Arg(0))
}

func TestMarshalJSON(t *testing.T) {
	tr := New()
	require.NoError(t, tr.Add(sample(t, "a", 0.5)))
	require.NoError(t, tr.Add(sample(t, "b", 1.5)))
	tr.AddEdge("a", "b")

	var x map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(tr.String()), &x))
	sites := x["sites"].([]interface{})
	require.Len(t, sites, 2)
	assert.Equal(t, "a", sites[0].(map[string]interface{})["name"])
	assert.Len(t, x["edges"], 1)
}
