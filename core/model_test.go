package core

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Comcast/combinators/handlers"
	"github.com/Comcast/combinators/params"
	"github.com/Comcast/combinators/trace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGaussianModel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m, err := GaussianModel(ctx)
	require.NoError(t, err)

	store := params.NewMemStore()
	require.NoError(t, m.InitParams(ctx, store))
	names, err := store.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"loc"}, names)

	rt := handlers.NewRuntime(ctx, 1, store)
	tr, err := m.Invoke(rt, trace.Call(0.5))
	require.NoError(t, err)

	assert.Equal(t, []string{"z", "x"}, Addrs(tr))
	lw, err := LogWeight(tr)
	require.NoError(t, err)
	assert.True(t, lw.IsFinite())
	assert.False(t, lw.RequiresGrad())

	l, err := Loss(tr)
	require.NoError(t, err)
	assert.True(t, l.RequiresGrad())

	_, err = m.Invoke(handlers.NewRuntime(ctx, 1, nil), trace.Input{})
	assert.Error(t, err)
}

// natives are Go programs for models built in tests.
func natives(m *Model) *Model {
	for name, p := range m.Programs {
		prim := sampler(name)
		if name == "observer" {
			prim = observer()
		}
		p.Func = prim.Program
	}
	return m
}

func parseModel(t *testing.T, js string) *Model {
	var m Model
	require.NoError(t, json.Unmarshal([]byte(js), &m))
	return natives(&m)
}

func TestModelFromJSON(t *testing.T) {
	m := parseModel(t, `
{"name":"nested",
 "paramSpecs":{"scale":{"default":[1,2]}},
 "programs":{"observer":{},"z":{},"u":{},"w":{}},
 "root":{"propose":{
   "p":{"extend":{"p":{"program":"observer"},"f":"u"}},
   "q":{"compose":{"q2":{"program":"z"},"q1":{"program":"w"}}},
   "loss":"elbo"}}}`)

	ctx := context.Background()
	require.NoError(t, m.Compile(ctx, nil, false))
	assert.Equal(t, []string{"observer", "u", "w", "z"}, m.Root.References())

	tr, err := m.Invoke(handlers.NewRuntime(ctx, 3, nil), trace.Input{})
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "x"}, Addrs(tr))
	assert.True(t, tr.Site("z").Infer.Substituted)

	store := params.NewMemStore()
	require.NoError(t, m.InitParams(ctx, store))
	v, err := params.MustGet(ctx, store, "scale")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, v.Values())
}

func TestModelErrors(t *testing.T) {
	ctx := context.Background()

	m := &Model{Name: "empty"}
	assert.Equal(t, ErrNoRoot, m.Compile(ctx, nil, false))

	_, err := m.Invoke(handlers.NewRuntime(ctx, 1, nil), trace.Input{})
	var nc *ModelNotCompiled
	assert.True(t, errors.As(err, &nc))

	m = parseModel(t, `{"name":"m","programs":{"z":{}},"root":{"program":"y"}}`)
	err = m.Compile(ctx, nil, false)
	var up *UnknownProgram
	require.True(t, errors.As(err, &up))
	assert.Equal(t, "y", up.Name)

	m = parseModel(t, `{"programs":{"z":{}},"root":{}}`)
	assert.Equal(t, ErrBadExpr, m.Compile(ctx, nil, false))

	m = parseModel(t, `{"programs":{"z":{}},"root":{"program":"z","compose":{}}}`)
	assert.Equal(t, ErrBadExpr, m.Compile(ctx, nil, false))

	m = parseModel(t, `{"programs":{"z":{},"u":{}},"root":{"propose":{"p":{"program":"z"},"q":{"program":"u"},"loss":"tacos"}}}`)
	err = m.Compile(ctx, nil, false)
	var ul *UnknownLoss
	require.True(t, errors.As(err, &ul))

	// An Extend isn't a Proposal.
	m = parseModel(t, `
{"programs":{"z":{},"u":{},"w":{}},
 "root":{"compose":{"q2":{"extend":{"p":{"program":"z"},"f":"u"}},"q1":{"program":"w"}}}}`)
	err = m.Compile(ctx, nil, false)
	var tm *TypeMismatch
	require.True(t, errors.As(err, &tm))
	assert.Equal(t, "core.Proposal", tm.Want)

	// A Compose isn't a Target.
	m = parseModel(t, `
{"programs":{"z":{},"u":{},"w":{}},
 "root":{"extend":{"p":{"compose":{"q2":{"program":"z"},"q1":{"program":"w"}}},"f":"u"}}}`)
	err = m.Compile(ctx, nil, false)
	require.True(t, errors.As(err, &tm))
	assert.Equal(t, "core.Target", tm.Want)
}

func TestModelNeedsInterpreter(t *testing.T) {
	var m Model
	require.NoError(t, json.Unmarshal([]byte(`
{"programs":{"z":{"source":{"interpreter":"cobol","source":"MOVE"}}},
 "root":{"program":"z"}}`), &m))
	err := m.Compile(context.Background(), nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), InterpreterNotFound.Error())
}

func TestParamSpecValid(t *testing.T) {
	s := &ParamSpec{}
	assert.Equal(t, ErrNoDefault, s.Valid())
	s.Optional = true
	assert.NoError(t, s.Valid())

	m := &Model{ParamSpecs: map[string]ParamSpec{"loc": {}}}
	assert.Error(t, m.InitParams(context.Background(), params.NewMemStore()))
}

func TestParamNames(t *testing.T) {
	m := &Model{}
	assert.Empty(t, m.ParamNames())

	m.ParamSpecs = map[string]ParamSpec{
		"scale": {Default: []float64{1}},
		"loc":   {Default: []float64{0}},
	}
	assert.Equal(t, []string{"loc", "scale"}, m.ParamNames())
}

func TestLossNames(t *testing.T) {
	assert.Equal(t, []string{"elbo", "zero"}, LossNames())
}

func TestGensym(t *testing.T) {
	a := Gensym(handlers.NewRuntime(context.Background(), 1, nil).Source(), 16)
	b := Gensym(handlers.NewRuntime(context.Background(), 1, nil).Source(), 16)
	assert.Len(t, a, 16)
	assert.Equal(t, a, b)
}
