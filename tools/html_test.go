package tools

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/Comcast/combinators/handlers"
	"github.com/Comcast/combinators/trace"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTraceHTML(t *testing.T) {
	out := &bytes.Buffer{}
	require.NoError(t, RenderTraceHTML(gaussianTrace(t), "Some *trace*.", out))

	s := out.String()
	assert.Contains(t, s, "<em>trace</em>")
	assert.Contains(t, s, `<span id="z" class="addr">z</span>`)
	assert.Contains(t, s, "substituted")
	assert.Contains(t, s, `class="site observed"`)
}

func TestReadAndRenderModelPage(t *testing.T) {
	out := &bytes.Buffer{}
	require.NoError(t, ReadAndRenderModelPage("testdata/gaussian.yaml", []string{"model.css"}, out))

	s := out.String()
	assert.Contains(t, s, "<title>gaussian</title>")
	assert.Contains(t, s, "<em>learnable</em>")
	assert.Contains(t, s, `_.observe(&#34;x&#34;`)
	assert.Contains(t, s, `href="#param-loc"`)
	assert.Contains(t, s, `<span id="param-loc" class="paramName">loc</span>`)
	assert.Contains(t, s, "location.")
}

func TestModelFromYAML(t *testing.T) {
	src, err := ReadFileWithInlines("testdata/gaussian.yaml")
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(src), "%inline"))

	m, err := ParseModel(src)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, m.Compile(ctx, nil, false))

	tr, err := m.Invoke(handlers.NewRuntime(ctx, 1, nil), trace.Call(0.5))
	require.NoError(t, err)
	assert.True(t, tr.Site("z").Infer.Substituted)
	assert.True(t, tr.Site("x").IsObserved)

	js, err := ModelJSON(m)
	require.NoError(t, err)
	assert.Contains(t, string(js), `"interpreter": "goja"`)
}
