package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"

	"github.com/Comcast/combinators/core"
	"github.com/Comcast/combinators/interpreters/noop"
	"github.com/Comcast/combinators/trace"
	"github.com/Comcast/combinators/util/testutil"

	"github.com/jsccast/yaml"
	md "github.com/russross/blackfriday/v2"
)

func esc(x interface{}) string {
	return template.HTMLEscapeString(fmt.Sprintf("%v", x))
}

// RenderTraceHTML writes a table of the trace's sites, preceded by
// the given Markdown doc (if any).
func RenderTraceHTML(tr *trace.Trace, doc string, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	if doc != "" {
		f(`<div class="traceDoc doc">%s</div>`, md.Run([]byte(doc)))
	}

	f(`<div class="sites"><table>`)
	f(`<tr><th>address</th><th>type</th><th>distribution</th><th>value</th><th>log prob</th><th>infer</th></tr>`)
	err := tr.Do(func(addr string, s *trace.Site) error {
		class := "site"
		if s.IsObserved {
			class += " observed"
		}
		f(`<tr class="%s"><td><span id="%s" class="addr">%s</span></td><td>%s</td>`,
			class, esc(addr), esc(addr), esc(s.Type))

		var family string
		if s.Dist != nil {
			family = s.Dist.Family() + " " + testutil.JS(s.Dist.Params())
		}
		f(`<td><code>%s</code></td>`, esc(family))

		value := s.Value
		if s.Input != nil {
			value = *s.Input
		}
		f(`<td><code>%s</code></td>`, esc(testutil.JS(value)))

		var lp string
		if s.HasLogProb() {
			lp = s.LogProb.String()
		}
		f(`<td>%s</td>`, esc(lp))

		var tags []string
		if s.Infer.Substituted {
			tags = append(tags, "substituted")
		}
		if s.Infer.IsAuxiliary {
			tags = append(tags, "auxiliary")
		}
		if s.Infer.MReturnNode != nil {
			tags = append(tags, "marginal")
		}
		f(`<td>%s</td></tr>`, esc(tags))
		return nil
	})
	if err != nil {
		return err
	}
	f(`</table></div>`)

	if edges := tr.Edges(); 0 < len(edges) {
		f(`<div class="edges"><ul>`)
		for _, e := range edges {
			f(`<li><a href="#%s">%s</a> &rarr; <a href="#%s">%s</a></li>`,
				esc(e.From), esc(e.From), esc(e.To), esc(e.To))
		}
		f(`</ul></div>`)
	}

	return nil
}

// RenderModelHTML writes the model's documentation, programs, and
// combinator expression.
func RenderModelHTML(m *core.Model, out io.Writer) error {
	f := func(format string, args ...interface{}) {
		fmt.Fprintf(out, format+"\n", args...)
	}

	f(`<div class="modelDoc doc">%s</div>`, md.Run([]byte(m.Doc)))

	if m.Root != nil {
		bs, err := yaml.Marshal(m.Root)
		if err != nil {
			return err
		}
		f(`<div class="root"><pre>%s</pre></div>`, esc(string(bs)))
	}

	if 0 < len(m.ParamSpecs) {
		f(`<div class="params"><table>`)
		for _, name := range m.ParamNames() {
			p := m.ParamSpecs[name]
			f(`<tr class="param"><td><span id="param-%s" class="paramName">%s</span></td>`, esc(name), esc(name))
			f(`<td><code>%s</code></td>`, esc(testutil.JS(p.Default)))
			f(`<td><div class="paramDoc doc">%s</div></td></tr>`, md.Run([]byte(p.Doc)))
		}
		f(`</table></div>`)
	}

	f(`<div class="programs"><table>`)
	for _, name := range m.ProgramNames() {
		p := m.Programs[name]
		f(`<tr class="program"><td><span id="%s" class="programName">%s</span></td><td>`, esc(name), esc(name))
		if p == nil {
			f(`</td></tr>`)
			continue
		}
		if p.Doc != "" {
			f(`<div class="programDoc doc">%s</div>`, md.Run([]byte(p.Doc)))
		}
		if p.Source != nil {
			f(`<div class="interpreter">%s</div>`, esc(p.Source.Interpreter))
			src, is := p.Source.Source.(string)
			if !is {
				src = testutil.JS(p.Source.Source)
			}
			f(`<div class="code"><pre>%s</pre></div>`, esc(src))
		}
		for _, r := range p.Requires {
			f(`<div class="requires"><a href="#param-%s"><code>%s</code></a></div>`, esc(r), esc(r))
		}
		f(`</td></tr>`)
	}
	f(`</table></div>`)

	return nil
}

// RenderModelPage writes a complete HTML page for the model and,
// optionally, a trace it produced.
func RenderModelPage(m *core.Model, tr *trace.Trace, out io.Writer, cssFiles []string) error {

	if cssFiles == nil {
		cssFiles = []string{"/static/model-html.css"}
	}

	fmt.Fprintf(out, `<!DOCTYPE html>
<meta charset="utf-8">
<html>
  <head>
  <title>%s</title>
`, esc(m.Name))

	for _, cssFile := range cssFiles {
		fmt.Fprintf(out, "  <link href=\"%s\" rel=\"stylesheet\">\n", cssFile)
	}

	fmt.Fprintf(out, `
  </head>
  <body>
    <h1>%s</h1>
`, esc(m.Name))

	if err := RenderModelHTML(m, out); err != nil {
		return err
	}

	if tr != nil {
		fmt.Fprintf(out, "<h2>trace</h2>\n")
		if err := RenderTraceHTML(tr, "", out); err != nil {
			return err
		}
	}

	fmt.Fprintf(out, `
  </body>
</html>
`)

	return nil
}

// ParseModel reads a YAML (or JSON) model.
func ParseModel(src []byte) (*core.Model, error) {
	var m core.Model
	if err := yaml.Unmarshal(src, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// CheckModel compiles the model with silent no-op interpreters, so
// the structure of the model is checked without running any code.
func CheckModel(ctx context.Context, m *core.Model) error {
	is := core.NewInterpretersMap()
	for _, p := range m.Programs {
		if p != nil && p.Source != nil {
			is[p.Source.Interpreter] = &noop.Interpreter{Silent: true}
		}
	}
	return m.Compile(ctx, is, true)
}

// ReadAndRenderModelPage reads a model (with inlining), checks it,
// and renders it.
func ReadAndRenderModelPage(filename string, cssFiles []string, out io.Writer) error {
	src, err := ReadFileWithInlines(filename)
	if err != nil {
		return err
	}
	m, err := ParseModel(src)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err = CheckModel(ctx, m); err != nil {
		return err
	}

	return RenderModelPage(m, nil, out, cssFiles)
}

// ModelJSON is a utility for YAML-to-JSON conversion of models.
func ModelJSON(m *core.Model) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}
