package tools

// dot -Tpng g.dot > g.png

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/Comcast/combinators/core"
	"github.com/Comcast/combinators/trace"
	"github.com/Comcast/combinators/util"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Dot makes a Graphviz dot file for the given trace.  A really ugly
// dot file.
//
// Sample sites are records labeled with their distribution and value.
// Observed sites are blue, substituted sites are orange, and auxiliary
// sites are dashed.  Bookkeeping sites (_RETURN etc.) are notes.  The
// optional highlight is an address to draw in red.
func Dot(tr *trace.Trace, w io.WriteCloser, highlight string) error {

	util.Logger().Debug("dot", zap.Int("sites", tr.Len()))

	fmt.Fprintf(w, "digraph G {\n")
	fmt.Fprintf(w, `  graph [ordering=out,rankdir=TB,nodesep=0.3,ranksep=0.6]
  node [shape="record" style="rounded,filled"]
  edge [fontsize = "12"]
`)

	err := tr.Do(func(addr string, s *trace.Site) error {
		label := html(addr)

		fillcolor := "#99ddc8"
		color := "black"
		shape := "record"
		style := "filled"

		switch {
		case core.IsSampleType(s):
			if s.Dist != nil {
				label += "<BR/><FONT POINT-SIZE='8'>" + html(s.Dist.Family()) + "</FONT>"
				if ps := s.Dist.Params(); 0 < len(ps) {
					bs, err := yaml.Marshal(ps)
					if err != nil {
						bs = []byte(err.Error())
					}
					label += `<FONT POINT-SIZE="6"><BR/>` +
						strings.Replace(html(string(bs)), "\n", `<BR ALIGN="LEFT"/>`, -1) +
						`</FONT>`
				}
			}
			label += "<BR/>" + html(summarize(s.Value))
			if core.IsObserved(s) {
				fillcolor = "#2d93ad"
			}
			if core.IsSubstituted(s) {
				fillcolor = "#f9c74f"
			}
			if core.IsAuxiliary(s) {
				style += ",dashed"
			}
		default:
			shape = "note"
			fillcolor = "#eeeeee"
			if s.Type != trace.InputType {
				label += "<BR/><FONT POINT-SIZE='8'>" + html(summarize(s.Value)) + "</FONT>"
			}
		}

		if highlight == addr {
			color = "red"
			fillcolor = "#f98b8b"
			style += ",bold"
		}

		fmt.Fprintf(w, "  \"%s\" [shape=\"%s\", style=\"%s\", color=\"%s\", fillcolor=\"%s\", label=<%s> ]\n",
			escape(addr), shape, style, color, fillcolor, label)
		return nil
	})
	if err != nil {
		return err
	}

	for _, e := range tr.Edges() {
		fmt.Fprintf(w, "  \"%s\" -> \"%s\"\n", escape(e.From), escape(e.To))
	}

	fmt.Fprintf(w, "}\n")
	return w.Close()
}

// PNG generates a PNG image based on output from Dot.
//
// This function with write two files: basename.dot and basename.png,
// where the basename is the given string.  The Graphviz dot program
// must be in the PATH.
func PNG(tr *trace.Trace, basename string, highlight string) (string, error) {
	dotname := basename + ".dot"
	pngname := basename + ".png"

	dotfile, err := os.Create(dotname)
	if err != nil {
		return pngname, err
	}
	if err := Dot(tr, dotfile, highlight); err != nil {
		dotfile.Close()
		return pngname, err
	}
	out, err := exec.Command(DotCommand, "-Tpng", "-Gstart=1", "-o", pngname, dotname).CombinedOutput()
	if err != nil {
		return pngname, fmt.Errorf("%s: %w: %s", DotCommand, err, out)
	}
	return pngname, nil
}

// DotCommand is the Graphviz program that PNG runs.
var DotCommand = "dot"

// summarize renders a site value briefly.
func summarize(x interface{}) string {
	s := fmt.Sprintf("%v", x)
	if 40 < len(s) {
		s = s[0:37] + "..."
	}
	return s
}

func html(s string) string {
	s = strings.Replace(s, "&", `&amp;`, -1)
	s = strings.Replace(s, "<", `&lt;`, -1)
	s = strings.Replace(s, ">", `&gt;`, -1)
	return s
}

func escape(s string) string {
	return strings.Replace(s, `"`, `\"`, -1)
}
