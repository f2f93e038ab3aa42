/* Copyright 2018 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tools

import (
	"fmt"
	"io"
	"strings"

	"github.com/Comcast/combinators/core"
	"github.com/Comcast/combinators/trace"
	"github.com/Comcast/combinators/util"

	"go.uber.org/zap"
)

type MermaidOpts struct {
	// ShowValues will add each sample site's value to its label.
	ShowValues bool `json:"showValues"`

	// ObservedFill is the fill color of for observed sites.
	ObservedFill string `json:"observedFill,omitempty"`

	// SubstitutedFill is the fill color of for substituted sites.
	SubstitutedFill string `json:"substitutedFill,omitempty"`

	// Bookkeeping includes the reserved sites (_RETURN etc.).
	Bookkeeping bool `json:"bookkeeping,omitempty"`
}

// Mermaid makes a Mermaid (https://mermaidjs.github.io/) input file
// for the given trace.
func Mermaid(tr *trace.Trace, w io.WriteCloser, opts *MermaidOpts) error {

	if opts == nil {
		opts = &MermaidOpts{
			ShowValues:      true,
			ObservedFill:    "#bcf2db",
			SubstitutedFill: "#f9c74f",
		}
	}

	util.Logger().Debug("mermaid", zap.Int("sites", tr.Len()))

	fmt.Fprintf(w, "graph TB\n")

	nids := make(map[string]string)
	num := 0

	err := tr.Do(func(addr string, s *trace.Site) error {
		if !opts.Bookkeeping && !core.IsSampleType(s) {
			return nil
		}
		num++
		nid := fmt.Sprintf("n%d", num)
		nids[addr] = nid

		label := addr
		if opts.ShowValues && s.Type != trace.InputType {
			label += ": " + summarize(s.Value)
		}
		label = strings.Replace(label, `"`, `'`, -1)

		if core.IsSampleType(s) {
			fmt.Fprintf(w, "  %s(\"%s\")\n", nid, label)
		} else {
			fmt.Fprintf(w, "  %s[\"%s\"]\n", nid, label)
		}

		switch {
		case core.IsObserved(s) && opts.ObservedFill != "":
			fmt.Fprintf(w, "  style %s fill:%s\n", nid, opts.ObservedFill)
		case core.IsSubstituted(s) && opts.SubstitutedFill != "":
			fmt.Fprintf(w, "  style %s fill:%s\n", nid, opts.SubstitutedFill)
		}
		if core.IsAuxiliary(s) {
			fmt.Fprintf(w, "  style %s stroke-dasharray:5\n", nid)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, e := range tr.Edges() {
		from, have := nids[e.From]
		if !have {
			continue
		}
		to, have := nids[e.To]
		if !have {
			continue
		}
		fmt.Fprintf(w, "  %s --> %s\n", from, to)
	}

	fmt.Fprintf(w, "\n")

	return w.Close()
}
