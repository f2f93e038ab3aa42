/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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

// Package trace provides the record of a probabilistic program
// execution: a directed graph of named sites.
//
// A Site is a random choice, an observation, or a bookkeeping slot.
// Sites are kept in insertion order so that every iteration over a
// Trace is deterministic.
package trace

import (
	"encoding/json"
	"errors"

	"github.com/Comcast/combinators/dist"
	"github.com/Comcast/combinators/tensor"
)

// SiteType says what kind of thing a Site records.
type SiteType string

const (
	SampleType SiteType = "sample"
	ReturnType SiteType = "return"
	InputType  SiteType = "input"
	LossType   SiteType = "loss"
	ParamType  SiteType = "param"
)

// Reserved addresses.  Reserved sites never represent random choices.
const (
	InputAddr     = "_INPUT"
	ReturnAddr    = "_RETURN"
	LogWeightAddr = "_LOGWEIGHT"
	LossAddr      = "_LOSS"
)

// IsReserved reports whether the address is one of the bookkeeping
// addresses.
func IsReserved(addr string) bool {
	switch addr {
	case InputAddr, ReturnAddr, LogWeightAddr, LossAddr:
		return true
	}
	return false
}

// Infer is per-site inference metadata.
//
// The flags that the combinators care about are explicit fields.
// Extra holds anything else an inference algorithm wants to hang on a
// site.
type Infer struct {
	// Substituted means that the site's value was replayed from a
	// reference trace.
	Substituted bool `json:"substituted,omitempty" yaml:",omitempty"`

	// IsAuxiliary means that the site was produced by an auxiliary
	// program (the second argument of an extend).
	IsAuxiliary bool `json:"isAuxiliary,omitempty" yaml:"isAuxiliary,omitempty"`

	// MReturnNode, which is only set on a return site, points at
	// the return site of the target that an extend wrapped.
	MReturnNode *Site `json:"-" yaml:"-"`

	Extra map[string]interface{} `json:"extra,omitempty" yaml:",omitempty"`
}

// Copy makes a copy with its own Extra map.
func (i Infer) Copy() Infer {
	acc := i
	if i.Extra != nil {
		acc.Extra = make(map[string]interface{}, len(i.Extra))
		for k, v := range i.Extra {
			acc.Extra[k] = v
		}
	}
	return acc
}

// Update overlays the given metadata: flags are or'ed, Extra entries
// overwrite, and a non-nil MReturnNode replaces.
func (i *Infer) Update(more Infer) {
	i.Substituted = i.Substituted || more.Substituted
	i.IsAuxiliary = i.IsAuxiliary || more.IsAuxiliary
	if more.MReturnNode != nil {
		i.MReturnNode = more.MReturnNode
	}
	if len(more.Extra) > 0 && i.Extra == nil {
		i.Extra = make(map[string]interface{}, len(more.Extra))
	}
	for k, v := range more.Extra {
		i.Extra[k] = v
	}
}

// Site is one node in a Trace.
type Site struct {
	Name       string            `json:"name"`
	Type       SiteType          `json:"type"`
	Dist       dist.Distribution `json:"-" yaml:"-"`
	Value      interface{}       `json:"value,omitempty" yaml:",omitempty"`
	IsObserved bool              `json:"isObserved,omitempty" yaml:"isObserved,omitempty"`

	// LogProb is empty until ComputeLogProb fills it in.
	LogProb tensor.Tensor `json:"logProb,omitempty" yaml:"logProb,omitempty"`

	Infer Infer `json:"infer,omitempty" yaml:",omitempty"`

	// Input is only used by input sites.
	Input *Input `json:"input,omitempty" yaml:",omitempty"`
}

// HasLogProb reports whether the log density has been computed.
func (s *Site) HasLogProb() bool {
	return s != nil && !s.LogProb.Empty()
}

// Copy makes a shallow copy of the Site with its own Infer.
func (s *Site) Copy() *Site {
	acc := *s
	acc.Infer = s.Infer.Copy()
	return &acc
}

// DuplicateSite occurs when a Trace is given a second site at an
// address that's already taken.
type DuplicateSite struct {
	Addr string
	Type SiteType
}

func (e *DuplicateSite) Error() string {
	return `multiple ` + string(e.Type) + ` sites named "` + e.Addr + `"`
}

// ErrNoName occurs when a Site without a Name is added to a Trace.
var ErrNoName = errors.New("site has no name")

// Edge is a precedence/dependency edge between two addresses.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Trace is a directed graph of Sites keyed by address.
//
// A Trace is not safe for concurrent mutation.
type Trace struct {
	nodes map[string]*Site
	order []string
	edges []Edge
}

// New makes an empty Trace.
func New() *Trace {
	return &Trace{
		nodes: make(map[string]*Site, 8),
		order: make([]string, 0, 8),
	}
}

// Len is the number of sites.
func (t *Trace) Len() int {
	return len(t.order)
}

// Has reports whether the address has a site.
func (t *Trace) Has(addr string) bool {
	_, have := t.nodes[addr]
	return have
}

// Site returns the site at the address or nil.
func (t *Trace) Site(addr string) *Site {
	return t.nodes[addr]
}

// Addrs returns all addresses in insertion order.
func (t *Trace) Addrs() []string {
	acc := make([]string, len(t.order))
	copy(acc, t.order)
	return acc
}

// Sites returns all sites in insertion order.
func (t *Trace) Sites() []*Site {
	acc := make([]*Site, len(t.order))
	for i, addr := range t.order {
		acc[i] = t.nodes[addr]
	}
	return acc
}

// Do calls f on each site in insertion order, stopping at the first
// error.
func (t *Trace) Do(f func(addr string, s *Site) error) error {
	for _, addr := range t.order {
		if err := f(addr, t.nodes[addr]); err != nil {
			return err
		}
	}
	return nil
}

// Add adds the given site under its Name.
//
// A reserved address replaces any existing site at that address.
// Otherwise a second site at the same address is a *DuplicateSite,
// except that param sites can be repeated (the first one wins).
func (t *Trace) Add(s *Site) error {
	if s.Name == "" {
		return ErrNoName
	}
	if old, have := t.nodes[s.Name]; have {
		switch {
		case IsReserved(s.Name):
			t.nodes[s.Name] = s
			return nil
		case old.Type == ParamType && s.Type == ParamType:
			return nil
		default:
			return &DuplicateSite{Addr: s.Name, Type: s.Type}
		}
	}
	t.nodes[s.Name] = s
	t.order = append(t.order, s.Name)
	return nil
}

// AddEdge records an edge.  Both endpoints should already be in the
// Trace.
func (t *Trace) AddEdge(from, to string) {
	t.edges = append(t.edges, Edge{From: from, To: to})
}

// Edges returns the edges in insertion order.
func (t *Trace) Edges() []Edge {
	acc := make([]Edge, len(t.edges))
	copy(acc, t.edges)
	return acc
}

// Filter selects sites.
type Filter func(addr string, s *Site) bool

// ComputeLogProb fills in LogProb for every sample site that passes
// the filter and doesn't have one yet.
//
// Sites without a Distribution are skipped.
func (t *Trace) ComputeLogProb(f Filter) error {
	for _, addr := range t.order {
		s := t.nodes[addr]
		if s.Type != SampleType || s.HasLogProb() || s.Dist == nil {
			continue
		}
		if f != nil && !f(addr, s) {
			continue
		}
		lp, err := s.Dist.LogProb(s.Value)
		if err != nil {
			return &LogProbError{Addr: addr, Err: err}
		}
		s.LogProb = lp
	}
	return nil
}

// LogProbError wraps a failure to score a site.
type LogProbError struct {
	Addr string
	Err  error
}

func (e *LogProbError) Error() string {
	return `log_prob at "` + e.Addr + `": ` + e.Err.Error()
}

func (e *LogProbError) Unwrap() error {
	return e.Err
}

// MarshalJSON renders the sites in order and the edges.
func (t *Trace) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"sites": t.Sites(),
		"edges": t.edges,
	})
}

// String renders the Trace as JSON.
func (t *Trace) String() string {
	js, err := json.Marshal(t)
	if err != nil {
		return "trace{*}"
	}
	return string(js)
}
