package core

import (
	"sort"

	"github.com/Comcast/combinators/tensor"
	"github.com/Comcast/combinators/trace"
)

// ConcatTraces merges the given traces in order, keeping the sites
// that pass the filter.
//
// Sites are copied.  An edge survives if both of its endpoints
// survived in the trace that carried it.  A duplicate address is the
// error that trace.Add returns; callers should check for overlap
// first.
func ConcatTraces(filter SiteFilter, traces ...*trace.Trace) (*trace.Trace, error) {
	if filter == nil {
		filter = All
	}
	acc := trace.New()
	for _, tr := range traces {
		if tr == nil {
			continue
		}
		kept := make(map[string]bool, tr.Len())
		err := tr.Do(func(addr string, s *trace.Site) error {
			if !filter(addr, s) {
				return nil
			}
			kept[addr] = true
			return acc.Add(s.Copy())
		})
		if err != nil {
			return nil, err
		}
		for _, e := range tr.Edges() {
			if kept[e.From] && kept[e.To] {
				acc.AddEdge(e.From, e.To)
			}
		}
	}
	return acc, nil
}

// StackedLogProb computes the log densities of the sample sites that
// pass the filter and sums them elementwise.
//
// No such sites gives [0.0].
func StackedLogProb(tr *trace.Trace, filter SiteFilter) (tensor.Tensor, error) {
	if filter == nil {
		filter = All
	}
	if err := tr.ComputeLogProb(filter); err != nil {
		return tensor.Tensor{}, err
	}
	lps := make([]tensor.Tensor, 0, tr.Len())
	tr.Do(func(addr string, s *trace.Site) error {
		if s.HasLogProb() && filter(addr, s) {
			lps = append(lps, s.LogProb)
		}
		return nil
	})
	return tensor.StackSum(lps)
}

// GetMarginal finds the output of the original target of a (possibly
// nested) Extend by following the return site's MReturnNode links.
// The returned trace has only the non-auxiliary sample sites.
func GetMarginal(tr *trace.Trace) (*trace.Trace, *trace.Site, error) {
	out := tr.Site(trace.ReturnAddr)
	if out == nil {
		return nil, nil, &MissingSite{trace.ReturnAddr}
	}
	for out.Infer.MReturnNode != nil {
		out = out.Infer.MReturnNode
	}
	m, err := ConcatTraces(SampleFilter(NotAuxiliary), tr)
	if err != nil {
		return nil, nil, err
	}
	return m, out, nil
}

// SetInput records the call at _INPUT.
func SetInput(tr *trace.Trace, in trace.Input) error {
	input := in.Copy()
	return tr.Add(&trace.Site{
		Name:  trace.InputAddr,
		Type:  trace.InputType,
		Input: &input,
	})
}

// SetParam records a bookkeeping value.
func SetParam(tr *trace.Trace, name string, typ trace.SiteType, value interface{}) error {
	return tr.Add(&trace.Site{
		Name:  name,
		Type:  typ,
		Value: value,
	})
}

// ValueAt returns the value of the site at the address.
func ValueAt(tr *trace.Trace, addr string) (interface{}, error) {
	s := tr.Site(addr)
	if s == nil {
		return nil, &MissingSite{addr}
	}
	return s.Value, nil
}

func tensorAt(tr *trace.Trace, addr string) (tensor.Tensor, error) {
	x, err := ValueAt(tr, addr)
	if err != nil {
		return tensor.Tensor{}, err
	}
	t, is := x.(tensor.Tensor)
	if !is {
		return tensor.Tensor{}, &BadSiteValue{
			Addr:  addr,
			Want:  "tensor",
			Value: x,
		}
	}
	return t, nil
}

// LogWeight returns the value at _LOGWEIGHT.
func LogWeight(tr *trace.Trace) (tensor.Tensor, error) {
	return tensorAt(tr, trace.LogWeightAddr)
}

// Output returns the value at _RETURN.
func Output(tr *trace.Trace) (interface{}, error) {
	return ValueAt(tr, trace.ReturnAddr)
}

// Loss returns the value at _LOSS, which defaults to [0.0].
func Loss(tr *trace.Trace) (tensor.Tensor, error) {
	if !tr.Has(trace.LossAddr) {
		return tensor.Zero(), nil
	}
	return tensorAt(tr, trace.LossAddr)
}

// Addrs returns the addresses of the sample sites in trace order.
func Addrs(tr *trace.Trace) []string {
	acc := make([]string, 0, tr.Len())
	tr.Do(func(addr string, s *trace.Site) error {
		if IsSampleType(s) {
			acc = append(acc, addr)
		}
		return nil
	})
	return acc
}

// AssertNoOverlap returns an *AddressCollision if the traces share a
// sample address.
func AssertNoOverlap(t0, t1 *trace.Trace, location string) error {
	var shared []string
	for _, addr := range Addrs(t0) {
		if IsSampleType(t1.Site(addr)) {
			shared = append(shared, addr)
		}
	}
	if len(shared) == 0 {
		return nil
	}
	sort.Strings(shared)
	return &AddressCollision{
		Location: location,
		Addrs:    shared,
	}
}
