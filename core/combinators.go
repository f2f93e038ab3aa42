package core

import (
	"github.com/Comcast/combinators/handlers"
	"github.com/Comcast/combinators/tensor"
	"github.com/Comcast/combinators/trace"
	"github.com/Comcast/combinators/util"

	"go.uber.org/zap"
)

// TraceProgram is anything that returns a Trace when invoked.
//
// A TraceProgram value is immutable, so it can be shared between
// goroutines as long as each uses its own Runtime.
type TraceProgram interface {
	Invoke(rt *handlers.Runtime, in trace.Input) (*trace.Trace, error)
}

// Target is a model-like TraceProgram.
type Target interface {
	TraceProgram
	target()
}

// Proposal is a guide-like TraceProgram.
type Proposal interface {
	TraceProgram
	proposal()
}

// TraceFunc adapts a function to a TraceProgram.
type TraceFunc func(rt *handlers.Runtime, in trace.Input) (*trace.Trace, error)

func (f TraceFunc) Invoke(rt *handlers.Runtime, in trace.Input) (*trace.Trace, error) {
	return f(rt, in)
}

type asTarget struct {
	TraceProgram
}

func (asTarget) target() {}

type asProposal struct {
	TraceProgram
}

func (asProposal) proposal() {}

// AsTarget gives a TraceProgram the Target role.
func AsTarget(p TraceProgram) Target {
	if t, is := p.(Target); is {
		return t
	}
	return asTarget{p}
}

// AsProposal gives a TraceProgram the Proposal role.
func AsProposal(p TraceProgram) Proposal {
	if q, is := p.(Proposal); is {
		return q
	}
	return asProposal{p}
}

// Auxiliary runs p with every sample site marked auxiliary.
func Auxiliary(p TraceProgram) TraceProgram {
	return TraceFunc(func(rt *handlers.Runtime, in trace.Input) (*trace.Trace, error) {
		var tr *trace.Trace
		err := rt.With(&handlers.AuxiliaryMessenger{}, func() error {
			var err error
			tr, err = p.Invoke(rt, in)
			return err
		})
		return tr, err
	})
}

// WithSubstitution runs p with values replayed from ref.
func WithSubstitution(p TraceProgram, ref *trace.Trace) TraceProgram {
	return TraceFunc(func(rt *handlers.Runtime, in trace.Input) (*trace.Trace, error) {
		var tr *trace.Trace
		err := rt.With(&handlers.SubstitutionMessenger{Ref: ref}, func() error {
			var err error
			tr, err = p.Invoke(rt, in)
			return err
		})
		return tr, err
	})
}

// Primitive wraps a raw stochastic program.
//
// The log weight of a Primitive's trace is the log density of its
// substituted and observed sample sites.
type Primitive struct {
	Name    string
	Program handlers.Program
}

// NewPrimitive makes a Primitive.
func NewPrimitive(name string, prog handlers.Program) *Primitive {
	return &Primitive{
		Name:    name,
		Program: prog,
	}
}

func (*Primitive) target()   {}
func (*Primitive) proposal() {}

func (p *Primitive) Invoke(rt *handlers.Runtime, in trace.Input) (*trace.Trace, error) {
	tr, out, err := handlers.RunUnderTrace(rt, p.Program, in)
	if err != nil {
		return nil, err
	}
	lp, err := StackedLogProb(tr, SampleFilter(Or(IsSubstituted, IsObserved)))
	if err != nil {
		return nil, err
	}
	if err = SetInput(tr, in); err != nil {
		return nil, err
	}
	if err = SetParam(tr, trace.ReturnAddr, trace.ReturnType, out); err != nil {
		return nil, err
	}
	if err = SetParam(tr, trace.LogWeightAddr, trace.ReturnType, lp); err != nil {
		return nil, err
	}
	return tr, nil
}

// Extend runs a target P and then an auxiliary program F on P's
// output.  F is usually a *Primitive.
//
// The log weight is P's log weight plus the log density of F's sample
// sites.  F may not observe anything, and F's sample addresses must
// be disjoint from P's.
type Extend struct {
	P Target
	F TraceProgram
}

func NewExtend(p Target, f TraceProgram) *Extend {
	return &Extend{
		P: p,
		F: f,
	}
}

func (*Extend) target() {}

func (e *Extend) Invoke(rt *handlers.Runtime, in trace.Input) (*trace.Trace, error) {
	pOut, err := e.P.Invoke(rt, in)
	if err != nil {
		return nil, err
	}
	pOutput, err := Output(pOut)
	if err != nil {
		return nil, err
	}
	fOut, err := Auxiliary(e.F).Invoke(rt, in.Prepend(pOutput))
	if err != nil {
		return nil, err
	}

	if err = AssertNoOverlap(pOut, fOut, "extend"); err != nil {
		return nil, err
	}

	if err = fOut.Do(func(addr string, s *trace.Site) error {
		if IsObserved(s) {
			return &AuxiliaryObservation{
				Location: "extend",
				Addr:     addr,
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	if !anySubstituted(pOut) && !anySubstituted(fOut) {
		lw, err := LogWeight(fOut)
		if err != nil {
			return nil, err
		}
		if !lw.IsZero() {
			return nil, &WeightNeutrality{
				Location:  "extend",
				LogWeight: lw,
			}
		}
	}

	logU2, err := StackedLogProb(fOut, NodeFilter(IsSampleType))
	if err != nil {
		return nil, err
	}

	tr, err := ConcatTraces(NodeFilter(IsSampleType), pOut, fOut)
	if err != nil {
		return nil, err
	}
	if err = SetInput(tr, in); err != nil {
		return nil, err
	}
	fOutput, err := Output(fOut)
	if err != nil {
		return nil, err
	}
	ret := &trace.Site{
		Name:  trace.ReturnAddr,
		Type:  trace.ReturnType,
		Value: fOutput,
		Infer: trace.Infer{
			MReturnNode: pOut.Site(trace.ReturnAddr),
		},
	}
	if err = tr.Add(ret); err != nil {
		return nil, err
	}
	pLW, err := LogWeight(pOut)
	if err != nil {
		return nil, err
	}
	if err = SetParam(tr, trace.LogWeightAddr, trace.ReturnType, pLW.Add(logU2)); err != nil {
		return nil, err
	}
	return tr, nil
}

func anySubstituted(tr *trace.Trace) bool {
	for _, s := range tr.Sites() {
		if IsSubstituted(s) {
			return true
		}
	}
	return false
}

// Compose runs two proposals on the same input and merges their
// traces.  The output is Q2's output.
type Compose struct {
	Q2 Proposal
	Q1 Proposal
}

func NewCompose(q2, q1 Proposal) *Compose {
	return &Compose{
		Q2: q2,
		Q1: q1,
	}
}

func (*Compose) proposal() {}

func (c *Compose) Invoke(rt *handlers.Runtime, in trace.Input) (*trace.Trace, error) {
	q1Out, err := c.Q1.Invoke(rt, in)
	if err != nil {
		return nil, err
	}
	q2Out, err := c.Q2.Invoke(rt, in)
	if err != nil {
		return nil, err
	}

	if err = AssertNoOverlap(q2Out, q1Out, "compose"); err != nil {
		return nil, err
	}

	tr, err := ConcatTraces(NodeFilter(IsSampleType), q2Out, q1Out)
	if err != nil {
		return nil, err
	}
	if err = SetInput(tr, in); err != nil {
		return nil, err
	}
	out, err := Output(q2Out)
	if err != nil {
		return nil, err
	}
	if err = SetParam(tr, trace.ReturnAddr, trace.ReturnType, out); err != nil {
		return nil, err
	}
	lw1, err := LogWeight(q1Out)
	if err != nil {
		return nil, err
	}
	lw2, err := LogWeight(q2Out)
	if err != nil {
		return nil, err
	}
	if err = SetParam(tr, trace.LogWeightAddr, trace.ReturnType, lw1.Add(lw2)); err != nil {
		return nil, err
	}
	return tr, nil
}

// LogWeightFunc computes the decomposed log weight of a Propose from
// the target's and the proposal's traces.
type LogWeightFunc func(p, q *trace.Trace) (lw, li tensor.Tensor, err error)

// DefaultLogWeight returns the proposal's log weight and the
// incremental weight lw(p) - lu, where lu is the log density of the
// proposal's own sites (not substituted, or observed).  Both are
// detached.
func DefaultLogWeight(p, q *trace.Trace) (tensor.Tensor, tensor.Tensor, error) {
	lw, err := LogWeight(q)
	if err != nil {
		return tensor.Tensor{}, tensor.Tensor{}, err
	}
	lu, err := StackedLogProb(q, SampleFilter(Or(NotSubstituted, IsObserved)))
	if err != nil {
		return tensor.Tensor{}, tensor.Tensor{}, err
	}
	pLW, err := LogWeight(p)
	if err != nil {
		return tensor.Tensor{}, tensor.Tensor{}, err
	}
	return lw.Detach(), pLW.Sub(lu).Detach(), nil
}

// Propose runs a proposal Q, replays its values into a target P, and
// weighs the result.
//
// The trace has P's marginal sites, P's marginal output, the log
// weight lw + li, and the loss accumulated from Q plus Loss(p, q, lw,
// li).
type Propose struct {
	P    Target
	Q    Proposal
	Loss LossFunc

	// LogWeight defaults to DefaultLogWeight.
	LogWeight LogWeightFunc
}

// NewPropose makes a Propose.  A nil loss means ZeroLoss.
func NewPropose(p Target, q Proposal, loss LossFunc) *Propose {
	return &Propose{
		P:    p,
		Q:    q,
		Loss: loss,
	}
}

func (*Propose) proposal() {}

func (pr *Propose) Invoke(rt *handlers.Runtime, in trace.Input) (*trace.Trace, error) {
	qOut, err := pr.Q.Invoke(rt, in)
	if err != nil {
		return nil, err
	}
	pOut, err := WithSubstitution(pr.P, qOut).Invoke(rt, in)
	if err != nil {
		return nil, err
	}

	tr, mOutput, err := GetMarginal(pOut)
	if err != nil {
		return nil, err
	}
	if err = SetInput(tr, in); err != nil {
		return nil, err
	}
	if err = SetParam(tr, trace.ReturnAddr, trace.ReturnType, mOutput.Value); err != nil {
		return nil, err
	}

	f := pr.LogWeight
	if f == nil {
		f = DefaultLogWeight
	}
	lw, li, err := f(pOut, qOut)
	if err != nil {
		return nil, err
	}
	if err = SetParam(tr, trace.LogWeightAddr, trace.ReturnType, lw.Add(li)); err != nil {
		return nil, err
	}

	prev, err := Loss(qOut)
	if err != nil {
		return nil, err
	}
	loss := pr.Loss
	if loss == nil {
		loss = ZeroLoss
	}
	acc, err := loss(pOut, qOut, lw, li)
	if err != nil {
		return nil, err
	}
	if err = SetParam(tr, trace.LossAddr, trace.LossType, prev.Add(acc)); err != nil {
		return nil, err
	}

	if util.Logging {
		util.Logger().Debug("propose",
			zap.Stringer("lw", lw),
			zap.Stringer("li", li),
			zap.Stringer("loss", prev.Add(acc)))
	}

	return tr, nil
}

// PreFunc rewrites the target's and the proposal's traces before a
// log weight is computed.
type PreFunc func(p, q *trace.Trace) (*trace.Trace, *trace.Trace, error)

// AugmentLogWeight returns a copy of the given *Propose whose log
// weight computation applies pre first.
//
// The given Propose isn't modified.
func AugmentLogWeight(x TraceProgram, pre PreFunc) (*Propose, error) {
	pr, is := x.(*Propose)
	if !is {
		return nil, typeMismatch("*core.Propose", x)
	}
	then := pr.LogWeight
	if then == nil {
		then = DefaultLogWeight
	}
	acc := *pr
	acc.LogWeight = func(p, q *trace.Trace) (tensor.Tensor, tensor.Tensor, error) {
		p, q, err := pre(p, q)
		if err != nil {
			return tensor.Tensor{}, tensor.Tensor{}, err
		}
		return then(p, q)
	}
	return &acc, nil
}
