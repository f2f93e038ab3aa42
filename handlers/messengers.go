package handlers

import (
	"github.com/Comcast/combinators/trace"
)

// TraceMessenger records every message as a site.
type TraceMessenger struct {
	tr   *trace.Trace
	last string
}

// NewTraceMessenger makes a TraceMessenger with an empty Trace.
func NewTraceMessenger() *TraceMessenger {
	return &TraceMessenger{
		tr: trace.New(),
	}
}

// Trace returns the Trace that's being recorded.
func (m *TraceMessenger) Trace() *trace.Trace {
	return m.tr
}

func (m *TraceMessenger) Process(rt *Runtime, msg *Message) error {
	return nil
}

// Postprocess adds the site and an edge from the previously recorded
// site.
func (m *TraceMessenger) Postprocess(rt *Runtime, msg *Message) error {
	if msg.Type == trace.ParamType && m.tr.Has(msg.Name) {
		return nil
	}
	if err := m.tr.Add(msg.Site()); err != nil {
		return err
	}
	if m.last != "" {
		m.tr.AddEdge(m.last, msg.Name)
	}
	m.last = msg.Name
	return nil
}

// AuxiliaryMessenger marks every sample as auxiliary.
type AuxiliaryMessenger struct {
}

func (m *AuxiliaryMessenger) Process(rt *Runtime, msg *Message) error {
	if msg.Type == trace.SampleType {
		msg.Infer.IsAuxiliary = true
	}
	return nil
}

func (m *AuxiliaryMessenger) Postprocess(rt *Runtime, msg *Message) error {
	return nil
}

// SubstitutionMismatch occurs when a replayed value can't be scored by
// the distribution at the site that receives it.
type SubstitutionMismatch struct {
	Addr string
	Err  error
}

func (e *SubstitutionMismatch) Error() string {
	return `can't substitute at "` + e.Addr + `": ` + e.Err.Error()
}

func (e *SubstitutionMismatch) Unwrap() error {
	return e.Err
}

// SubstitutionMessenger replays values from a reference Trace.
//
// A sample that isn't observed takes the value of the reference's
// sample site at the same address, provided that site isn't observed
// either.  The reference site's infer metadata is merged into the
// message, which is then marked Substituted.
type SubstitutionMessenger struct {
	Ref *trace.Trace
}

func (m *SubstitutionMessenger) Process(rt *Runtime, msg *Message) error {
	if m.Ref == nil || msg.Type != trace.SampleType || msg.IsObserved {
		return nil
	}
	ref := m.Ref.Site(msg.Name)
	if ref == nil || ref.Type != trace.SampleType || ref.IsObserved {
		return nil
	}
	lp, err := msg.Dist.LogProb(ref.Value)
	if err != nil {
		return &SubstitutionMismatch{
			Addr: msg.Name,
			Err:  err,
		}
	}
	msg.Value = ref.Value
	msg.LogProb = lp
	msg.Infer.Update(ref.Infer)
	msg.Infer.Substituted = true
	msg.Done = true
	return nil
}

func (m *SubstitutionMessenger) Postprocess(rt *Runtime, msg *Message) error {
	return nil
}

// RunUnderTrace executes the program and records a Trace of its
// sites, including _INPUT and _RETURN.
func RunUnderTrace(rt *Runtime, prog Program, in trace.Input) (*trace.Trace, interface{}, error) {
	tm := NewTraceMessenger()
	var out interface{}
	err := rt.With(tm, func() error {
		var err error
		out, err = prog(rt, in)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	tr := tm.Trace()
	input := in.Copy()
	if err := tr.Add(&trace.Site{
		Name:  trace.InputAddr,
		Type:  trace.InputType,
		Input: &input,
	}); err != nil {
		return nil, nil, err
	}
	if err := tr.Add(&trace.Site{
		Name:  trace.ReturnAddr,
		Type:  trace.ReturnType,
		Value: out,
	}); err != nil {
		return nil, nil, err
	}
	return tr, out, nil
}

// RunWithSubstitution is RunUnderTrace with values replayed from the
// reference Trace.
func RunWithSubstitution(rt *Runtime, ref *trace.Trace, prog Program, in trace.Input) (*trace.Trace, interface{}, error) {
	var (
		tr  *trace.Trace
		out interface{}
	)
	err := rt.With(&SubstitutionMessenger{Ref: ref}, func() error {
		var err error
		tr, out, err = RunUnderTrace(rt, prog, in)
		return err
	})
	return tr, out, err
}

// RunWithAuxiliaryMarking is RunUnderTrace with every sample site
// marked auxiliary.
func RunWithAuxiliaryMarking(rt *Runtime, prog Program, in trace.Input) (*trace.Trace, interface{}, error) {
	var (
		tr  *trace.Trace
		out interface{}
	)
	err := rt.With(&AuxiliaryMessenger{}, func() error {
		var err error
		tr, out, err = RunUnderTrace(rt, prog, in)
		return err
	})
	return tr, out, err
}
