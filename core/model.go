package core

import (
	"context"
	"errors"
	"sort"

	"github.com/Comcast/combinators/handlers"
	"github.com/Comcast/combinators/params"
	"github.com/Comcast/combinators/tensor"
	"github.com/Comcast/combinators/trace"
	"github.com/Comcast/combinators/util"

	"go.uber.org/zap"
)

// Model is a declarative combinator expression over named programs.
//
// A Model can be written in YAML or JSON.  Programs with Sources
// need interpreters, so a Model should be Compiled before use.  A
// compiled Model is a TraceProgram.
type Model struct {
	// Name is the generic name for this model.
	Name string `json:"name,omitempty" yaml:",omitempty"`

	// Version is the version of this model.  Something like
	// "1.2".
	Version string `json:"version,omitempty" yaml:",omitempty"`

	// Doc is general documentation about what the model does.
	Doc string `json:"doc,omitempty" yaml:",omitempty"`

	// ParamSpecs is an optional map from a parameter name to a
	// specification for that parameter.
	ParamSpecs map[string]ParamSpec `json:"paramSpecs,omitempty" yaml:"paramSpecs,omitempty"`

	// Programs are the primitives that Root can refer to.
	Programs map[string]*Program `json:"programs,omitempty" yaml:",omitempty"`

	// Root is the combinator expression that the Model invokes.
	Root *Expr `json:"root,omitempty" yaml:",omitempty"`

	root     TraceProgram
	compiled bool
}

// Expr is a combinator expression.  Exactly one field should be
// given.
type Expr struct {
	// Program is the name of one of the Model's Programs.
	Program string       `json:"program,omitempty" yaml:",omitempty"`
	Extend  *ExtendExpr  `json:"extend,omitempty" yaml:",omitempty"`
	Compose *ComposeExpr `json:"compose,omitempty" yaml:",omitempty"`
	Propose *ProposeExpr `json:"propose,omitempty" yaml:",omitempty"`
}

// ExtendExpr is Extend(P, F), where F must name a program.
type ExtendExpr struct {
	P *Expr  `json:"p"`
	F string `json:"f"`
}

// ComposeExpr is Compose(Q2, Q1).
type ComposeExpr struct {
	Q2 *Expr `json:"q2"`
	Q1 *Expr `json:"q1"`
}

// ProposeExpr is Propose(P, Q, Losses[Loss]).
type ProposeExpr struct {
	P    *Expr  `json:"p"`
	Q    *Expr  `json:"q"`
	Loss string `json:"loss,omitempty" yaml:",omitempty"`
}

// Walk calls f on the expression and then on each subexpression, in
// order, stopping at the first error.
func (e *Expr) Walk(f func(*Expr) error) error {
	if e == nil {
		return nil
	}
	if err := f(e); err != nil {
		return err
	}
	switch {
	case e.Extend != nil:
		return e.Extend.P.Walk(f)
	case e.Compose != nil:
		if err := e.Compose.Q2.Walk(f); err != nil {
			return err
		}
		return e.Compose.Q1.Walk(f)
	case e.Propose != nil:
		if err := e.Propose.P.Walk(f); err != nil {
			return err
		}
		return e.Propose.Q.Walk(f)
	}
	return nil
}

// References returns the names of the programs the expression refers
// to (including Extend's F), sorted and without duplicates.
func (e *Expr) References() []string {
	seen := make(map[string]bool)
	e.Walk(func(x *Expr) error {
		if x.Program != "" {
			seen[x.Program] = true
		}
		if x.Extend != nil && x.Extend.F != "" {
			seen[x.Extend.F] = true
		}
		return nil
	})
	acc := make([]string, 0, len(seen))
	for name := range seen {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

func (e *Expr) kinds() int {
	n := 0
	if e.Program != "" {
		n++
	}
	if e.Extend != nil {
		n++
	}
	if e.Compose != nil {
		n++
	}
	if e.Propose != nil {
		n++
	}
	return n
}

// ProgramNames returns the names of the Model's Programs, sorted.
func (m *Model) ProgramNames() []string {
	acc := make([]string, 0, len(m.Programs))
	for name := range m.Programs {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// ParamNames returns the names of the Model's ParamSpecs, sorted.
func (m *Model) ParamNames() []string {
	acc := make([]string, 0, len(m.ParamSpecs))
	for name := range m.ParamSpecs {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}

// Compile compiles all program sources and builds the root
// combinator.
//
// A program that already has a Func is only recompiled if force is
// true.
func (m *Model) Compile(ctx context.Context, interpreters InterpretersMap, force bool) error {
	if m.Root == nil {
		return ErrNoRoot
	}

	prims := make(map[string]*Primitive, len(m.Programs))
	for _, name := range m.ProgramNames() {
		p := m.Programs[name]
		if p == nil {
			return &UnknownProgram{Model: m.Name, Name: name}
		}
		if p.Source != nil && (force || p.Func == nil) {
			f, err := p.Source.Compile(ctx, interpreters)
			if err != nil {
				src := "<opaque>"
				if s, is := p.Source.Source.(string); is {
					src = s
				}
				return errors.New(err.Error() + ": program: " + name + " source:\n" + src)
			}
			p.Func = f
		}
		if p.Func == nil {
			return &UnknownProgram{Model: m.Name, Name: name}
		}
		prims[name] = NewPrimitive(name, p.Func)
	}

	root, err := m.build(prims, m.Root)
	if err != nil {
		return err
	}
	m.root = root
	m.compiled = true

	util.Logger().Debug("compiled model",
		zap.String("model", m.Name),
		zap.Int("programs", len(prims)))

	return nil
}

func (m *Model) build(prims map[string]*Primitive, e *Expr) (TraceProgram, error) {
	if e == nil || e.kinds() != 1 {
		return nil, ErrBadExpr
	}

	prim := func(name string) (*Primitive, error) {
		p, have := prims[name]
		if !have {
			return nil, &UnknownProgram{Model: m.Name, Name: name}
		}
		return p, nil
	}

	target := func(e *Expr) (Target, error) {
		x, err := m.build(prims, e)
		if err != nil {
			return nil, err
		}
		t, is := x.(Target)
		if !is {
			return nil, typeMismatch("core.Target", x)
		}
		return t, nil
	}

	proposal := func(e *Expr) (Proposal, error) {
		x, err := m.build(prims, e)
		if err != nil {
			return nil, err
		}
		q, is := x.(Proposal)
		if !is {
			return nil, typeMismatch("core.Proposal", x)
		}
		return q, nil
	}

	switch {
	case e.Program != "":
		return prim(e.Program)

	case e.Extend != nil:
		p, err := target(e.Extend.P)
		if err != nil {
			return nil, err
		}
		f, err := prim(e.Extend.F)
		if err != nil {
			return nil, err
		}
		return NewExtend(p, f), nil

	case e.Compose != nil:
		q2, err := proposal(e.Compose.Q2)
		if err != nil {
			return nil, err
		}
		q1, err := proposal(e.Compose.Q1)
		if err != nil {
			return nil, err
		}
		return NewCompose(q2, q1), nil

	default:
		p, err := target(e.Propose.P)
		if err != nil {
			return nil, err
		}
		q, err := proposal(e.Propose.Q)
		if err != nil {
			return nil, err
		}
		name := e.Propose.Loss
		if name == "" {
			name = "zero"
		}
		loss, have := Losses[name]
		if !have {
			return nil, &UnknownLoss{name}
		}
		return NewPropose(p, q, loss), nil
	}
}

// Program returns the compiled root combinator (or nil).
func (m *Model) Program() TraceProgram {
	return m.root
}

// Invoke runs the compiled root combinator.
func (m *Model) Invoke(rt *handlers.Runtime, in trace.Input) (*trace.Trace, error) {
	if !m.compiled {
		return nil, &ModelNotCompiled{m}
	}
	return m.root.Invoke(rt, in)
}

// InitParams stores the Default of each ParamSpec whose parameter
// isn't already in the store.
func (m *Model) InitParams(ctx context.Context, store params.Store) error {
	names := make([]string, 0, len(m.ParamSpecs))
	for name := range m.ParamSpecs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		spec := m.ParamSpecs[name]
		if err := spec.Valid(); err != nil {
			return errors.New(err.Error() + ": " + name)
		}
		if len(spec.Default) == 0 {
			continue
		}
		_, have, err := store.Get(ctx, name)
		if err != nil {
			return err
		}
		if have {
			continue
		}
		if err = store.Set(ctx, name, tensor.Vector(spec.Default...)); err != nil {
			return err
		}
	}
	return nil
}
