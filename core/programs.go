package core

import (
	"context"
	"errors"

	"github.com/Comcast/combinators/handlers"
	"github.com/Comcast/combinators/trace"
)

var (
	// InterpreterNotFound occurs when you try to Compile a
	// ProgramSource, and the required interpreter isn't in the
	// given map of interpreters.
	InterpreterNotFound = errors.New("interpreter not found")

	// DefaultInterpreters will be used in ProgramSource.Compile if
	// the given nil interpreters.
	DefaultInterpreters = NewInterpretersMap()
)

// Interpreter can optionally compile and execute code for programs.
type Interpreter interface {
	// Compile can make something that helps when Exec()ing the
	// code later.
	Compile(ctx context.Context, code interface{}) (interface{}, error)

	// Exec executes the code as a stochastic program.  The result
	// of previous Compile() might be provided.
	//
	// The code should call rt.Sample, rt.Observe, and rt.Param
	// for all of its randomness and parameters.
	Exec(rt *handlers.Runtime, in trace.Input, code interface{}, compiled interface{}) (interface{}, error)
}

// InterpretersMap maps interpreter names to Interpreters.
type InterpretersMap map[string]Interpreter

func NewInterpretersMap() InterpretersMap {
	return make(InterpretersMap, 8)
}

// ProgramSource can be compiled to a handlers.Program.
type ProgramSource struct {
	Interpreter string      `json:"interpreter,omitempty" yaml:",omitempty"`
	Source      interface{} `json:"source"`
}

// Copy makes a shallow copy.
func (s *ProgramSource) Copy() *ProgramSource {
	if s == nil {
		return nil
	}
	return &ProgramSource{
		Interpreter: s.Interpreter,
		Source:      s.Source,
	}
}

// Compile attempts to compile the ProgramSource into a Program using
// the given interpreters, which defaults to DefaultInterpreters.
func (s *ProgramSource) Compile(ctx context.Context, interpreters InterpretersMap) (handlers.Program, error) {
	if interpreters == nil {
		interpreters = DefaultInterpreters
	}

	interpreter, have := interpreters[s.Interpreter]
	if !have {
		return nil, InterpreterNotFound
	}

	x, err := interpreter.Compile(ctx, s.Source)
	if err != nil {
		return nil, err
	}

	return func(rt *handlers.Runtime, in trace.Input) (interface{}, error) {
		return interpreter.Exec(rt, in, s.Source, x)
	}, nil
}

// Program is a named stochastic program in a Model.
//
// A Model's programs are always Primitives.  Either Func is given
// directly (in Go), or Source is compiled to Func.
type Program struct {
	Doc    string           `json:"doc,omitempty" yaml:",omitempty"`
	Func   handlers.Program `json:"-" yaml:"-"`
	Source *ProgramSource   `json:"source,omitempty" yaml:"source,omitempty"`

	// Requires optionally lists the names of the parameters that
	// the program reads.
	Requires []string `json:"requires,omitempty" yaml:",omitempty"`
}

// Copy makes a shallow copy of the Program.
func (p *Program) Copy() *Program {
	requires := make([]string, len(p.Requires))
	copy(requires, p.Requires)
	return &Program{
		Doc:      p.Doc,
		Func:     p.Func,
		Source:   p.Source.Copy(),
		Requires: requires,
	}
}
