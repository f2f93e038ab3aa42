package noop

import (
	"context"

	"github.com/Comcast/combinators/handlers"
	"github.com/Comcast/combinators/trace"
	"github.com/Comcast/combinators/util"
)

// Interpreter is an core.Interpreter which just returns the program's
// first argument without sampling anything.
type Interpreter struct {
	// Silent, if true, will suppress warning log messages.
	Silent bool
}

func (i *Interpreter) Compile(ctx context.Context, code interface{}) (interface{}, error) {
	if !i.Silent {
		util.Logger().Warn("using noop interpreter for compilation")
	}
	return nil, nil
}

func (i *Interpreter) Exec(rt *handlers.Runtime, in trace.Input, code interface{}, compiled interface{}) (interface{}, error) {
	if !i.Silent {
		util.Logger().Warn("using noop interpreter for execution")
	}
	return in.Arg(0), nil
}

func NewInterpreter() *Interpreter {
	return &Interpreter{}
}
