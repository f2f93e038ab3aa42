package goja

import (
	"context"
	"fmt"

	"github.com/dop251/goja/ast"
	"github.com/dop251/goja/parser"
)

// InlineRequires generates new source code that replaces top-level
// require("lib") calls with the code that those calls reference.
//
// An alternative approach is simply to define a require() function
// and put that function in the runtime's environment. However, that
// approach would require the use of eval at runtime, which would
// prevent precompilation. With this implementation, programs can be
// precompiled when a model is compiled.
func InlineRequires(ctx context.Context, src string, provider func(context.Context, string) (string, error)) (string, error) {

	p, err := parser.ParseFile(nil, "", src, 0)
	if err != nil {
		return "", err
	}

	type Required struct {
		// Offsets into src.
		From int
		To   int
		Name string
	}

	requires := make([]Required, 0, 8)

	for _, s := range p.Body {
		exps, is := s.(*ast.ExpressionStatement)
		if !is {
			continue
		}

		call, is := exps.Expression.(*ast.CallExpression)
		if !is {
			continue
		}

		id, is := call.Callee.(*ast.Identifier)
		if !is {
			continue
		}
		if id.Name != "require" {
			continue
		}
		if len(call.ArgumentList) != 1 {
			return "", fmt.Errorf("bad require args: %#v", call.ArgumentList)
		}

		arg := call.ArgumentList[0]
		lit, is := arg.(*ast.StringLiteral)
		if !is {
			return "", fmt.Errorf("bad require arg: %#v", arg)
		}

		// Idxs are 1-based.
		requires = append(requires, Required{
			From: int(exps.Idx0()) - 1,
			To:   int(exps.Idx1()) - 1,
			Name: lit.Value.String(),
		})
	}

	if len(requires) == 0 {
		return src, nil
	}

	inlined := src[0:requires[0].From]
	for i, r := range requires {
		lib, err := provider(ctx, r.Name)
		if err != nil {
			return "", err
		}

		inlined += lib

		to := len(src)
		if i < len(requires)-1 {
			to = requires[i+1].From
		}
		inlined += src[r.To:to]
	}

	return inlined, nil
}
