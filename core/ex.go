package core

import (
	"context"
	"fmt"

	"github.com/Comcast/combinators/dist"
	"github.com/Comcast/combinators/handlers"
	"github.com/Comcast/combinators/tensor"
	"github.com/Comcast/combinators/trace"
)

// GaussianModel makes an example Model that's useful to have around.
//
// The target draws z ~ Normal(0, 1) and observes the first argument
// as x ~ Normal(z, 1).  The proposal draws z ~ Normal(loc, 1) with a
// learnable loc.
func GaussianModel(ctx context.Context) (*Model, error) {

	prior := func(rt *handlers.Runtime, in trace.Input) (interface{}, error) {
		x, ok := dist.AsFloat(in.Arg(0))
		if !ok {
			return nil, fmt.Errorf("gaussian: bad observation %#v", in.Arg(0))
		}
		pz, err := dist.Normal(0, 1)
		if err != nil {
			return nil, err
		}
		z, err := rt.Sample("z", pz)
		if err != nil {
			return nil, err
		}
		mu, _ := dist.AsFloat(z)
		px, err := dist.Normal(mu, 1)
		if err != nil {
			return nil, err
		}
		if _, err = rt.Observe("x", px, x); err != nil {
			return nil, err
		}
		return z, nil
	}

	guide := func(rt *handlers.Runtime, in trace.Input) (interface{}, error) {
		loc, err := rt.Param("loc", tensor.Zero())
		if err != nil {
			return nil, err
		}
		qz, err := dist.Normal(loc.Float(), 1)
		if err != nil {
			return nil, err
		}
		return rt.Sample("z", qz)
	}

	m := &Model{
		Name: "gaussian",
		Doc:  "A conjugate Gaussian with a learnable proposal location.",
		ParamSpecs: map[string]ParamSpec{
			"loc": {
				Doc:     "The proposal's location.",
				Default: []float64{0},
			},
		},
		Programs: map[string]*Program{
			"prior": {
				Doc:  "z ~ Normal(0,1), x ~ Normal(z,1)",
				Func: prior,
			},
			"guide": {
				Doc:      "z ~ Normal(loc,1)",
				Func:     guide,
				Requires: []string{"loc"},
			},
		},
		Root: &Expr{
			Propose: &ProposeExpr{
				P:    &Expr{Program: "prior"},
				Q:    &Expr{Program: "guide"},
				Loss: "elbo",
			},
		},
	}

	if err := m.Compile(ctx, nil, true); err != nil {
		return nil, err
	}

	return m, nil
}
