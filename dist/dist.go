// Package dist is the sampling and density engine behind sample
// sites.
//
// Families are thin wrappers around gonum's stat/distuv.  Every
// Distribution can draw a value from a random source and score a
// value, returning a rank-1 log density.
package dist

import (
	"fmt"
	"math"
	"sort"

	"github.com/Comcast/combinators/tensor"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Distribution draws and scores values.
type Distribution interface {
	// Family is the tag used to construct this distribution with
	// New.
	Family() string

	// Params gives the parameters by name.
	Params() map[string]interface{}

	// Sample draws a value using the given source.
	Sample(src rand.Source) interface{}

	// LogProb scores a value.
	LogProb(x interface{}) (tensor.Tensor, error)
}

// UnknownFamily occurs when New is given a tag it doesn't know.
type UnknownFamily struct {
	Family string
}

func (e *UnknownFamily) Error() string {
	return `unknown distribution family "` + e.Family + `"`
}

// BadParams occurs when a family's parameters are missing or out of
// range.
type BadParams struct {
	Family string
	Msg    string
}

func (e *BadParams) Error() string {
	return e.Family + ": " + e.Msg
}

// BadValue occurs when LogProb is given something it can't score.
type BadValue struct {
	Family string
	Value  interface{}
}

func (e *BadValue) Error() string {
	return fmt.Sprintf("%s: can't score %#v (%T)", e.Family, e.Value, e.Value)
}

// AsFloat converts common numeric representations to float64.
func AsFloat(x interface{}) (float64, bool) {
	switch vv := x.(type) {
	case float64:
		return vv, true
	case float32:
		return float64(vv), true
	case int:
		return float64(vv), true
	case int64:
		return float64(vv), true
	case int32:
		return float64(vv), true
	case bool:
		if vv {
			return 1, true
		}
		return 0, true
	case tensor.Tensor:
		if vv.Len() == 1 {
			return vv.At(0), true
		}
	}
	return 0, false
}

// AsFloats converts a slice-ish value to []float64.
func AsFloats(x interface{}) ([]float64, bool) {
	switch vv := x.(type) {
	case []float64:
		return vv, true
	case tensor.Tensor:
		return vv.Values(), true
	case []interface{}:
		acc := make([]float64, len(vv))
		for i, y := range vv {
			f, ok := AsFloat(y)
			if !ok {
				return nil, false
			}
			acc[i] = f
		}
		return acc, true
	}
	return nil, false
}

type sampler interface {
	Rand() float64
	LogProb(float64) float64
}

// scalar adapts a distuv univariate distribution.
type scalar struct {
	family string
	params map[string]interface{}
	make   func(src rand.Source) sampler
}

func (d *scalar) Family() string {
	return d.family
}

func (d *scalar) Params() map[string]interface{} {
	return d.params
}

func (d *scalar) Sample(src rand.Source) interface{} {
	return d.make(src).Rand()
}

func (d *scalar) LogProb(x interface{}) (tensor.Tensor, error) {
	f, ok := AsFloat(x)
	if !ok {
		return tensor.Tensor{}, &BadValue{d.family, x}
	}
	return tensor.Scalar(d.make(nil).LogProb(f)).WithGrad(), nil
}

// Normal is the Gaussian with mean mu and standard deviation sigma.
func Normal(mu, sigma float64) (Distribution, error) {
	if !(0 < sigma) {
		return nil, &BadParams{"normal", "sigma must be positive"}
	}
	return &scalar{
		family: "normal",
		params: map[string]interface{}{"mu": mu, "sigma": sigma},
		make: func(src rand.Source) sampler {
			return distuv.Normal{Mu: mu, Sigma: sigma, Src: src}
		},
	}, nil
}

// LogNormal is the log-normal with the given underlying parameters.
func LogNormal(mu, sigma float64) (Distribution, error) {
	if !(0 < sigma) {
		return nil, &BadParams{"lognormal", "sigma must be positive"}
	}
	return &scalar{
		family: "lognormal",
		params: map[string]interface{}{"mu": mu, "sigma": sigma},
		make: func(src rand.Source) sampler {
			return distuv.LogNormal{Mu: mu, Sigma: sigma, Src: src}
		},
	}, nil
}

// Uniform is uniform on [min,max].
func Uniform(min, max float64) (Distribution, error) {
	if !(min < max) {
		return nil, &BadParams{"uniform", "min must be less than max"}
	}
	return &scalar{
		family: "uniform",
		params: map[string]interface{}{"min": min, "max": max},
		make: func(src rand.Source) sampler {
			return distuv.Uniform{Min: min, Max: max, Src: src}
		},
	}, nil
}

// Gamma has shape alpha and rate beta.
func Gamma(alpha, beta float64) (Distribution, error) {
	if !(0 < alpha && 0 < beta) {
		return nil, &BadParams{"gamma", "alpha and beta must be positive"}
	}
	return &scalar{
		family: "gamma",
		params: map[string]interface{}{"alpha": alpha, "beta": beta},
		make: func(src rand.Source) sampler {
			return distuv.Gamma{Alpha: alpha, Beta: beta, Src: src}
		},
	}, nil
}

// Beta is the beta distribution on [0,1].
func Beta(alpha, beta float64) (Distribution, error) {
	if !(0 < alpha && 0 < beta) {
		return nil, &BadParams{"beta", "alpha and beta must be positive"}
	}
	return &scalar{
		family: "beta",
		params: map[string]interface{}{"alpha": alpha, "beta": beta},
		make: func(src rand.Source) sampler {
			return distuv.Beta{Alpha: alpha, Beta: beta, Src: src}
		},
	}, nil
}

// Exponential has the given rate.
func Exponential(rate float64) (Distribution, error) {
	if !(0 < rate) {
		return nil, &BadParams{"exponential", "rate must be positive"}
	}
	return &scalar{
		family: "exponential",
		params: map[string]interface{}{"rate": rate},
		make: func(src rand.Source) sampler {
			return distuv.Exponential{Rate: rate, Src: src}
		},
	}, nil
}

// Bernoulli is 1 with probability p and 0 otherwise.
func Bernoulli(p float64) (Distribution, error) {
	if p < 0 || 1 < p {
		return nil, &BadParams{"bernoulli", "p must be in [0,1]"}
	}
	return &scalar{
		family: "bernoulli",
		params: map[string]interface{}{"p": p},
		make: func(src rand.Source) sampler {
			return distuv.Bernoulli{P: p, Src: src}
		},
	}, nil
}

// Poisson has the given mean.
func Poisson(lambda float64) (Distribution, error) {
	if !(0 < lambda) {
		return nil, &BadParams{"poisson", "lambda must be positive"}
	}
	return &scalar{
		family: "poisson",
		params: map[string]interface{}{"lambda": lambda},
		make: func(src rand.Source) sampler {
			return distuv.Poisson{Lambda: lambda, Src: src}
		},
	}, nil
}

// Categorical draws an index with probability proportional to the
// given weights.
func Categorical(weights []float64) (Distribution, error) {
	if len(weights) == 0 {
		return nil, &BadParams{"categorical", "no weights"}
	}
	ws := make([]float64, len(weights))
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return nil, &BadParams{"categorical", "negative weight"}
		}
		ws[i] = w
	}
	return &scalar{
		family: "categorical",
		params: map[string]interface{}{"probs": ws},
		make: func(src rand.Source) sampler {
			return distuv.NewCategorical(ws, src)
		},
	}, nil
}

// Delta puts all of its mass on one value.
//
// Useful for deterministic sites that should still show up in a
// trace.
type Delta struct {
	V float64
}

func (d *Delta) Family() string {
	return "delta"
}

func (d *Delta) Params() map[string]interface{} {
	return map[string]interface{}{"v": d.V}
}

func (d *Delta) Sample(src rand.Source) interface{} {
	return d.V
}

func (d *Delta) LogProb(x interface{}) (tensor.Tensor, error) {
	f, ok := AsFloat(x)
	if !ok {
		return tensor.Tensor{}, &BadValue{"delta", x}
	}
	if f == d.V {
		return tensor.Zero().WithGrad(), nil
	}
	return tensor.Scalar(math.Inf(-1)).WithGrad(), nil
}

// IID is N independent draws from Base.  Values are []float64 and
// log densities have length N (a batch axis).
type IID struct {
	Base Distribution
	N    int
}

func (d *IID) Family() string {
	return "iid"
}

func (d *IID) Params() map[string]interface{} {
	return map[string]interface{}{"base": d.Base.Family(), "n": d.N}
}

func (d *IID) Sample(src rand.Source) interface{} {
	acc := make([]float64, d.N)
	for i := range acc {
		f, _ := AsFloat(d.Base.Sample(src))
		acc[i] = f
	}
	return acc
}

func (d *IID) LogProb(x interface{}) (tensor.Tensor, error) {
	xs, ok := AsFloats(x)
	if !ok || len(xs) != d.N {
		return tensor.Tensor{}, &BadValue{"iid", x}
	}
	lps := make([]float64, d.N)
	for i, f := range xs {
		lp, err := d.Base.LogProb(f)
		if err != nil {
			return tensor.Tensor{}, err
		}
		lps[i] = lp.At(0)
	}
	return tensor.Vector(lps...).WithGrad(), nil
}

// Families lists the tags that New understands.
func Families() []string {
	acc := make([]string, 0, len(constructors))
	for name := range constructors {
		acc = append(acc, name)
	}
	sort.Strings(acc)
	return acc
}
