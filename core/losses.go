package core

import (
	"sort"

	"github.com/Comcast/combinators/tensor"
	"github.com/Comcast/combinators/trace"
)

// LossFunc computes the loss contribution of a Propose from the
// target's trace, the proposal's trace, and the decomposed log weight.
type LossFunc func(p, q *trace.Trace, lw, li tensor.Tensor) (tensor.Tensor, error)

// ZeroLoss always returns [0.0].
func ZeroLoss(p, q *trace.Trace, lw, li tensor.Tensor) (tensor.Tensor, error) {
	return tensor.Zero(), nil
}

// ELBOLoss is the negated evidence lower bound estimate lw(p) - lu,
// summed.  Unlike li, the result carries gradients.
func ELBOLoss(p, q *trace.Trace, lw, li tensor.Tensor) (tensor.Tensor, error) {
	pLW, err := LogWeight(p)
	if err != nil {
		return tensor.Tensor{}, err
	}
	lu, err := StackedLogProb(q, SampleFilter(Or(NotSubstituted, IsObserved)))
	if err != nil {
		return tensor.Tensor{}, err
	}
	return pLW.Sub(lu).Sum().Neg(), nil
}

// Losses maps names to LossFuncs for use in Models.
var Losses = map[string]LossFunc{
	"":     ZeroLoss,
	"zero": ZeroLoss,
	"elbo": ELBOLoss,
}

// LossNames returns the names in Losses, sorted.
func LossNames() []string {
	acc := make([]string, 0, len(Losses))
	for name := range Losses {
		if name != "" {
			acc = append(acc, name)
		}
	}
	sort.Strings(acc)
	return acc
}
