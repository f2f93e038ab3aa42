// Package tensor provides the small numeric type that carries log
// weights, log densities and losses.
//
// A Tensor is always at least rank 1: a scalar is a vector of length
// one.  Arithmetic broadcasts a length-one operand against a longer
// one.  A Tensor also carries a flag that says whether gradients
// would flow through it.  This package does not differentiate
// anything; the flag only follows the values through arithmetic so
// that Detach has an observable meaning.
package tensor

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"
)

// Tensor is an immutable rank-1 vector of float64s.
//
// The zero value is the empty Tensor, which stands for "absent".
type Tensor struct {
	vals []float64
	grad bool
}

// ShapeError occurs when two Tensors can't be combined.
type ShapeError struct {
	Op    string
	Left  int
	Right int
}

func (e *ShapeError) Error() string {
	return "tensor: shape mismatch in " + e.Op + ": " +
		strconv.Itoa(e.Left) + " vs " + strconv.Itoa(e.Right)
}

// Zero returns [0.0].
func Zero() Tensor {
	return Tensor{vals: []float64{0}}
}

// Scalar returns [x].
func Scalar(x float64) Tensor {
	return Tensor{vals: []float64{x}}
}

// Vector copies the given values into a new Tensor.
//
// With no values, Vector returns Zero().
func Vector(xs ...float64) Tensor {
	if len(xs) == 0 {
		return Zero()
	}
	vals := make([]float64, len(xs))
	copy(vals, xs)
	return Tensor{vals: vals}
}

// WithGrad returns a copy of t that requires gradients.
func (t Tensor) WithGrad() Tensor {
	return Tensor{vals: t.vals, grad: true}
}

// Detach returns t with gradient tracking stopped.
func (t Tensor) Detach() Tensor {
	return Tensor{vals: t.vals}
}

// RequiresGrad reports whether gradients would flow through t.
func (t Tensor) RequiresGrad() bool {
	return t.grad
}

// Empty reports whether t has no values at all.
func (t Tensor) Empty() bool {
	return len(t.vals) == 0
}

// Len is the length of the (only) axis.
func (t Tensor) Len() int {
	return len(t.vals)
}

// At returns the i-th value.
func (t Tensor) At(i int) float64 {
	return t.vals[i]
}

// Values returns a copy of the values.
func (t Tensor) Values() []float64 {
	acc := make([]float64, len(t.vals))
	copy(acc, t.vals)
	return acc
}

// Float returns the only value of a length-one Tensor.
//
// For longer Tensors, Float returns the sum of the values.
func (t Tensor) Float() float64 {
	if len(t.vals) == 1 {
		return t.vals[0]
	}
	return t.Sum().vals[0]
}

// IsZero reports whether every value is exactly zero.
//
// The empty Tensor is not zero.
func (t Tensor) IsZero() bool {
	if len(t.vals) == 0 {
		return false
	}
	for _, x := range t.vals {
		if x != 0 {
			return false
		}
	}
	return true
}

// Equal reports whether both Tensors have the same values.  The
// gradient flag is ignored.
func (t Tensor) Equal(u Tensor) bool {
	if len(t.vals) != len(u.vals) {
		return false
	}
	for i, x := range t.vals {
		if x != u.vals[i] {
			return false
		}
	}
	return true
}

func broadcast(op string, t, u Tensor) int {
	switch {
	case len(t.vals) == len(u.vals):
		return len(t.vals)
	case len(t.vals) == 1:
		return len(u.vals)
	case len(u.vals) == 1:
		return len(t.vals)
	}
	panic(&ShapeError{Op: op, Left: len(t.vals), Right: len(u.vals)})
}

func at(t Tensor, i int) float64 {
	if len(t.vals) == 1 {
		return t.vals[0]
	}
	return t.vals[i]
}

func zip(op string, t, u Tensor, f func(a, b float64) float64) Tensor {
	if t.Empty() {
		t = Zero()
	}
	if u.Empty() {
		u = Zero()
	}
	n := broadcast(op, t, u)
	vals := make([]float64, n)
	for i := range vals {
		vals[i] = f(at(t, i), at(u, i))
	}
	return Tensor{vals: vals, grad: t.grad || u.grad}
}

// Add returns t + u elementwise.  An empty operand counts as zero.
//
// Add panics with a *ShapeError if the lengths can't be broadcast.
func (t Tensor) Add(u Tensor) Tensor {
	return zip("add", t, u, func(a, b float64) float64 { return a + b })
}

// Sub returns t - u elementwise.
func (t Tensor) Sub(u Tensor) Tensor {
	return zip("sub", t, u, func(a, b float64) float64 { return a - b })
}

// Neg returns -t.
func (t Tensor) Neg() Tensor {
	vals := make([]float64, len(t.vals))
	for i, x := range t.vals {
		vals[i] = -x
	}
	return Tensor{vals: vals, grad: t.grad}
}

// Sum reduces the axis, returning a length-one Tensor.
func (t Tensor) Sum() Tensor {
	var acc float64
	for _, x := range t.vals {
		acc += x
	}
	return Tensor{vals: []float64{acc}, grad: t.grad}
}

// StackSum stacks the given Tensors along a new leading axis and sums
// that axis.
//
// All Tensors must have the same length, except that length-one
// Tensors broadcast.  No Tensors gives Zero().
func StackSum(ts []Tensor) (Tensor, error) {
	if len(ts) == 0 {
		return Zero(), nil
	}
	n := 1
	for _, t := range ts {
		switch {
		case t.Len() == n, t.Len() == 1:
		case n == 1:
			n = t.Len()
		default:
			return Tensor{}, &ShapeError{Op: "stack", Left: n, Right: t.Len()}
		}
	}
	acc := Tensor{vals: make([]float64, n)}
	for _, t := range ts {
		acc = acc.Add(t)
	}
	return acc, nil
}

// IsFinite reports whether every value is finite.
func (t Tensor) IsFinite() bool {
	for _, x := range t.vals {
		if math.IsInf(x, 0) || math.IsNaN(x) {
			return false
		}
	}
	return true
}

func (t Tensor) String() string {
	parts := make([]string, len(t.vals))
	for i, x := range t.vals {
		parts[i] = strconv.FormatFloat(x, 'g', 6, 64)
	}
	s := "[" + strings.Join(parts, " ") + "]"
	if t.grad {
		s += "~"
	}
	return s
}

// MarshalJSON renders the values as a JSON array.  Non-finite values
// are written as strings ("-Inf", "+Inf", "NaN").
func (t Tensor) MarshalJSON() ([]byte, error) {
	if t.vals == nil {
		return []byte("null"), nil
	}
	if t.IsFinite() {
		return json.Marshal(t.vals)
	}
	acc := make([]interface{}, len(t.vals))
	for i, x := range t.vals {
		if math.IsInf(x, 0) || math.IsNaN(x) {
			acc[i] = strconv.FormatFloat(x, 'g', -1, 64)
		} else {
			acc[i] = x
		}
	}
	return json.Marshal(acc)
}

// UnmarshalJSON reads a JSON array or a single number.
func (t *Tensor) UnmarshalJSON(bs []byte) error {
	var x interface{}
	if err := json.Unmarshal(bs, &x); err != nil {
		return err
	}
	switch vv := x.(type) {
	case nil:
		*t = Tensor{}
	case float64:
		*t = Scalar(vv)
	case []interface{}:
		vals := make([]float64, len(vv))
		for i, y := range vv {
			switch z := y.(type) {
			case float64:
				vals[i] = z
			case string:
				f, err := strconv.ParseFloat(z, 64)
				if err != nil {
					return errors.New("tensor: non-number at index " + strconv.Itoa(i))
				}
				vals[i] = f
			default:
				return errors.New("tensor: non-number at index " + strconv.Itoa(i))
			}
		}
		*t = Tensor{vals: vals}
	default:
		return errors.New("tensor: can't read " + string(bs))
	}
	return nil
}
