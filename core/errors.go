package core

// These errors are combinator misuse, not internal errors.  None of
// them can be recovered from in the middle of an inference step.

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Comcast/combinators/tensor"
)

// AddressCollision occurs when two traces being merged share sample
// addresses.
type AddressCollision struct {
	Location string
	Addrs    []string
}

func (e *AddressCollision) Error() string {
	return e.Location + `: addresses must not overlap: "` + strings.Join(e.Addrs, `", "`) + `"`
}

// AuxiliaryObservation occurs when the auxiliary program of an Extend
// observes something.
type AuxiliaryObservation struct {
	Location string
	Addr     string
}

func (e *AuxiliaryObservation) Error() string {
	return e.Location + `: auxiliary program observed "` + e.Addr + `"`
}

// WeightNeutrality occurs when, without any substitution, the
// auxiliary program of an Extend has a non-zero log weight.
type WeightNeutrality struct {
	Location  string
	LogWeight tensor.Tensor
}

func (e *WeightNeutrality) Error() string {
	return e.Location + `: auxiliary log weight is ` + e.LogWeight.String() + `, not zero`
}

// TypeMismatch occurs when a program doesn't have the role or type an
// operation requires.
type TypeMismatch struct {
	Want string
	Got  string
}

func (e *TypeMismatch) Error() string {
	return `expected a ` + e.Want + `, got a ` + e.Got
}

func typeMismatch(want string, x interface{}) *TypeMismatch {
	return &TypeMismatch{
		Want: want,
		Got:  fmt.Sprintf("%T", x),
	}
}

// MissingSite occurs when a trace lacks a required site.
type MissingSite struct {
	Addr string
}

func (e *MissingSite) Error() string {
	return `no site at "` + e.Addr + `"`
}

// BadSiteValue occurs when a site's value doesn't have the expected
// type.
type BadSiteValue struct {
	Addr  string
	Want  string
	Value interface{}
}

func (e *BadSiteValue) Error() string {
	return fmt.Sprintf(`site "%s" value %#v (%T) is not a %s`, e.Addr, e.Value, e.Value, e.Want)
}

// UnknownProgram occurs when a Model refers to a program that it
// doesn't define.
type UnknownProgram struct {
	Model string
	Name  string
}

func (e *UnknownProgram) Error() string {
	return `program "` + e.Name + `" not found in model "` + e.Model + `"`
}

// UnknownLoss occurs when a Model refers to a loss that isn't in
// Losses.
type UnknownLoss struct {
	Name string
}

func (e *UnknownLoss) Error() string {
	return `unknown loss "` + e.Name + `"`
}

// ModelNotCompiled occurs when a Model is invoked before it has been
// Compile()ed.
type ModelNotCompiled struct {
	Model *Model
}

func (e *ModelNotCompiled) Error() string {
	return `model "` + e.Model.Name + `" not compiled`
}

// ErrNoRoot occurs when a Model has no root expression.
var ErrNoRoot = errors.New("model has no root")

// ErrBadExpr occurs when a model expression doesn't say exactly one
// thing.
var ErrBadExpr = errors.New("expression needs exactly one of program, extend, compose, propose")
