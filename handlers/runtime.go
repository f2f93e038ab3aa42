/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package handlers executes stochastic programs under a stack of
// effect handlers ("messengers").
//
// A Program never draws random numbers itself.  It calls
// Runtime.Sample, Runtime.Observe and Runtime.Param, and each call
// becomes a Message that travels through the messengers currently
// pushed on the Runtime.  Messengers can fix a value (substitution),
// annotate it (auxiliary marking), or record it (tracing).
//
// The stack is explicit state on a Runtime rather than ambient global
// state.  A Runtime belongs to one goroutine.
package handlers

import (
	"context"
	"errors"

	"github.com/Comcast/combinators/dist"
	"github.com/Comcast/combinators/params"
	"github.com/Comcast/combinators/tensor"
	"github.com/Comcast/combinators/trace"

	"golang.org/x/exp/rand"
)

// Program is a raw stochastic program.
type Program func(rt *Runtime, in trace.Input) (interface{}, error)

// Message is one sample, observe, or param event.
type Message struct {
	Name       string
	Type       trace.SiteType
	Dist       dist.Distribution
	Value      interface{}
	IsObserved bool
	Infer      trace.Infer

	// LogProb is optional.  A messenger that has already scored the
	// value can leave the result here.
	LogProb tensor.Tensor

	// Done means the value is fixed and shouldn't be drawn.
	Done bool

	// Stop prevents messengers lower in the stack from seeing the
	// message.
	Stop bool
}

// Site makes a trace.Site from the Message.
func (m *Message) Site() *trace.Site {
	return &trace.Site{
		Name:       m.Name,
		Type:       m.Type,
		Dist:       m.Dist,
		Value:      m.Value,
		IsObserved: m.IsObserved,
		LogProb:    m.LogProb,
		Infer:      m.Infer.Copy(),
	}
}

// Messenger is an effect handler.
//
// Process sees a Message before its value is drawn, from the top of
// the stack down.  Postprocess sees it afterwards, from the bottom of
// the processed frames up.
type Messenger interface {
	Process(rt *Runtime, msg *Message) error
	Postprocess(rt *Runtime, msg *Message) error
}

// ErrNoDist occurs when a sample has no Distribution.
var ErrNoDist = errors.New("sample without a distribution")

// Runtime is the execution state for stochastic programs: a random
// source, a parameter store, and the messenger stack.
type Runtime struct {
	ctx    context.Context
	src    rand.Source
	params params.Store
	stack  []Messenger
}

// NewRuntime makes a Runtime with a source seeded by the given seed.
//
// A nil store is replaced by a params.MemStore.
func NewRuntime(ctx context.Context, seed uint64, store params.Store) *Runtime {
	if ctx == nil {
		ctx = context.Background()
	}
	if store == nil {
		store = params.NewMemStore()
	}
	return &Runtime{
		ctx:    ctx,
		src:    rand.NewSource(seed),
		params: store,
		stack:  make([]Messenger, 0, 8),
	}
}

// Context returns the Runtime's context.
func (rt *Runtime) Context() context.Context {
	return rt.ctx
}

// Source returns the Runtime's random source.
func (rt *Runtime) Source() rand.Source {
	return rt.src
}

// Params returns the Runtime's parameter store.
func (rt *Runtime) Params() params.Store {
	return rt.params
}

// Depth is the number of messengers currently pushed.
func (rt *Runtime) Depth() int {
	return len(rt.stack)
}

// With pushes the messenger, calls fn, and pops the messenger.  The
// messenger is popped even if fn panics.
func (rt *Runtime) With(m Messenger, fn func() error) error {
	n := len(rt.stack)
	rt.stack = append(rt.stack, m)
	defer func() {
		rt.stack = rt.stack[:n]
	}()
	return fn()
}

// Sample draws a value for the named site from the distribution
// (unless a messenger supplies one).
func (rt *Runtime) Sample(name string, d dist.Distribution) (interface{}, error) {
	if d == nil {
		return nil, ErrNoDist
	}
	msg := &Message{
		Name: name,
		Type: trace.SampleType,
		Dist: d,
	}
	if err := rt.apply(msg); err != nil {
		return nil, err
	}
	return msg.Value, nil
}

// Observe conditions the named site on the given value.
func (rt *Runtime) Observe(name string, d dist.Distribution, value interface{}) (interface{}, error) {
	if d == nil {
		return nil, ErrNoDist
	}
	msg := &Message{
		Name:       name,
		Type:       trace.SampleType,
		Dist:       d,
		Value:      value,
		IsObserved: true,
		Done:       true,
	}
	if err := rt.apply(msg); err != nil {
		return nil, err
	}
	return msg.Value, nil
}

// Param returns the named parameter, storing init first if the name
// is new.
func (rt *Runtime) Param(name string, init tensor.Tensor) (tensor.Tensor, error) {
	v, err := params.GetOrInit(rt.ctx, rt.params, name, init)
	if err != nil {
		return tensor.Tensor{}, err
	}
	msg := &Message{
		Name:  name,
		Type:  trace.ParamType,
		Value: v,
		Done:  true,
	}
	if err := rt.apply(msg); err != nil {
		return tensor.Tensor{}, err
	}
	if t, is := msg.Value.(tensor.Tensor); is {
		return t, nil
	}
	return v, nil
}

func (rt *Runtime) apply(msg *Message) error {
	if msg.Name == "" {
		return trace.ErrNoName
	}
	if err := rt.ctx.Err(); err != nil {
		return err
	}

	// Process from the top of the stack down.
	i := len(rt.stack) - 1
	for ; 0 <= i; i-- {
		if err := rt.stack[i].Process(rt, msg); err != nil {
			return err
		}
		if msg.Stop {
			break
		}
	}
	if i < 0 {
		i = 0
	}

	if !msg.Done && msg.Type == trace.SampleType {
		msg.Value = msg.Dist.Sample(rt.src)
		msg.Done = true
	}

	for j := i; j < len(rt.stack); j++ {
		if err := rt.stack[j].Postprocess(rt, msg); err != nil {
			return err
		}
	}
	return nil
}
