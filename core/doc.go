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

// Package core provides the trace combinators: an algebra for building
// importance samplers and variational objectives out of independently
// written stochastic programs.
//
// A raw stochastic program (a handlers.Program) becomes a
// TraceProgram via Primitive.  Invoking a TraceProgram returns a
// trace.Trace whose reserved sites carry the call (_INPUT), the output
// (_RETURN), the log importance weight (_LOGWEIGHT), and, for
// Propose, an accumulated loss (_LOSS).
//
// The combinators are
//
//    Extend(p, f): run target p and then auxiliary primitive f on p's
//      output.  The weight is p's weight plus f's log density.
//
//    Compose(q2, q1): run two proposals on the same input.  The
//      weight is the sum of their weights.
//
//    Propose(p, q, loss): run proposal q, replay its values into
//      target p, and weigh p's marginal by the incremental weight.
//
// Combinators check their preconditions and fail with typed errors
// (AddressCollision, AuxiliaryObservation, WeightNeutrality,
// TypeMismatch).  Use errors.As to inspect them.
//
// The site predicates and filters (IsObserved, SampleFilter, etc.)
// select sites for ConcatTraces and StackedLogProb.
//
// A Model is a declarative form of a combinator expression over named
// programs, which can be written in YAML and interpreted (see package
// interpreters).  Compile() a Model before use.
package core
