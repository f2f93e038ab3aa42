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

package core

import (
	"errors"
)

// ParamSpec describes a learnable parameter of a Model.
//
// Programs still supply their own initial values when they call
// Runtime.Param.  A ParamSpec Default, when given, is stored before
// any program runs (see Model.InitParams), so it wins.
type ParamSpec struct {

	// Doc describes the parameter in English and Markdown.
	// Audience is developers, not users.
	Doc string `json:"doc,omitempty" yaml:",omitempty"`

	// Default is the initial value.
	Default []float64 `json:"default,omitempty" yaml:",omitempty"`

	// Optional means that no Default is required.
	Optional bool `json:"optional,omitempty" yaml:",omitempty"`
}

// ErrNoDefault occurs when a ParamSpec that isn't Optional has no
// Default.
var ErrNoDefault = errors.New("parameter has no default")

// Valid returns an error if the spec is bad for some reason.
func (s *ParamSpec) Valid() error {
	if !s.Optional && len(s.Default) == 0 {
		return ErrNoDefault
	}
	return nil
}
