/* Copyright 2018 Comcast Cable Communications Management, LLC
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

package tools

import (
	"sort"

	"github.com/Comcast/combinators/core"
)

// ModelAnalysis summarizes the structure of a model without compiling
// it.
type ModelAnalysis struct {
	model *core.Model

	Errors       []string
	ProgramCount int
	Natives      int
	Sourced      int
	Extends      int
	Composes     int
	Proposes     int

	// Unused programs aren't referenced by the root expression.
	Unused []string

	// Missing programs are referenced but not defined.
	Missing []string

	// UndeclaredParams are required by programs but have no
	// ParamSpec.
	UndeclaredParams []string

	UnknownLosses []string
	Interpreters  []string
}

// Analyze walks the model's root expression and programs.
func Analyze(m *core.Model) (*ModelAnalysis, error) {

	a := ModelAnalysis{
		model:        m,
		ProgramCount: len(m.Programs),
		Errors:       make([]string, 0, 8),
	}

	interpreters, undeclared, losses := make(map[string]bool), make(map[string]bool), make(map[string]bool)

	for name, p := range m.Programs {
		if p == nil {
			a.Errors = append(a.Errors, "empty program "+name)
			continue
		}
		if p.Func != nil {
			a.Natives++
		}
		if p.Source != nil {
			a.Sourced++
			interpreters[p.Source.Interpreter] = true
		}
		for _, r := range p.Requires {
			if _, have := m.ParamSpecs[r]; !have {
				undeclared[r] = true
			}
		}
	}

	if m.Root == nil {
		a.Errors = append(a.Errors, core.ErrNoRoot.Error())
	}

	m.Root.Walk(func(e *core.Expr) error {
		switch {
		case e.Extend != nil:
			a.Extends++
		case e.Compose != nil:
			a.Composes++
		case e.Propose != nil:
			a.Proposes++
			if _, have := core.Losses[e.Propose.Loss]; !have && e.Propose.Loss != "" {
				losses[e.Propose.Loss] = true
			}
		}
		return nil
	})

	referenced := make(map[string]bool)
	missing := make(map[string]bool)
	for _, name := range m.Root.References() {
		referenced[name] = true
		if _, have := m.Programs[name]; !have {
			missing[name] = true
		}
	}

	a.Unused = keysToStringSlice(diffKeys(m.Programs, referenced))
	a.Missing = keysToStringSlice(missing)
	a.UndeclaredParams = keysToStringSlice(undeclared)
	a.UnknownLosses = keysToStringSlice(losses)
	a.Interpreters = keysToStringSlice(interpreters, "native")

	return &a, nil
}

// keysToStringSlice converts the keys from a map into a sorted slice
// of strings.  Optionally, it can add a default value if the map is
// empty.
func keysToStringSlice(m map[string]bool, defaultValue ...string) []string {
	var list []string
	for key := range m {
		list = append(list, key)
	}
	sort.Strings(list)

	if len(list) == 0 && len(defaultValue) > 0 {
		return []string{defaultValue[0]}
	}

	return list
}

// diffKeys identifies the keys present in 'all' but not in 'used'.
func diffKeys(all map[string]*core.Program, used map[string]bool) map[string]bool {
	diff := make(map[string]bool)
	for key := range all {
		if _, found := used[key]; !found {
			diff[key] = true
		}
	}
	return diff
}
