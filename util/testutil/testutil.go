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

package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/Comcast/combinators/dist"
	"github.com/Comcast/combinators/tensor"
	"github.com/Comcast/combinators/trace"
	"github.com/Comcast/combinators/util"

	"go.uber.org/zap"
)

// JS renders its argument as JSON or as a string indicating an error.
func JS(x interface{}) string {
	bs, err := json.Marshal(&x)
	if err != nil {
		util.Logger().Warn("testutil.JS", zap.Error(err))
		return fmt.Sprintf("%#v", x)
	}
	return string(bs)
}

// Dwimjs, when given a string or bytes, parses that data as JSON.
// A string that isn't JSON is returned as is.  When given anything
// else, just returns what's given.
//
// See https://en.wikipedia.org/wiki/DWIM.
func Dwimjs(x interface{}) interface{} {
	switch vv := x.(type) {
	case []byte:
		return Dwimjs(string(vv))
	case string:
		var v interface{}
		if err := json.Unmarshal([]byte(vv), &v); err != nil {
			return vv
		}
		return v
	default:
		return x
	}
}

// Chain makes a trace with a standard normal sample site for each
// name, in order, with an edge between consecutive sites.  The value
// at the i-th site is i/2, and the last site is observed.  The trace
// has _RETURN (the last value) and a zero _LOGWEIGHT.
func Chain(names ...string) (*trace.Trace, error) {
	d, err := dist.Normal(0, 1)
	if err != nil {
		return nil, err
	}
	tr := trace.New()
	var last interface{}
	for i, name := range names {
		last = float64(i) / 2
		if err = tr.Add(&trace.Site{
			Name:       name,
			Type:       trace.SampleType,
			Dist:       d,
			Value:      last,
			IsObserved: i == len(names)-1,
		}); err != nil {
			return nil, err
		}
		if 0 < i {
			tr.AddEdge(names[i-1], name)
		}
	}
	if err = tr.Add(&trace.Site{Name: trace.ReturnAddr, Type: trace.ReturnType, Value: last}); err != nil {
		return nil, err
	}
	if err = tr.Add(&trace.Site{Name: trace.LogWeightAddr, Type: trace.ReturnType, Value: tensor.Zero()}); err != nil {
		return nil, err
	}
	return tr, nil
}
