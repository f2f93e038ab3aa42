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
	"bytes"
	"fmt"
	"io"
	"io/ioutil"
	"path/filepath"
	"regexp"

	"github.com/Comcast/combinators/util"

	"go.uber.org/zap"
)

// MaxInlineDepth limits nested inlining.
var MaxInlineDepth = 8

var inlinePattern = regexp.MustCompile(`%inline *\("([^"]*)"\)`)

// Inline replaces '%inline("NAME")' with f(NAME).
//
// Lines after the first line of a replacement get the indentation of
// the line that holds the directive, so a multi-line file can be
// inlined into a YAML block scalar.  Replacements are themselves
// inlined (up to MaxInlineDepth).
func Inline(bs []byte, f func(string) ([]byte, error)) ([]byte, error) {
	return inline(bs, f, 0)
}

func inline(bs []byte, f func(string) ([]byte, error), depth int) ([]byte, error) {
	if MaxInlineDepth < depth {
		return nil, fmt.Errorf("inlining deeper than %d", MaxInlineDepth)
	}

	locs := inlinePattern.FindAllSubmatchIndex(bs, -1)
	if len(locs) == 0 {
		return bs, nil
	}

	acc := make([]byte, 0, len(bs))
	last := 0
	for _, loc := range locs {
		acc = append(acc, bs[last:loc[0]]...)
		last = loc[1]

		name := string(bs[loc[2]:loc[3]])
		replacement, err := f(name)
		if err != nil {
			return nil, err
		}
		if replacement, err = inline(replacement, f, depth+1); err != nil {
			return nil, err
		}
		util.Logger().Debug("inlining",
			zap.String("name", name),
			zap.Int("bytes", len(replacement)),
			zap.Int("depth", depth))

		acc = append(acc, indent(replacement, indentation(bs, loc[0]))...)
	}
	acc = append(acc, bs[last:]...)

	return acc, nil
}

// indentation returns the leading whitespace of the line containing
// offset i.
func indentation(bs []byte, i int) []byte {
	start := bytes.LastIndexByte(bs[:i], '\n') + 1
	end := start
	for end < i && (bs[end] == ' ' || bs[end] == '\t') {
		end++
	}
	return bs[start:end]
}

func indent(bs, prefix []byte) []byte {
	bs = bytes.TrimRight(bs, "\n")
	if len(prefix) == 0 {
		return bs
	}
	return bytes.Replace(bs, []byte("\n"), append([]byte("\n"), prefix...), -1)
}

func dirReader(dir string) func(string) ([]byte, error) {
	return func(name string) ([]byte, error) {
		return ioutil.ReadFile(filepath.Join(dir, name))
	}
}

// ReadFileWithInlines reads the file and inlines names relative to
// the file's directory.
func ReadFileWithInlines(filename string) ([]byte, error) {
	bs, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return Inline(bs, dirReader(filepath.Dir(filename)))
}

// ReadAllWithInlines reads everything and inlines names relative to
// the given directory.
func ReadAllWithInlines(in io.Reader, dir string) ([]byte, error) {
	bs, err := ioutil.ReadAll(in)
	if err != nil {
		return nil, err
	}
	return Inline(bs, dirReader(dir))
}
