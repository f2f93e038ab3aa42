// Package combinators provides composable inference programs over
// execution traces of probabilistic programs.
//
// Effect handlers are in package 'handlers', the combinators and
// models are in 'core', and the program interpreters are in
// 'interpreters'.  A command-line tool is in `cmd/tracetool`.
package combinators
