// Package interpreters collects the standard program interpreters.
package interpreters

import (
	"github.com/Comcast/combinators/core"
	"github.com/Comcast/combinators/interpreters/goja"
	"github.com/Comcast/combinators/interpreters/noop"
)

// Standard returns a map with the standard interpreters: "goja" (and
// its alias "ecmascript") and "noop".
func Standard() core.InterpretersMap {
	is := core.NewInterpretersMap()

	js := goja.NewInterpreter()
	is["goja"] = js
	is["ecmascript"] = js

	is["noop"] = noop.NewInterpreter()

	return is
}
