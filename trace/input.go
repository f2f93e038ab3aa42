package trace

// Input is the call of a program: positional and keyword arguments.
type Input struct {
	Args   []interface{}          `json:"args,omitempty" yaml:",omitempty"`
	Kwargs map[string]interface{} `json:"kwargs,omitempty" yaml:",omitempty"`
}

// Call makes an Input with the given positional arguments.
func Call(args ...interface{}) Input {
	return Input{Args: args}
}

// With returns a copy with the given keyword argument added.
func (in Input) With(k string, v interface{}) Input {
	acc := in.Copy()
	if acc.Kwargs == nil {
		acc.Kwargs = make(map[string]interface{}, 1)
	}
	acc.Kwargs[k] = v
	return acc
}

// Prepend returns a copy with x as the new first positional
// argument.
func (in Input) Prepend(x interface{}) Input {
	acc := in.Copy()
	acc.Args = append([]interface{}{x}, in.Args...)
	return acc
}

// Arg returns the i-th positional argument or nil.
func (in Input) Arg(i int) interface{} {
	if i < 0 || len(in.Args) <= i {
		return nil
	}
	return in.Args[i]
}

// Copy makes a shallow copy.
func (in Input) Copy() Input {
	acc := Input{}
	if in.Args != nil {
		acc.Args = make([]interface{}, len(in.Args))
		copy(acc.Args, in.Args)
	}
	if in.Kwargs != nil {
		acc.Kwargs = make(map[string]interface{}, len(in.Kwargs))
		for k, v := range in.Kwargs {
			acc.Kwargs[k] = v
		}
	}
	return acc
}
