package goja

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Comcast/combinators/core"
	"github.com/Comcast/combinators/dist"
	"github.com/Comcast/combinators/handlers"
	"github.com/Comcast/combinators/tensor"
	"github.com/Comcast/combinators/trace"
	"github.com/Comcast/combinators/util"

	"github.com/dop251/goja"
	"go.uber.org/zap"
)

var (
	// InterruptedMessage is the string value of Interrupted.
	InterruptedMessage = "RuntimeError: timeout"

	// Interrupted is returned by Exec if the execution is
	// interrupted.
	Interrupted = errors.New(InterruptedMessage)
)

// init adds a Interpreter as one of the DefaultInterpreters
func init() {
	core.DefaultInterpreters["goja"] = NewInterpreter()
}

// Interpreter implements core.Intepreter using Goja, which is a
// Go implementation of ECMAScript 5.1+.
//
// See https://github.com/dop251/goja.
type Interpreter struct {

	// Testing is used to expose or hide some runtime
	// capabilities.
	Testing bool

	// LibraryProvider is a pluggable library provider, which is
	// used instead of DefaultLibraryProvider when not nil.
	LibraryProvider func(ctx context.Context, i *Interpreter, libraryName string) (string, error)
}

// NewInterpreter makes a new Interpreter.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

// CompileLibrary checks that a library compiles.
//
// Goja can't currently combine ast.Programs, so the result isn't
// used for anything.
func (i *Interpreter) CompileLibrary(ctx context.Context, name, src string) (interface{}, error) {
	return goja.Compile(name, src, true)
}

// ProvideLibrary resolves the library name into a library.
func (i *Interpreter) ProvideLibrary(ctx context.Context, name string) (string, error) {
	if i.LibraryProvider != nil {
		return i.LibraryProvider(ctx, i, name)
	}
	return DefaultLibraryProvider(ctx, i, name)
}

var DefaultLibraryProvider = MakeFileLibraryProvider(".")

// MakeFileLibraryProvider makes a library provider that supports
// (barely) names that are URLs with protocols of "file", "http", and
// "https". There currently is no additional control when using
// HTTP/HTTPS.
func MakeFileLibraryProvider(dir string) func(context.Context, *Interpreter, string) (string, error) {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		parts := strings.SplitN(name, "://", 2)
		if 2 != len(parts) {
			return "", fmt.Errorf("bad link '%s'", name)
		}
		switch parts[0] {
		case "file":
			// ToDo: Maybe protest any ".."?
			filename := parts[1]
			bs, err := ioutil.ReadFile(dir + "/" + filename)
			if err != nil {
				return "", err
			}
			return string(bs), nil
		case "http", "https":
			req, err := http.NewRequest("GET", name, nil)
			if err != nil {
				return "", err
			}
			req = req.WithContext(ctx)
			client := http.Client{}
			resp, err := client.Do(req)
			if err != nil {
				return "", err
			}
			defer resp.Body.Close()
			switch resp.StatusCode {
			case http.StatusOK:
				bs, err := ioutil.ReadAll(resp.Body)
				if err != nil {
					return "", err
				}
				return string(bs), nil
			default:
				return "", fmt.Errorf("library fetch status %s %d",
					resp.Status, resp.StatusCode)
			}
		default:
			return "", fmt.Errorf("unknown protocol '%s'", parts[0])
		}
	}
}

func MakeMapLibraryProvider(srcs map[string]string) func(context.Context, *Interpreter, string) (string, error) {
	return func(ctx context.Context, i *Interpreter, name string) (string, error) {
		src, have := srcs[name]
		if !have {
			return "", fmt.Errorf("undefined library '%s'", name)
		}
		return src, nil
	}
}

func wrapSrc(src string) string {
	return fmt.Sprintf("(function() {\n%s\n}());\n", src)
}

// parseSource looks into the given map to try to find "requires" and
// "code" properties.
//
// The YAML parser https://github.com/go-yaml/yaml will return
// map[interface{}]interface{}, so AsSource also accepts those maps.
func parseSource(vv map[string]interface{}) (code string, libs []string, err error) {
	x := vv["code"]
	if s, is := x.(string); is {
		code = s
	} else {
		err = errors.New("bad Goja program code")
		return
	}

	switch vv := vv["requires"].(type) {
	case nil:
	case string:
		libs = []string{vv}
	case []string:
		libs = vv
	case []interface{}:
		libs = make([]string, 0, len(vv))
		for _, x := range vv {
			switch vv := x.(type) {
			case string:
				libs = append(libs, vv)
			default:
				err = errors.New("bad library")
				return
			}
		}
	default:
		err = fmt.Errorf("bad requires (%T)", vv)
	}

	return
}

// AsSource extracts code and required library names from a program
// source, which is either a string or a map with "code" and
// (optional) "requires".
func AsSource(src interface{}) (code string, libs []string, err error) {
	switch vv := src.(type) {
	case string:
		code = vv
		return
	case map[interface{}]interface{}:
		m := make(map[string]interface{})
		for k, v := range vv {
			str, ok := k.(string)
			if !ok {
				err = fmt.Errorf("bad src key (%T)", k)
				return
			}
			m[str] = v
		}
		return parseSource(m)
	case map[string]interface{}:
		return parseSource(vv)
	default:
		err = fmt.Errorf("bad Goja source (%T)", src)
		return
	}
}

// Compile prepends any required libraries (with their own top-level
// require() calls inlined) and calls goja.Compile.
//
// This method can block if the interpreter's library provider blocks
// in order to obtain external libraries.
func (i *Interpreter) Compile(ctx context.Context, src interface{}) (interface{}, error) {
	code, libs, err := AsSource(src)
	if err != nil {
		return nil, err
	}

	code = wrapSrc(code)

	var libsSrc string
	for _, lib := range libs {
		libSrc, err := i.ProvideLibrary(ctx, lib)
		if err != nil {
			return nil, err
		}
		// A library can require other libraries.
		if libSrc, err = InlineRequires(ctx, libSrc, i.ProvideLibrary); err != nil {
			return nil, err
		}
		libsSrc += libSrc + "\n"
	}

	code = libsSrc + code

	obj, err := goja.Compile("", code, true)
	if err != nil {
		return nil, errors.New(err.Error() + ": " + code)
	}

	return obj, nil
}

func export(x interface{}) interface{} {
	if v, is := x.(goja.Value); is {
		if v == nil {
			return nil
		}
		return v.Export()
	}
	return x
}

// numeric converts an exported Javascript number or array of numbers
// to a float64 or []float64.  Other values are returned as is.
func numeric(x interface{}) interface{} {
	if f, ok := dist.AsFloat(x); ok {
		return f
	}
	if fs, ok := dist.AsFloats(x); ok {
		return fs
	}
	return x
}

func asTensor(x interface{}) (tensor.Tensor, bool) {
	switch vv := numeric(x).(type) {
	case nil:
		return tensor.Zero(), true
	case float64:
		return tensor.Scalar(vv), true
	case []float64:
		return tensor.Vector(vv...), true
	}
	return tensor.Tensor{}, false
}

func asParams(x interface{}) (map[string]interface{}, error) {
	switch vv := x.(type) {
	case nil:
		return map[string]interface{}{}, nil
	case map[string]interface{}:
		acc := make(map[string]interface{}, len(vv))
		for k, v := range vv {
			acc[k] = numeric(v)
		}
		return acc, nil
	}
	return nil, fmt.Errorf("bad distribution params (%T)", x)
}

// Exec implements the Interpreter method of the same name.
//
// The code runs as the body of a function, so it should `return` the
// program's output.  The following properties are available from the
// runtime at _.
//
//    args: the positional arguments.
//    kwargs: the keyword arguments.
//    sample(name, family, params): draw (or replay) a value.
//    observe(name, family, params, value): condition on a value.
//    param(name, init): get a learnable parameter, which is a number
//      if it has one element and an array otherwise.
//
// Some useful utilities:
//
//    gensym(): generate a random string from the runtime's source.
//    esc(s): URL query-escape the given string.
//    log(x): log x at debug level.
//
// For testing only:
//
//    sleep(ms): sleep for the given number of milliseconds.
//
// The Testing flag must be set to see sleep().
func (i *Interpreter) Exec(rt *handlers.Runtime, in trace.Input, src interface{}, compiled interface{}) (interface{}, error) {
	ctx := rt.Context()

	var p *goja.Program
	if compiled == nil {
		var err error
		if compiled, err = i.Compile(ctx, src); err != nil {
			return nil, err
		}
	}
	var is bool
	if p, is = compiled.(*goja.Program); !is {
		return nil, fmt.Errorf("Goja bad compilation: %T %#v", compiled, compiled)
	}

	in = in.Copy()
	args := in.Args
	if args == nil {
		args = []interface{}{}
	}
	kwargs := in.Kwargs
	if kwargs == nil {
		kwargs = map[string]interface{}{}
	}

	env := map[string]interface{}{
		"args":   args,
		"kwargs": kwargs,
	}

	o := goja.New()

	o.Set("_", env)

	// failed holds the Go error behind the most recent Javascript
	// exception thrown by the environment so that Exec can return
	// it intact.  The program might catch that exception.
	var failed error
	protest := func(err error) {
		failed = err
		panic(o.ToValue(err.Error()))
	}

	if i.Testing {
		o.Set("sleep", func(ms int) {
			time.Sleep(time.Duration(ms) * time.Millisecond)
		})
	}

	distribution := func(family, ps interface{}) dist.Distribution {
		name, is := export(family).(string)
		if !is {
			protest(fmt.Errorf("family %#v isn't a string", family))
		}
		params, err := asParams(export(ps))
		if err != nil {
			protest(err)
		}
		d, err := dist.New(name, params)
		if err != nil {
			protest(err)
		}
		return d
	}

	siteName := func(x interface{}) string {
		name, is := export(x).(string)
		if !is {
			protest(fmt.Errorf("site name %#v isn't a string", x))
		}
		return name
	}

	env["sample"] = func(name, family, ps interface{}) interface{} {
		x, err := rt.Sample(siteName(name), distribution(family, ps))
		if err != nil {
			protest(err)
		}
		return x
	}

	env["observe"] = func(name, family, ps, value interface{}) interface{} {
		x, err := rt.Observe(siteName(name), distribution(family, ps), numeric(export(value)))
		if err != nil {
			protest(err)
		}
		return x
	}

	env["param"] = func(name, init interface{}) interface{} {
		t, ok := asTensor(export(init))
		if !ok {
			protest(fmt.Errorf("bad initial value %#v", init))
		}
		v, err := rt.Param(siteName(name), t)
		if err != nil {
			protest(err)
		}
		if v.Len() == 1 {
			return v.Float()
		}
		return v.Values()
	}

	env["gensym"] = func() interface{} {
		return core.Gensym(rt.Source(), 32)
	}

	env["esc"] = func(x interface{}) interface{} {
		s, is := export(x).(string)
		if !is {
			protest(errors.New("not a string"))
		}
		return url.QueryEscape(s)
	}

	env["log"] = func(x interface{}) interface{} {
		x = export(x)
		js, err := json.Marshal(&x)
		if err != nil {
			util.Logger().Warn("goja.log can't marshal", zap.Error(err))
		} else {
			util.Logger().Debug("goja.log", zap.String("x", string(js)))
		}
		return x
	}

	// We want to make sure that the following goroutine is
	// terminated as soon as possible.
	ictx, cancel := context.WithCancel(ctx)
	go func() {
		<-ictx.Done()
		// If this Exec method calls cancel() after RunProgram
		// returns, then we'll never see this
		// InterruptedMessage, which is actually the behavior
		// we want.  In this case, we weren't actually interrupted.
		o.Interrupt(InterruptedMessage)
	}()

	v, err := o.RunProgram(p)
	cancel()

	if err != nil {
		switch vv := err.(type) {
		case *goja.InterruptedError:
			return nil, Interrupted
		case *goja.Exception:
			if failed != nil && vv.Value() != nil && vv.Value().Export() == failed.Error() {
				return nil, failed
			}
		}
		return nil, err
	}

	if v == nil {
		return nil, nil
	}
	return core.Canonicalize(v.Export())
}
