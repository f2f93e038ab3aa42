package main

import (
	"context"
	"io"

	"github.com/Comcast/combinators/core"
	"github.com/Comcast/combinators/handlers"
	"github.com/Comcast/combinators/interpreters"
	"github.com/Comcast/combinators/params"
	"github.com/Comcast/combinators/params/bolt"
	"github.com/Comcast/combinators/tools"
	"github.com/Comcast/combinators/trace"
	"github.com/Comcast/combinators/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// options are the flags shared by the subcommands.
type options struct {
	configFile string
	verbose    bool
	seed       uint64
	paramsDB   string
	args       []string

	cfg *Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "tracetool",
		Short: "Run and render trace combinator models",
		Long: `Tracetool runs and renders trace combinator models.

Commands:
  run        - importance sample a model
  analyze    - summarize a model's structure
  dot        - render one trace as Graphviz dot
  mermaid    - render one trace as Mermaid
  html       - render a model (and one trace) as HTML
  yamltojson - convert a YAML model to JSON

Example:
  tracetool run --particles 1000 --arg 0.5 gaussian.yaml
  tracetool dot --seed 3 gaussian.yaml | dot -Tpng > g.png`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(opts.configFile)
			if err != nil {
				return err
			}
			fs := cmd.Flags()
			if fs.Changed("seed") {
				cfg.Seed = opts.seed
			}
			if fs.Changed("params-db") {
				cfg.ParamsDB = opts.paramsDB
			}
			if fs.Changed("arg") {
				cfg.Args = parseArgs(opts.args)
			}
			if opts.verbose {
				cfg.Logging = true
			}
			if cfg.Logging {
				util.SetLogging(true)
			}
			opts.cfg = cfg
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configFile, "config", "c", "", "YAML config file")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	pf.Uint64Var(&opts.seed, "seed", 0, "Random seed")
	pf.StringVar(&opts.paramsDB, "params-db", "", "bbolt file for learnable parameters")
	pf.StringSliceVar(&opts.args, "arg", nil, "Positional program argument (JSON or string); repeatable")

	root.AddCommand(
		newRunCmd(opts),
		newAnalyzeCmd(opts),
		newDotCmd(opts),
		newMermaidCmd(opts),
		newHTMLCmd(opts),
		newYAMLToJSONCmd(opts),
	)

	return root
}

// readModel reads a model file with inlining.
func readModel(filename string) (*core.Model, error) {
	src, err := tools.ReadFileWithInlines(filename)
	if err != nil {
		return nil, err
	}
	return tools.ParseModel(src)
}

// openParams returns the configured parameter store and a function to
// close it.
func openParams(ctx context.Context, cfg *Config) (params.Store, func(), error) {
	if cfg.ParamsDB == "" {
		return params.NewMemStore(), func() {}, nil
	}
	s, err := bolt.NewStore(cfg.ParamsDB)
	if err != nil {
		return nil, nil, err
	}
	if err = s.Open(ctx); err != nil {
		return nil, nil, err
	}
	return s, func() {
		if err := s.Close(ctx); err != nil {
			util.Logger().Warn("closing params", zap.Error(err))
		}
	}, nil
}

// loadModel reads, compiles, and initializes a model.
func loadModel(ctx context.Context, filename string, cfg *Config) (*core.Model, params.Store, func(), error) {
	m, err := readModel(filename)
	if err != nil {
		return nil, nil, nil, err
	}
	if err = m.Compile(ctx, interpreters.Standard(), true); err != nil {
		return nil, nil, nil, err
	}
	store, done, err := openParams(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if err = m.InitParams(ctx, store); err != nil {
		done()
		return nil, nil, nil, err
	}
	return m, store, done, nil
}

// traceOnce runs the model once with the configured seed.
func traceOnce(ctx context.Context, filename string, cfg *Config) (*core.Model, *trace.Trace, error) {
	m, store, done, err := loadModel(ctx, filename, cfg)
	if err != nil {
		return nil, nil, err
	}
	defer done()
	tr, err := m.Invoke(handlers.NewRuntime(ctx, cfg.Seed, store), cfg.Input())
	if err != nil {
		return nil, nil, err
	}
	return m, tr, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error {
	return nil
}
