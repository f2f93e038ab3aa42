package main

import (
	"encoding/json"
	"io/ioutil"

	"github.com/Comcast/combinators/importance"
	"github.com/Comcast/combinators/tools"
	"github.com/Comcast/combinators/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func writeJSON(cmd *cobra.Command, x interface{}, pretty bool) error {
	var (
		bs  []byte
		err error
	)
	if pretty {
		bs, err = json.MarshalIndent(x, "", "  ")
	} else {
		bs, err = json.Marshal(x)
	}
	if err != nil {
		return err
	}
	bs = append(bs, '\n')
	_, err = cmd.OutOrStdout().Write(bs)
	return err
}

func newRunCmd(opts *options) *cobra.Command {
	var (
		particles  int
		workers    int
		withTraces bool
	)

	cmd := &cobra.Command{
		Use:   "run MODEL",
		Short: "Importance sample a model",
		Long: `Run invokes the model once per particle and reports the log
evidence, the effective sample size, and the mean loss.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("particles") {
				cfg.Particles = particles
			}
			if cmd.Flags().Changed("workers") {
				cfg.Workers = workers
			}

			ctx := cmd.Context()
			m, store, done, err := loadModel(ctx, args[0], cfg)
			if err != nil {
				return err
			}
			defer done()

			s := &importance.Sampler{
				Program:   m,
				Particles: cfg.Particles,
				Workers:   cfg.Workers,
				Seed:      cfg.Seed,
				Params:    store,
			}
			r, err := s.Run(ctx, cfg.Input())
			if err != nil {
				return err
			}

			util.Logger().Info("run",
				zap.String("model", m.Name),
				zap.Int("particles", len(r.Particles)),
				zap.Float64("logEvidence", r.LogEvidence))

			if !withTraces {
				r.Particles = nil
			}
			return writeJSON(cmd, r, true)
		},
	}

	cmd.Flags().IntVarP(&particles, "particles", "n", 100, "Number of particles")
	cmd.Flags().IntVar(&workers, "workers", 0, "Concurrent particles (0 means GOMAXPROCS)")
	cmd.Flags().BoolVar(&withTraces, "traces", false, "Include each particle's trace")

	return cmd
}

func newAnalyzeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze MODEL",
		Short: "Summarize a model's structure",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := readModel(args[0])
			if err != nil {
				return err
			}
			a, err := tools.Analyze(m)
			if err != nil {
				return err
			}
			return writeJSON(cmd, a, true)
		},
	}
}

func newDotCmd(opts *options) *cobra.Command {
	var highlight string

	cmd := &cobra.Command{
		Use:   "dot MODEL",
		Short: "Render one trace as Graphviz dot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tr, err := traceOnce(cmd.Context(), args[0], opts.cfg)
			if err != nil {
				return err
			}
			return tools.Dot(tr, nopCloser{cmd.OutOrStdout()}, highlight)
		},
	}

	cmd.Flags().StringVar(&highlight, "highlight", "", "Address to draw in red")

	return cmd
}

func newMermaidCmd(opts *options) *cobra.Command {
	mopts := &tools.MermaidOpts{
		ObservedFill:    "#bcf2db",
		SubstitutedFill: "#f9c74f",
	}

	cmd := &cobra.Command{
		Use:   "mermaid MODEL",
		Short: "Render one trace as Mermaid",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, tr, err := traceOnce(cmd.Context(), args[0], opts.cfg)
			if err != nil {
				return err
			}
			return tools.Mermaid(tr, nopCloser{cmd.OutOrStdout()}, mopts)
		},
	}

	cmd.Flags().BoolVar(&mopts.ShowValues, "values", true, "Show sample values")
	cmd.Flags().BoolVar(&mopts.Bookkeeping, "bookkeeping", false, "Include _RETURN and friends")

	return cmd
}

func newHTMLCmd(opts *options) *cobra.Command {
	var (
		css     []string
		noTrace bool
	)

	cmd := &cobra.Command{
		Use:   "html MODEL",
		Short: "Render a model and one of its traces as HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if noTrace {
				return tools.ReadAndRenderModelPage(args[0], css, cmd.OutOrStdout())
			}
			m, tr, err := traceOnce(cmd.Context(), args[0], opts.cfg)
			if err != nil {
				return err
			}
			return tools.RenderModelPage(m, tr, cmd.OutOrStdout(), css)
		},
	}

	cmd.Flags().StringSliceVar(&css, "css", nil, "CSS files to link")
	cmd.Flags().BoolVar(&noTrace, "no-trace", false, "Don't run the model")

	return cmd
}

func newYAMLToJSONCmd(opts *options) *cobra.Command {
	var pretty bool

	cmd := &cobra.Command{
		Use:   "yamltojson",
		Short: "Convert a YAML model on stdin to JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bs, err := ioutil.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			m, err := tools.ParseModel(bs)
			if err != nil {
				return err
			}
			return writeJSON(cmd, m, pretty)
		},
	}

	cmd.Flags().BoolVarP(&pretty, "pretty", "p", false, "Pretty-print")

	return cmd
}
