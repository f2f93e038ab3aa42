// Package importance runs a combinator as an importance sampler.
//
// Every particle gets its own handlers.Runtime, so particles can run
// in parallel while sharing the (immutable) combinator and the
// parameter store.
package importance

import (
	"context"
	"errors"
	"math"
	"runtime"

	"github.com/Comcast/combinators/core"
	"github.com/Comcast/combinators/handlers"
	"github.com/Comcast/combinators/params"
	"github.com/Comcast/combinators/trace"
	"github.com/Comcast/combinators/util"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// ErrNoParticles occurs when a Sampler is asked for fewer than one
// particle.
var ErrNoParticles = errors.New("need at least one particle")

// Sampler invokes a Program once per particle.
type Sampler struct {
	Program core.TraceProgram

	// Particles is the number of invocations.
	Particles int

	// Workers limits the number of concurrent invocations.  Zero
	// means GOMAXPROCS.
	Workers int

	// Seed seeds particle i's Runtime with Seed+i.
	Seed uint64

	// Params is shared by all particles.  Nil means a fresh
	// params.MemStore.
	Params params.Store

	// Logger defaults to util.Logger().
	Logger *zap.Logger
}

// Particle is one weighted invocation.
type Particle struct {
	Index int          `json:"index"`
	Trace *trace.Trace `json:"trace"`

	// LogWeight is the sum of the trace's _LOGWEIGHT, so a batched
	// log weight becomes a single particle weight.
	LogWeight float64 `json:"logWeight"`

	// Loss is the sum of the trace's _LOSS.
	Loss float64 `json:"loss"`
}

// Result summarizes a run.
type Result struct {
	Particles []*Particle `json:"particles"`

	// LogEvidence is the log of the mean importance weight.
	LogEvidence float64 `json:"logEvidence"`

	// ESS is the effective sample size of the normalized
	// weights.
	ESS float64 `json:"ess"`

	MeanLoss float64 `json:"meanLoss"`
}

// Run invokes the program on the input for each particle.  The first
// error cancels the remaining particles.
func (s *Sampler) Run(ctx context.Context, in trace.Input) (*Result, error) {
	if s.Particles < 1 {
		return nil, ErrNoParticles
	}
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	store := s.Params
	if store == nil {
		store = params.NewMemStore()
	}
	logger := s.Logger
	if logger == nil {
		logger = util.Logger()
	}

	// Indexes are unique to each goroutine.
	ps := make([]*Particle, s.Particles)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range ps {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rt := handlers.NewRuntime(gctx, s.Seed+uint64(i), store)
			tr, err := s.Program.Invoke(rt, in)
			if err != nil {
				return err
			}
			lw, err := core.LogWeight(tr)
			if err != nil {
				return err
			}
			loss, err := core.Loss(tr)
			if err != nil {
				return err
			}
			ps[i] = &Particle{
				Index:     i,
				Trace:     tr,
				LogWeight: lw.Sum().Float(),
				Loss:      loss.Sum().Float(),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.Warn("importance run failed", zap.Error(err))
		return nil, err
	}

	r := Summarize(ps)

	logger.Debug("importance run",
		zap.Int("particles", len(ps)),
		zap.Float64("logEvidence", r.LogEvidence),
		zap.Float64("ess", r.ESS))

	return r, nil
}

// Summarize computes the log evidence, effective sample size, and
// mean loss of the given particles.
func Summarize(ps []*Particle) *Result {
	r := &Result{
		Particles: ps,
	}
	if len(ps) == 0 {
		r.LogEvidence = math.Inf(-1)
		return r
	}

	lws := make([]float64, len(ps))
	losses := make([]float64, len(ps))
	for i, p := range ps {
		lws[i] = p.LogWeight
		losses[i] = p.Loss
	}

	n := float64(len(ps))
	lse := floats.LogSumExp(lws)
	r.LogEvidence = lse - math.Log(n)
	r.MeanLoss = floats.Sum(losses) / n

	if math.IsInf(lse, -1) || math.IsNaN(lse) {
		return r
	}

	// ESS = 1 / sum(w_i^2) for normalized w.
	ws := make([]float64, len(lws))
	for i, lw := range lws {
		ws[i] = math.Exp(lw - lse)
	}
	r.ESS = 1 / floats.Dot(ws, ws)

	return r
}
