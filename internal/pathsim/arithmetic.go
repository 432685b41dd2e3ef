// Package pathsim generates Brownian path ensembles and fractional Brownian
// motion series.
package pathsim

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/rng"
)

// Options controls parallelism of ensemble generation.
type Options struct {
	// Workers bounds concurrent path generation. Zero means GOMAXPROCS.
	Workers int
}

func (o Options) workers(n int) int {
	w := o.Workers
	if w <= 0 {
		w = runtime.GOMAXPROCS(0)
	}
	if n < 100 {
		w = 1
	}
	return w
}

// SimulateArithmetic generates params.N arithmetic Brownian paths.
//
// Each path starts at S0 and takes floor(T/dt) steps of
// mu*dt + sigma*sqrt(dt)*Z. Path i draws only from stream.Derive(i), so the
// ensemble is identical for any worker count. Values are not clamped.
// The context is checked between paths.
func SimulateArithmetic(ctx context.Context, params domain.DiffusionParams, stream *rng.Stream, opts Options) (*domain.PathEnsemble, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	grid := Grid{
		S0:    params.S0,
		Mu:    params.EffectiveMu(),
		Sigma: params.Sigma,
		Dt:    params.Dt,
		Steps: params.Steps(),
		N:     params.N,
	}
	return SimulateGrid(ctx, grid, stream, opts)
}

// Grid is an explicit step layout for an ensemble.
type Grid struct {
	S0    float64
	Mu    float64
	Sigma float64
	Dt    float64
	Steps int
	N     int
}

// SimulateGrid generates g.N paths of g.Steps steps each.
func SimulateGrid(ctx context.Context, grid Grid, stream *rng.Stream, opts Options) (*domain.PathEnsemble, error) {
	if grid.Steps < 1 || grid.N < 1 || !(grid.Dt > 0) || grid.Sigma < 0 {
		return nil, fmt.Errorf("%w: grid needs steps >= 1, n >= 1, dt > 0, sigma >= 0", domain.ErrInvalidParams)
	}

	times := make([]float64, grid.Steps+1)
	for k := range times {
		times[k] = float64(k) * grid.Dt
	}

	drift := grid.Mu * grid.Dt
	vol := grid.Sigma * math.Sqrt(grid.Dt)
	paths := make([]domain.Path, grid.N)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.workers(grid.N))

	for i := 0; i < grid.N; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			paths[i] = walk(grid.S0, grid.Steps, drift, vol, stream.Derive(uint64(i)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &domain.PathEnsemble{Times: times, Paths: paths}, nil
}

func walk(s0 float64, steps int, drift, vol float64, src rng.Source) domain.Path {
	p := make(domain.Path, steps+1)
	p[0] = s0
	for k := 1; k <= steps; k++ {
		p[k] = p[k-1] + drift + vol*src.Normal(0, 1)
	}
	return p
}
