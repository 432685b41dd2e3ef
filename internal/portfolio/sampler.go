package portfolio

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/rng"
)

// ChunkSize is the number of portfolios drawn from one derived stream.
const ChunkSize = 256

// Options controls parallelism of sampling.
type Options struct {
	// Workers bounds concurrent chunks. Zero means GOMAXPROCS.
	Workers int
}

type chunkResult struct {
	samples   []domain.PortfolioSample
	maxSharpe int // -1 when no finite Sharpe in the chunk
	minVol    int
	nonFinite int
}

// Sample draws count random portfolios over assets.
//
// Weights are i.i.d. uniforms normalised to sum to one, which is not uniform on
// the simplex. Variance is the explicit double sum w^T*cov*w. Portfolios with a
// non-finite Sharpe ratio are kept in the cloud but excluded from max-Sharpe
// tracking and counted in NonFiniteSharpe. Chunk c of ChunkSize portfolios
// draws from stream.Derive(c) and chunks are merged in order, so the cloud and
// the tracked optima (earliest sample wins ties) do not depend on Workers.
func Sample(ctx context.Context, assets domain.AssetSet, cov domain.CovarianceMatrix, riskFree float64, count int, stream *rng.Stream, opts Options) (*domain.PortfolioCloud, error) {
	n := len(assets)
	if n == 0 || cov.Size() != n {
		return nil, fmt.Errorf("%w: covariance is %dx%d for %d assets", domain.ErrInvalidParams, cov.Size(), cov.Size(), n)
	}
	for i := range cov {
		if len(cov[i]) != n {
			return nil, fmt.Errorf("%w: covariance row %d has %d columns", domain.ErrInvalidParams, i, len(cov[i]))
		}
	}
	if count < 1 || count > MaxSamples {
		return nil, fmt.Errorf("%w: count must be in [1, %d], got %d", domain.ErrInvalidParams, MaxSamples, count)
	}

	returns := assets.Returns()
	chunks := (count + ChunkSize - 1) / ChunkSize
	results := make([]chunkResult, chunks)

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for c := 0; c < chunks; c++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			size := min(ChunkSize, count-c*ChunkSize)
			results[c] = sampleChunk(size, returns, cov, riskFree, stream.Derive(uint64(c)))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cloud := &domain.PortfolioCloud{Samples: make([]domain.PortfolioSample, 0, count)}
	maxIdx, minIdx := -1, -1
	for _, r := range results {
		offset := len(cloud.Samples)
		cloud.Samples = append(cloud.Samples, r.samples...)
		cloud.NonFiniteSharpe += r.nonFinite

		if r.maxSharpe >= 0 {
			cand := offset + r.maxSharpe
			if maxIdx < 0 || cloud.Samples[cand].Sharpe > cloud.Samples[maxIdx].Sharpe {
				maxIdx = cand
			}
		}
		if r.minVol >= 0 {
			cand := offset + r.minVol
			if minIdx < 0 || cloud.Samples[cand].Volatility < cloud.Samples[minIdx].Volatility {
				minIdx = cand
			}
		}
	}

	if maxIdx >= 0 {
		best := cloud.Samples[maxIdx]
		cloud.MaxSharpe = &best
	}
	if minIdx >= 0 {
		best := cloud.Samples[minIdx]
		cloud.MinVolatility = &best
	}
	return cloud, nil
}

func sampleChunk(size int, returns []float64, cov domain.CovarianceMatrix, riskFree float64, src rng.Source) chunkResult {
	n := len(returns)
	res := chunkResult{
		samples:   make([]domain.PortfolioSample, size),
		maxSharpe: -1,
		minVol:    -1,
	}

	for s := 0; s < size; s++ {
		w := make([]float64, n)
		var sum float64
		for j := range w {
			w[j] = src.Uniform()
			sum += w[j]
		}

		var ret float64
		for j := range w {
			w[j] /= sum
			ret += w[j] * returns[j]
		}

		var variance float64
		for r := 0; r < n; r++ {
			var row float64
			for c := 0; c < n; c++ {
				row += w[c] * cov[r][c]
			}
			variance += w[r] * row
		}
		// Rounding can push a PSD quadratic form slightly below zero.
		if variance < 0 {
			variance = 0
		}

		vol := math.Sqrt(variance)
		sharpe := (ret - riskFree) / vol
		res.samples[s] = domain.PortfolioSample{Weights: w, Return: ret, Volatility: vol, Sharpe: sharpe}

		if math.IsNaN(sharpe) || math.IsInf(sharpe, 0) {
			res.nonFinite++
		} else if res.maxSharpe < 0 || sharpe > res.samples[res.maxSharpe].Sharpe {
			res.maxSharpe = s
		}
		if !math.IsNaN(vol) && (res.minVol < 0 || vol < res.samples[res.minVol].Volatility) {
			res.minVol = s
		}
	}
	return res
}
