// Package simulation runs engine operations end to end: it resolves seeds,
// derives run IDs, executes the engine, verifies invariants and persists
// results when stores are configured.
package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/idhash"
	"diffusion-lab/internal/observability"
	"diffusion-lab/internal/rng"
	"diffusion-lab/internal/storage"
	"diffusion-lab/internal/verification"
)

// ErrUnknownKind is returned when replaying a run of an unsupported kind.
var ErrUnknownKind = errors.New("unknown run kind")

// Runner executes engine operations.
type Runner struct {
	runStore      storage.RunStore
	bandStore     storage.BandStore
	frontierStore storage.FrontierStore
	metrics       *observability.Metrics
	logger        *log.Logger
	workers       int
	bandStride    int
	clock         func() time.Time
}

// RunnerOptions contains configuration for creating a Runner.
// Every store is optional; a nil store disables that part of persistence.
type RunnerOptions struct {
	RunStore      storage.RunStore
	BandStore     storage.BandStore
	FrontierStore storage.FrontierStore
	Metrics       *observability.Metrics // defaults to observability.DefaultMetrics
	Logger        *log.Logger            // defaults to log.Default()
	Workers       int                    // 0 means GOMAXPROCS
	BandStride    int                    // persist every k-th step's band; 0 means every step
	Clock         func() time.Time       // defaults to time.Now
}

// NewRunner creates a simulation runner.
func NewRunner(opts RunnerOptions) *Runner {
	r := &Runner{
		runStore:      opts.RunStore,
		bandStore:     opts.BandStore,
		frontierStore: opts.FrontierStore,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		workers:       opts.Workers,
		bandStride:    opts.BandStride,
		clock:         opts.Clock,
	}
	if r.metrics == nil {
		r.metrics = observability.DefaultMetrics
	}
	if r.logger == nil {
		r.logger = log.Default()
	}
	if r.bandStride < 1 {
		r.bandStride = 1
	}
	if r.clock == nil {
		r.clock = time.Now
	}
	return r
}

// run carries the bookkeeping of one execution.
type run struct {
	kind    domain.RunKind
	id      string
	seed    uint64
	params  any
	started time.Time
}

// begin resolves the seed and computes the deterministic run ID.
func (r *Runner) begin(kind domain.RunKind, seed *uint64, params any) (*run, error) {
	var s uint64
	if seed != nil {
		s = *seed
	} else {
		var err error
		s, err = rng.NewSeed()
		if err != nil {
			return nil, err
		}
	}

	id, err := idhash.ComputeRunID(string(kind), s, params)
	if err != nil {
		return nil, fmt.Errorf("compute run id: %w", err)
	}
	return &run{kind: kind, id: id, seed: s, params: params, started: r.clock()}, nil
}

// record builds the run record for a finished execution.
func (r *Runner) record(rn *run, summary any) (*domain.RunRecord, error) {
	params, err := json.Marshal(rn.params)
	if err != nil {
		return nil, fmt.Errorf("encode params: %w", err)
	}
	sum, err := json.Marshal(summary)
	if err != nil {
		return nil, fmt.Errorf("encode summary: %w", err)
	}
	now := r.clock()
	return &domain.RunRecord{
		RunID:       rn.id,
		Kind:        rn.kind,
		Seed:        rn.seed,
		Params:      params,
		Summary:     sum,
		DurationMs:  now.Sub(rn.started).Milliseconds(),
		CreatedAtMs: now.UnixMilli(),
	}, nil
}

// fail records a failed run.
func (r *Runner) fail(kind domain.RunKind, started time.Time, err error) error {
	r.metrics.RecordRun(string(kind), "error", r.clock().Sub(started).Seconds())
	return err
}

// finish records metrics, logs divergences and persists the run with its
// bands and frontier rows. A run that was already stored (same kind, seed and
// params) is not written again.
func (r *Runner) finish(ctx context.Context, rn *run, summary any, bands []domain.EnsembleBand, frontier []domain.FrontierRow, divergences []verification.Divergence) (*domain.RunRecord, error) {
	rec, err := r.record(rn, summary)
	if err != nil {
		return nil, r.fail(rn.kind, rn.started, err)
	}

	if len(divergences) > 0 {
		r.metrics.RecordDivergences(verification.Checks(divergences))
		r.logger.Printf("run %s (%s): %d invariant divergences, first: %s: %s",
			rec.RunID, rec.Kind, len(divergences), divergences[0].Check, divergences[0].Detail)
	}

	if err := r.persist(ctx, rec, bands, frontier); err != nil {
		return nil, r.fail(rn.kind, rn.started, err)
	}

	seconds := float64(rec.DurationMs) / 1000
	r.metrics.RecordRun(string(rn.kind), "ok", seconds)
	r.metrics.LastSuccessfulRun.SetToCurrentTime()
	r.logger.Printf("run %s kind=%s seed=%d duration=%dms", rec.RunID, rec.Kind, rec.Seed, rec.DurationMs)
	return rec, nil
}

func (r *Runner) persist(ctx context.Context, rec *domain.RunRecord, bands []domain.EnsembleBand, frontier []domain.FrontierRow) error {
	if r.runStore == nil {
		return nil
	}

	start := time.Now()
	err := r.runStore.Insert(ctx, rec)
	r.metrics.RecordDBQuery("run_store", "insert", time.Since(start).Seconds(), ignoreDuplicate(err))
	if errors.Is(err, storage.ErrDuplicateKey) {
		r.logger.Printf("run %s already stored, skipping persistence", rec.RunID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("store run: %w", err)
	}

	if r.bandStore != nil && len(bands) > 0 {
		ptrs := make([]*domain.EnsembleBand, len(bands))
		for i := range bands {
			ptrs[i] = &bands[i]
		}
		start = time.Now()
		err = r.bandStore.InsertBulk(ctx, ptrs)
		r.metrics.RecordDBQuery("band_store", "insert_bulk", time.Since(start).Seconds(), ignoreDuplicate(err))
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("store bands: %w", err)
		}
	}

	if r.frontierStore != nil && len(frontier) > 0 {
		ptrs := make([]*domain.FrontierRow, len(frontier))
		for i := range frontier {
			ptrs[i] = &frontier[i]
		}
		start = time.Now()
		err = r.frontierStore.InsertBulk(ctx, ptrs)
		r.metrics.RecordDBQuery("frontier_store", "insert_bulk", time.Since(start).Seconds(), ignoreDuplicate(err))
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return fmt.Errorf("store frontier: %w", err)
		}
	}
	return nil
}

func ignoreDuplicate(err error) error {
	if errors.Is(err, storage.ErrDuplicateKey) {
		return nil
	}
	return err
}

// Replay re-executes a stored run from its kind, seed and params without
// persisting anything. It implements verification.Replayer.
func (r *Runner) Replay(ctx context.Context, stored *domain.RunRecord) (*domain.RunRecord, error) {
	rn := &run{kind: stored.Kind, seed: stored.Seed, started: r.clock()}
	var summary any

	switch stored.Kind {
	case domain.RunKindBachelier:
		p, err := decodeParams[BachelierParams](rn, stored.Params)
		if err != nil {
			return nil, err
		}
		res, err := r.execBachelier(ctx, rn.id, p, rn.seed)
		if err != nil {
			return nil, err
		}
		summary = res.Summary
	case domain.RunKindDiffusion:
		p, err := decodeParams[DiffusionParams](rn, stored.Params)
		if err != nil {
			return nil, err
		}
		res, err := r.execDiffusion(ctx, p, rn.seed)
		if err != nil {
			return nil, err
		}
		summary = res.Summary
	case domain.RunKindFractional:
		p, err := decodeParams[FractionalParams](rn, stored.Params)
		if err != nil {
			return nil, err
		}
		res, err := r.execFractional(p, rn.seed)
		if err != nil {
			return nil, err
		}
		summary = res.Summary
	case domain.RunKindRegime:
		p, err := decodeParams[RegimeParams](rn, stored.Params)
		if err != nil {
			return nil, err
		}
		res, err := r.execRegime(p, rn.seed)
		if err != nil {
			return nil, err
		}
		summary = res.Summary
	case domain.RunKindOption:
		p, err := decodeParams[domain.OptionInputs](rn, stored.Params)
		if err != nil {
			return nil, err
		}
		summary = execOption(p).Summary
	case domain.RunKindPortfolio:
		p, err := decodeParams[PortfolioParams](rn, stored.Params)
		if err != nil {
			return nil, err
		}
		res, err := r.execPortfolio(ctx, rn.id, p, rn.seed)
		if err != nil {
			return nil, err
		}
		summary = res.Summary
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, stored.Kind)
	}

	return r.record(rn, summary)
}

// decodeParams decodes stored params into T and recomputes the run ID from
// the typed value, so storage-side JSON normalisation does not change it.
func decodeParams[T any](rn *run, raw json.RawMessage) (T, error) {
	var p T
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode params: %w", err)
	}
	id, err := idhash.ComputeRunID(string(rn.kind), rn.seed, p)
	if err != nil {
		return p, fmt.Errorf("compute run id: %w", err)
	}
	rn.id = id
	rn.params = p
	return p, nil
}
