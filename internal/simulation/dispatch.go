package simulation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"diffusion-lab/internal/domain"
)

// Dispatch decodes params over the defaults of kind, runs the operation and
// returns its run ID and full result. Empty params run the defaults.
// Undecodable params are reported as domain.ErrInvalidParams.
func (r *Runner) Dispatch(ctx context.Context, kind domain.RunKind, params json.RawMessage) (string, any, error) {
	switch kind {
	case domain.RunKindBachelier:
		req := DefaultBachelierRequest()
		if err := decodeRequest(params, &req); err != nil {
			return "", nil, err
		}
		res, err := r.RunBachelier(ctx, req)
		if err != nil {
			return "", nil, err
		}
		return res.RunID, res, nil

	case domain.RunKindDiffusion:
		req := DefaultDiffusionRequest()
		if err := decodeRequest(params, &req); err != nil {
			return "", nil, err
		}
		res, err := r.RunDiffusion(ctx, req)
		if err != nil {
			return "", nil, err
		}
		return res.RunID, res, nil

	case domain.RunKindFractional:
		req := DefaultFractionalRequest()
		if err := decodeRequest(params, &req); err != nil {
			return "", nil, err
		}
		res, err := r.RunFractional(ctx, req)
		if err != nil {
			return "", nil, err
		}
		return res.RunID, res, nil

	case domain.RunKindRegime:
		req := DefaultRegimeRequest()
		if err := decodeRequest(params, &req); err != nil {
			return "", nil, err
		}
		res, err := r.RunRegimeWalk(ctx, req)
		if err != nil {
			return "", nil, err
		}
		return res.RunID, res, nil

	case domain.RunKindOption:
		in := domain.DefaultOptionInputs()
		if err := decodeRequest(params, &in); err != nil {
			return "", nil, err
		}
		res, err := r.PriceOption(ctx, in)
		if err != nil {
			return "", nil, err
		}
		return res.RunID, res, nil

	case domain.RunKindPortfolio:
		req := DefaultPortfolioRequest()
		if err := decodeRequest(params, &req); err != nil {
			return "", nil, err
		}
		res, err := r.RunPortfolio(ctx, req)
		if err != nil {
			return "", nil, err
		}
		return res.RunID, res, nil
	}
	return "", nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
}

// decodeRequest decodes params over dst, rejecting unknown fields.
func decodeRequest(params json.RawMessage, dst any) error {
	if len(bytes.TrimSpace(params)) == 0 || bytes.Equal(bytes.TrimSpace(params), []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(params))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: decode params: %v", domain.ErrInvalidParams, err)
	}
	return nil
}
