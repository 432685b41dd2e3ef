package portfolio

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"diffusion-lab/internal/domain"
)

// ErrNoFiniteSharpe is returned when no sampled portfolio has a finite Sharpe ratio.
var ErrNoFiniteSharpe = errors.New("no portfolio with a finite sharpe ratio")

// CMLExtension is how far past the tangency volatility the CML is drawn.
const CMLExtension = 1.5

// ExtractFrontier approximates the efficient frontier from a sampled cloud.
//
// The return axis from the minimum-volatility portfolio's return up to the
// highest asset return is split into bins; each bin keeps its lowest-volatility
// sample among returns in [minRet, maxAssetReturn). The highest-return asset
// itself is appended as the endpoint and points are sorted by return. When the
// cloud has a max-Sharpe portfolio the capital market line is attached.
func ExtractFrontier(cloud *domain.PortfolioCloud, assets domain.AssetSet, riskFree float64, bins int) (*domain.Frontier, error) {
	if cloud == nil || cloud.MinVolatility == nil {
		return nil, fmt.Errorf("%w: cloud has no minimum-volatility portfolio", domain.ErrInvalidParams)
	}
	top := assets.MaxReturnIndex()
	if top < 0 {
		return nil, fmt.Errorf("%w: no assets", domain.ErrInvalidParams)
	}
	if bins < 1 {
		return nil, fmt.Errorf("%w: bins must be >= 1, got %d", domain.ErrInvalidParams, bins)
	}

	minRet := cloud.MinVolatility.Return
	maxRet := assets[top].ExpectedReturn
	binSize := (maxRet - minRet) / float64(bins)

	best := make([]*domain.FrontierPoint, bins)
	if binSize > 0 {
		for _, s := range cloud.Samples {
			if s.Return < minRet || s.Return >= maxRet || math.IsNaN(s.Volatility) {
				continue
			}
			b := int(math.Floor((s.Return - minRet) / binSize))
			if b >= bins {
				b = bins - 1
			}
			if best[b] == nil || s.Volatility < best[b].Volatility {
				best[b] = &domain.FrontierPoint{Volatility: s.Volatility, Return: s.Return}
			}
		}
	}

	points := make([]domain.FrontierPoint, 0, bins+1)
	for _, p := range best {
		if p != nil {
			points = append(points, *p)
		}
	}
	points = append(points, domain.FrontierPoint{Volatility: assets[top].Volatility, Return: maxRet})
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Return < points[j].Return
	})

	frontier := &domain.Frontier{Points: points}
	cml, err := CapitalMarketLine(cloud, riskFree)
	switch {
	case err == nil:
		frontier.CML = cml
	case errors.Is(err, ErrNoFiniteSharpe):
		// frontier without a CML
	default:
		return nil, err
	}
	return frontier, nil
}

// CapitalMarketLine returns the ray from (0, rf) through the max-Sharpe
// portfolio, sampled at 0, sigma* and 1.5*sigma*.
func CapitalMarketLine(cloud *domain.PortfolioCloud, riskFree float64) (*domain.CapitalMarketLine, error) {
	if cloud == nil || cloud.MaxSharpe == nil {
		return nil, ErrNoFiniteSharpe
	}
	tangent := cloud.MaxSharpe
	slope := (tangent.Return - riskFree) / tangent.Volatility
	far := tangent.Volatility * CMLExtension

	return &domain.CapitalMarketLine{
		RiskFree: riskFree,
		Slope:    slope,
		Points: []domain.FrontierPoint{
			{Volatility: 0, Return: riskFree},
			{Volatility: tangent.Volatility, Return: tangent.Return},
			{Volatility: far, Return: riskFree + slope*far},
		},
	}, nil
}
