package pathsim

import (
	"fmt"
	"math"

	"diffusion-lab/internal/domain"
	"diffusion-lab/internal/rng"
)

// MaxLevels bounds fractional series to 2^20+1 points.
const MaxLevels = 20

// Market proxy settings used alongside a model series.
const (
	MarketProxyHurst  = 0.55
	MarketProxyLevels = 9
)

// SimulateFractional generates a fractional Brownian motion series on
// 2^levels+1 points by random midpoint displacement.
//
// The series starts at 0 and ends at a standard normal draw. At each level the
// midpoint of every interval is the average of its endpoints plus a normal
// displacement with standard deviation sqrt(v)*0.5^H, after which v is scaled
// by 0.5^(2H). v starts at 1.
func SimulateFractional(levels int, hurst float64, src rng.Source) (*domain.FBMSeries, error) {
	if err := ValidateFractional(levels, hurst); err != nil {
		return nil, err
	}

	size := 1<<levels + 1
	series := make([]float64, size)
	series[size-1] = src.Normal(0, 1)

	scale := math.Pow(0.5, hurst)
	variance := 1.0
	for step := size - 1; step > 1; step /= 2 {
		half := step / 2
		std := math.Sqrt(variance) * scale
		for mid := half; mid < size; mid += step {
			series[mid] = 0.5*(series[mid-half]+series[mid+half]) + src.Normal(0, std)
		}
		variance *= scale * scale
	}

	return &domain.FBMSeries{Hurst: hurst, Levels: levels, Values: series}, nil
}

// ValidateFractional checks the arguments of SimulateFractional.
func ValidateFractional(levels int, hurst float64) error {
	if levels < 1 || levels > MaxLevels {
		return fmt.Errorf("%w: levels must be in [1, %d], got %d", domain.ErrInvalidParams, MaxLevels, levels)
	}
	if math.IsNaN(hurst) || hurst <= 0 || hurst >= 1 {
		return fmt.Errorf("%w: hurst must be in (0, 1), got %v", domain.ErrInvalidParams, hurst)
	}
	return nil
}
