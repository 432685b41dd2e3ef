package domain

// Path is the sequence of values of one simulated trajectory.
type Path []float64

// Terminal returns the last value of the path.
func (p Path) Terminal() float64 {
	if len(p) == 0 {
		return 0
	}
	return p[len(p)-1]
}

// PathEnsemble is a set of paths sharing one time grid.
// Every path has len(Times) values and starts at S0.
type PathEnsemble struct {
	Times []float64 `json:"times"`
	Paths []Path    `json:"paths"`
}

// Terminals returns the terminal value of every path.
func (e *PathEnsemble) Terminals() []float64 {
	out := make([]float64, len(e.Paths))
	for i, p := range e.Paths {
		out[i] = p.Terminal()
	}
	return out
}

// Column returns the values of all paths at time index k.
func (e *PathEnsemble) Column(k int) []float64 {
	out := make([]float64, len(e.Paths))
	for i, p := range e.Paths {
		out[i] = p[k]
	}
	return out
}

// FBMSeries is a fractional Brownian motion sample on 2^Levels+1 points.
type FBMSeries struct {
	Hurst  float64   `json:"hurst"`
	Levels int       `json:"levels"`
	Values []float64 `json:"values"` // Values[0] == 0
}

// Returns returns the first differences of the series.
func (s *FBMSeries) Returns() []float64 {
	if len(s.Values) < 2 {
		return nil
	}
	out := make([]float64, len(s.Values)-1)
	for i := 1; i < len(s.Values); i++ {
		out[i-1] = s.Values[i] - s.Values[i-1]
	}
	return out
}

// RegimeWalk is a price series with regime-switching volatility.
type RegimeWalk struct {
	Prices  []float64 `json:"prices"`
	Regimes []Regime  `json:"regimes"`
}

// Regime is one volatility regime of a RegimeWalk.
type Regime struct {
	Start      int     `json:"start"` // first index driven by this regime
	Length     int     `json:"length"`
	Volatility float64 `json:"volatility"`
	Turbulent  bool    `json:"turbulent"`
}
