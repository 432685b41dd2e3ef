package domain

// ProfileDomain is the spatial grid on which a heat profile is evaluated.
type ProfileDomain struct {
	XMin      float64 `json:"x_min"`
	XMax      float64 `json:"x_max"`
	Intervals int     `json:"intervals"` // number of grid intervals; Intervals+1 points
	S0        float64 `json:"s0"`        // centre of the initial condition
	Offset    float64 `json:"offset"`    // half distance between two-point masses
}

// DefaultProfileDomain returns [50,150] with 200 intervals centred at 100.
func DefaultProfileDomain() ProfileDomain {
	return ProfileDomain{
		XMin:      50,
		XMax:      150,
		Intervals: 200,
		S0:        100,
		Offset:    20,
	}
}

// ProfilePoint is one (x, density) sample.
type ProfilePoint struct {
	X       float64 `json:"x"`
	Density float64 `json:"density"`
}

// HeatProfile is a diffusion profile evaluated at time T.
type HeatProfile struct {
	T         float64          `json:"t"`
	Condition InitialCondition `json:"condition"`
	Points    []ProfilePoint   `json:"points"`
}
