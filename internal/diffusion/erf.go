package diffusion

import "math"

// Abramowitz & Stegun 7.1.26 coefficients.
const (
	erfP  = 0.3275911
	erfA1 = 0.254829592
	erfA2 = -0.284496736
	erfA3 = 1.421413741
	erfA4 = -1.453152027
	erfA5 = 1.061405429
)

// ErfMaxError is the absolute error bound of Erf.
const ErfMaxError = 1.5e-7

// Erf approximates the error function with Abramowitz & Stegun 7.1.26.
// It is exactly odd and Erf(0) == 0.
func Erf(x float64) float64 {
	if x == 0 {
		return 0
	}
	sign := 1.0
	if x < 0 {
		sign = -1
	}
	x = math.Abs(x)
	t := 1 / (1 + erfP*x)
	y := 1 - ((((erfA5*t+erfA4)*t+erfA3)*t+erfA2)*t+erfA1)*t*math.Exp(-x*x)
	return sign * y
}

// GaussianPDF returns the normal density with the given mean and standard deviation.
// For std <= 0 it degenerates to 1 at the mean and 0 elsewhere.
func GaussianPDF(x, mean, std float64) float64 {
	if std <= 0 {
		if x == mean {
			return 1
		}
		return 0
	}
	z := (x - mean) / std
	return math.Exp(-0.5*z*z) / (std * math.Sqrt(2*math.Pi))
}
