package msd

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Fit is the linear fit MSD = Slope*t + Intercept and the self diffusion
// coefficient deduced from the Einstein relation in three dimensions.
type Fit struct {
	Slope     float64
	Intercept float64
	R2        float64
	D         float64
	Points    int
}

// Diffusion fits the part of the series located between the fractions from and
// to of its length (e.g. 0.1 and 0.9 drop the first and last tenth, where the
// motion is ballistic and the statistics poor). D = Slope/6.
func Diffusion(s Series, from, to float64) (Fit, error) {
	if from < 0 || to > 1 || from >= to {
		return Fit{}, fmt.Errorf("invalid fit window [%g, %g)", from, to)
	}

	i := int(from * float64(len(s)))
	j := int(to * float64(len(s)))
	if j-i < 2 {
		return Fit{}, fmt.Errorf("at least 2 points are required to fit, got %d", j-i)
	}

	x, y := s[i:j].Times(), s[i:j].Values()
	alpha, beta := stat.LinearRegression(x, y, nil, false)

	return Fit{
		Slope:     beta,
		Intercept: alpha,
		R2:        stat.RSquared(x, y, nil, alpha, beta),
		D:         beta / 6,
		Points:    j - i,
	}, nil
}
