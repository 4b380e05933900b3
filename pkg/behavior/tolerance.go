package behavior

import "math"

// Tolerance maps an expected wait in minutes to the probability that an
// agent accepts it.
type Tolerance interface {
	Accept(waitMinutes float64) float64
}

// HardThreshold accepts any wait up to Max minutes and nothing beyond.
type HardThreshold struct {
	Max float64
}

func (h HardThreshold) Accept(waitMinutes float64) float64 {
	if waitMinutes <= h.Max {
		return 1
	}
	return 0
}

// Logistic falls smoothly from 1 to 0 around Midpoint minutes. Spread
// controls how gradual the fall is; zero behaves like a hard threshold.
type Logistic struct {
	Midpoint float64
	Spread   float64
}

func (l Logistic) Accept(waitMinutes float64) float64 {
	if l.Spread <= 0 {
		return HardThreshold{Max: l.Midpoint}.Accept(waitMinutes)
	}
	return 1 / (1 + math.Exp((waitMinutes-l.Midpoint)/l.Spread))
}
