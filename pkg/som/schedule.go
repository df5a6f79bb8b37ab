package som

import "math"

// Schedule holds the decay parameters derived when the engine is built.
type Schedule struct {
	// Sigma is the initial neighborhood radius, half the smaller lattice side.
	Sigma float64 `json:"sigma"`
	// Lambda is the time constant of the radius decay: iterations / ln(sigma).
	Lambda          float64 `json:"lambda"`
	LearnRate0      float64 `json:"learn_rate_0"`
	TotalIterations int     `json:"total_iterations"`
}

// NewSchedule derives sigma and lambda for a rows x cols lattice.
// Callers must ensure min(rows, cols) > 2 so that lambda is positive.
func NewSchedule(rows, cols int, learnRate float64, totalIterations int) Schedule {
	sigma := float64(min(rows, cols)) / 2
	return Schedule{
		Sigma:           sigma,
		Lambda:          float64(totalIterations) / math.Log(sigma),
		LearnRate0:      learnRate,
		TotalIterations: totalIterations,
	}
}

// Radius is the neighborhood radius at step t: sigma * exp(-t / lambda).
func (s Schedule) Radius(t int) float64 {
	return s.Sigma * math.Exp(-float64(t)/s.Lambda)
}

// LearningRate is the learning rate at step t: rate0 * exp(-t / iterations).
func (s Schedule) LearningRate(t int) float64 {
	return s.LearnRate0 * math.Exp(-float64(t)/float64(s.TotalIterations))
}

// Impact is the Gaussian falloff exp(-dist^2 / (2 * radius^2)).
func Impact(radius, dist float64) float64 {
	return math.Exp(-(dist * dist) / (2 * radius * radius))
}
