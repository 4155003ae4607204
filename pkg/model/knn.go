package model

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// KNN is a fitted k-nearest-neighbours regressor. X holds the transformed
// training vectors and Y their prices.
type KNN struct {
	K        int         `json:"k"`
	Weights  string      `json:"weights"` // "uniform" or "distance"
	P        float64     `json:"p"`       // Minkowski power, 2 when unset
	Features int         `json:"n_features"`
	X        [][]float64 `json:"x"`
	Y        []float64   `json:"y"`
}

func (m *KNN) Type() string     { return TypeKNN }
func (m *KNN) NumFeatures() int { return m.Features }

func (m *KNN) Validate() error {
	if m.K <= 0 {
		return fmt.Errorf("%w: knn k must be positive, got %d", ErrInvalidArtifact, m.K)
	}
	if len(m.X) == 0 || len(m.X) != len(m.Y) {
		return fmt.Errorf("%w: knn has %d samples and %d targets", ErrInvalidArtifact, len(m.X), len(m.Y))
	}
	if m.Weights != "" && m.Weights != "uniform" && m.Weights != "distance" {
		return fmt.Errorf("%w: knn weights %q", ErrInvalidArtifact, m.Weights)
	}
	if m.P != 0 && m.P < 1 {
		return fmt.Errorf("%w: knn p must be >= 1", ErrInvalidArtifact)
	}
	if m.Features == 0 {
		m.Features = len(m.X[0])
	}
	for i, row := range m.X {
		if len(row) != m.Features {
			return fmt.Errorf("%w: knn sample %d has %d features, want %d", ErrInvalidArtifact, i, len(row), m.Features)
		}
	}
	return nil
}

type neighbour struct {
	dist float64
	idx  int
}

func (m *KNN) Predict(x []float64) (float64, error) {
	if err := checkShape(x, m.Features); err != nil {
		return 0, err
	}
	p := m.P
	if p == 0 {
		p = 2
	}

	ns := make([]neighbour, len(m.X))
	for i, row := range m.X {
		ns[i] = neighbour{dist: floats.Distance(x, row, p), idx: i}
	}
	sort.SliceStable(ns, func(i, j int) bool { return ns[i].dist < ns[j].dist })

	k := m.K
	if k > len(ns) {
		k = len(ns)
	}
	ns = ns[:k]

	values := make([]float64, k)
	for i, n := range ns {
		values[i] = m.Y[n.idx]
	}
	if m.Weights != "distance" {
		return stat.Mean(values, nil), nil
	}

	// Exact matches take all the weight.
	var exact []float64
	for i, n := range ns {
		if n.dist == 0 {
			exact = append(exact, values[i])
		}
	}
	if len(exact) > 0 {
		return stat.Mean(exact, nil), nil
	}

	weights := make([]float64, k)
	for i, n := range ns {
		weights[i] = 1 / n.dist
	}
	mean := stat.Mean(values, weights)
	if math.IsNaN(mean) {
		return 0, fmt.Errorf("knn: prediction is NaN")
	}
	return mean, nil
}
