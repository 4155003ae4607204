package model

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Tree is a fitted regression tree in flat array layout. Node i is a leaf when
// Left[i] == -1; otherwise samples with x[Feature[i]] <= Threshold[i] go to Left[i].
type Tree struct {
	Left      []int     `json:"left"`
	Right     []int     `json:"right"`
	Feature   []int     `json:"feature"`
	Threshold []float64 `json:"threshold"`
	Value     []float64 `json:"value"`
}

func (t *Tree) validate(nFeatures int) error {
	n := len(t.Value)
	if n == 0 {
		return fmt.Errorf("empty tree")
	}
	if len(t.Left) != n || len(t.Right) != n || len(t.Feature) != n || len(t.Threshold) != n {
		return fmt.Errorf("node arrays have different lengths")
	}
	for i := 0; i < n; i++ {
		if t.Left[i] == -1 {
			continue
		}
		if t.Left[i] <= i || t.Left[i] >= n || t.Right[i] <= i || t.Right[i] >= n {
			return fmt.Errorf("node %d has out-of-order children %d/%d", i, t.Left[i], t.Right[i])
		}
		if t.Feature[i] < 0 || t.Feature[i] >= nFeatures {
			return fmt.Errorf("node %d splits on feature %d of %d", i, t.Feature[i], nFeatures)
		}
	}
	return nil
}

func (t *Tree) predict(x []float64) float64 {
	i := 0
	for t.Left[i] != -1 {
		if x[t.Feature[i]] <= t.Threshold[i] {
			i = t.Left[i]
		} else {
			i = t.Right[i]
		}
	}
	return t.Value[i]
}

// RandomForest averages the outputs of its trees.
type RandomForest struct {
	Features int    `json:"n_features"`
	Trees    []Tree `json:"trees"`
}

func (m *RandomForest) Type() string     { return TypeRandomForest }
func (m *RandomForest) NumFeatures() int { return m.Features }

// Validate checks every tree is well formed. Children must have a higher
// index than their parent so traversal always terminates.
func (m *RandomForest) Validate() error {
	if m.Features <= 0 {
		return fmt.Errorf("%w: random forest n_features must be positive", ErrInvalidArtifact)
	}
	if len(m.Trees) == 0 {
		return fmt.Errorf("%w: random forest has no trees", ErrInvalidArtifact)
	}
	for i := range m.Trees {
		if err := m.Trees[i].validate(m.Features); err != nil {
			return fmt.Errorf("%w: tree %d: %v", ErrInvalidArtifact, i, err)
		}
	}
	return nil
}

func (m *RandomForest) Predict(x []float64) (float64, error) {
	if err := checkShape(x, m.Features); err != nil {
		return 0, err
	}
	outputs := make([]float64, len(m.Trees))
	for i := range m.Trees {
		outputs[i] = m.Trees[i].predict(x)
	}
	return stat.Mean(outputs, nil), nil
}
