package preprocess

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	pkgerrors "github.com/pkg/errors"

	"laptopprice/pkg/feature"
)

// Step kinds understood by the pipeline.
const (
	KindOneHot      = "onehot"
	KindOrdinal     = "ordinal"
	KindStandard    = "standard"
	KindMinMax      = "minmax"
	KindPassthrough = "passthrough"
)

var (
	ErrUnknownCategory = errors.New("preprocess: unknown category")
	ErrMissingColumn   = errors.New("preprocess: missing column")
	ErrInvalidArtifact = errors.New("preprocess: invalid artifact")
)

// Step is one fitted column transformer. Only the fields of its Kind are used.
type Step struct {
	Column string `json:"column"`
	Kind   string `json:"kind"`

	Categories    []string `json:"categories,omitempty"`
	HandleUnknown string   `json:"handle_unknown,omitempty"` // "ignore" or "error"
	UnknownValue  *float64 `json:"unknown_value,omitempty"`

	Mean  float64 `json:"mean,omitempty"`
	Scale float64 `json:"scale,omitempty"`

	Min          float64    `json:"min,omitempty"`
	Max          float64    `json:"max,omitempty"`
	FeatureRange [2]float64 `json:"feature_range,omitempty"`
}

// Pipeline is a fitted, read-only preprocessing transform.
type Pipeline struct {
	InputColumns []string `json:"input_columns"`
	Steps        []Step   `json:"steps"`

	index map[string]int
}

func Load(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "read preprocessing artifact %s", path)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "load preprocessing artifact %s", path)
	}
	return p, nil
}

func Parse(data []byte) (*Pipeline, error) {
	var p Pipeline
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the artifact is internally consistent and builds category lookups.
func (p *Pipeline) Validate() error {
	if len(p.InputColumns) == 0 {
		return fmt.Errorf("%w: no input columns", ErrInvalidArtifact)
	}
	if len(p.Steps) == 0 {
		return fmt.Errorf("%w: no steps", ErrInvalidArtifact)
	}
	inputs := make(map[string]bool, len(p.InputColumns))
	for _, c := range p.InputColumns {
		inputs[c] = true
	}
	for i := range p.Steps {
		s := &p.Steps[i]
		if !inputs[s.Column] {
			return fmt.Errorf("%w: step %d uses column %q not in input columns", ErrInvalidArtifact, i, s.Column)
		}
		switch s.Kind {
		case KindOneHot, KindOrdinal:
			if len(s.Categories) == 0 {
				return fmt.Errorf("%w: %s step on %q has no categories", ErrInvalidArtifact, s.Kind, s.Column)
			}
			if s.HandleUnknown != "" && s.HandleUnknown != "ignore" && s.HandleUnknown != "error" {
				return fmt.Errorf("%w: handle_unknown %q", ErrInvalidArtifact, s.HandleUnknown)
			}
		case KindStandard, KindMinMax, KindPassthrough:
			if s.Column == feature.ColBrand {
				return fmt.Errorf("%w: numeric step %s on categorical column %q", ErrInvalidArtifact, s.Kind, s.Column)
			}
		default:
			return fmt.Errorf("%w: unknown step kind %q", ErrInvalidArtifact, s.Kind)
		}
	}
	p.buildIndex()
	return nil
}

func (p *Pipeline) buildIndex() {
	p.index = make(map[string]int)
	for si, s := range p.Steps {
		for ci, cat := range s.Categories {
			p.index[categoryKey(si, cat)] = ci
		}
	}
}

func categoryKey(step int, cat string) string {
	return fmt.Sprintf("%d\x00%s", step, cat)
}

// CheckSchema verifies that the dataset columns without the target equal the
// pipeline's input columns, in order.
func (p *Pipeline) CheckSchema(datasetColumns []string) error {
	var cols []string
	for _, c := range datasetColumns {
		if c != feature.ColPrice {
			cols = append(cols, c)
		}
	}
	if len(cols) != len(p.InputColumns) {
		return fmt.Errorf("%w: dataset columns %v, pipeline expects %v", feature.ErrSchema, cols, p.InputColumns)
	}
	for i := range cols {
		if cols[i] != p.InputColumns[i] {
			return fmt.Errorf("%w: column %d is %q in dataset but %q in pipeline", feature.ErrSchema, i, cols[i], p.InputColumns[i])
		}
	}
	return nil
}

// Width is the length of the vector Transform produces.
func (p *Pipeline) Width() int {
	n := 0
	for _, s := range p.Steps {
		if s.Kind == KindOneHot {
			n += len(s.Categories)
		} else {
			n++
		}
	}
	return n
}

// Transform maps a coerced row to the model feature vector.
func (p *Pipeline) Transform(row feature.Row) ([]float64, error) {
	if p.index == nil {
		return nil, fmt.Errorf("%w: pipeline used before Validate", ErrInvalidArtifact)
	}
	out := make([]float64, 0, p.Width())
	for si, s := range p.Steps {
		v, ok := row.Get(s.Column)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrMissingColumn, s.Column)
		}
		switch s.Kind {
		case KindOneHot:
			enc := make([]float64, len(s.Categories))
			idx, known := p.index[categoryKey(si, v.String())]
			if known {
				enc[idx] = 1
			} else if s.HandleUnknown != "ignore" {
				return nil, fmt.Errorf("%w: %q for column %q", ErrUnknownCategory, v.String(), s.Column)
			}
			out = append(out, enc...)
		case KindOrdinal:
			idx, known := p.index[categoryKey(si, v.String())]
			switch {
			case known:
				out = append(out, float64(idx))
			case s.UnknownValue != nil:
				out = append(out, *s.UnknownValue)
			default:
				return nil, fmt.Errorf("%w: %q for column %q", ErrUnknownCategory, v.String(), s.Column)
			}
		case KindStandard:
			scale := s.Scale
			if scale == 0 {
				scale = 1
			}
			out = append(out, (v.Number-s.Mean)/scale)
		case KindMinMax:
			lo, hi := s.FeatureRange[0], s.FeatureRange[1]
			if lo == 0 && hi == 0 {
				hi = 1
			}
			span := s.Max - s.Min
			if span == 0 {
				span = 1
			}
			out = append(out, (v.Number-s.Min)/span*(hi-lo)+lo)
		case KindPassthrough:
			out = append(out, v.Number)
		}
	}
	return out, nil
}

// Save writes the pipeline as a JSON artifact.
func (p *Pipeline) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
