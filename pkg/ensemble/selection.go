package ensemble

import (
	"fmt"
	"strings"
)

// Selection names which models take part in a prediction.
type Selection uint8

const (
	SelectNone Selection = iota
	SelectKNN
	SelectRandomForest
	SelectBoth
)

// Member identifies one model slot of the ensemble.
type Member string

const (
	MemberKNN          Member = "knn"
	MemberRandomForest Member = "random_forest"
)

func NewSelection(useKNN, useRandomForest bool) Selection {
	switch {
	case useKNN && useRandomForest:
		return SelectBoth
	case useKNN:
		return SelectKNN
	case useRandomForest:
		return SelectRandomForest
	default:
		return SelectNone
	}
}

// Validate rejects values outside the four selections.
func (s Selection) Validate() error {
	if s > SelectBoth {
		return fmt.Errorf("%w %d", ErrInvalidSelection, uint8(s))
	}
	return nil
}

// Members lists the selected models in invocation order. It is empty for
// SelectNone and for invalid values.
func (s Selection) Members() []Member {
	switch s {
	case SelectNone:
		return nil
	case SelectKNN:
		return []Member{MemberKNN}
	case SelectRandomForest:
		return []Member{MemberRandomForest}
	case SelectBoth:
		return []Member{MemberKNN, MemberRandomForest}
	default:
		return nil
	}
}

func (s Selection) String() string {
	if s.Validate() != nil {
		return fmt.Sprintf("invalid(%d)", uint8(s))
	}
	ms := s.Members()
	if len(ms) == 0 {
		return "none"
	}
	parts := make([]string, len(ms))
	for i, m := range ms {
		parts[i] = string(m)
	}
	return strings.Join(parts, "+")
}

// ParseSelection is the inverse of String.
func ParseSelection(s string) (Selection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return SelectNone, nil
	case "knn":
		return SelectKNN, nil
	case "random_forest", "rf":
		return SelectRandomForest, nil
	case "knn+random_forest", "both", "all":
		return SelectBoth, nil
	default:
		return SelectNone, fmt.Errorf("unknown model selection %q", s)
	}
}
