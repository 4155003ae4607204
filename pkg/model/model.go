package model

import (
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pkgerrors "github.com/pkg/errors"
)

const (
	TypeKNN          = "knn"
	TypeRandomForest = "random_forest"
)

var (
	ErrShape           = errors.New("model: feature vector shape mismatch")
	ErrInvalidArtifact = errors.New("model: invalid artifact")
)

// Regressor is a pre-trained, stateless price model.
type Regressor interface {
	Predict(x []float64) (float64, error)
	Type() string
	NumFeatures() int
}

// artifact is the on-disk envelope shared by the JSON and gob encodings.
type artifact struct {
	Type   string        `json:"type"`
	KNN    *KNN          `json:"knn,omitempty"`
	Forest *RandomForest `json:"random_forest,omitempty"`
}

// Load reads a model artifact. Files ending in .gob are gob-encoded, anything
// else is JSON.
func Load(path string) (Regressor, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "open model artifact %s", path)
	}
	defer f.Close()

	var a artifact
	if isGob(path) {
		err = gob.NewDecoder(f).Decode(&a)
	} else {
		err = json.NewDecoder(f).Decode(&a)
	}
	if err != nil {
		return nil, pkgerrors.Wrapf(fmt.Errorf("%w: %v", ErrInvalidArtifact, err), "decode model artifact %s", path)
	}

	r, err := a.regressor()
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "load model artifact %s", path)
	}
	return r, nil
}

// Save writes r using the encoding implied by the file extension.
func Save(path string, r Regressor) error {
	var a artifact
	switch m := r.(type) {
	case *KNN:
		a = artifact{Type: TypeKNN, KNN: m}
	case *RandomForest:
		a = artifact{Type: TypeRandomForest, Forest: m}
	default:
		return fmt.Errorf("%w: cannot save %T", ErrInvalidArtifact, r)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if isGob(path) {
		return gob.NewEncoder(f).Encode(&a)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(&a)
}

func (a *artifact) regressor() (Regressor, error) {
	switch a.Type {
	case TypeKNN:
		if a.KNN == nil {
			return nil, fmt.Errorf("%w: knn artifact has no knn section", ErrInvalidArtifact)
		}
		if err := a.KNN.Validate(); err != nil {
			return nil, err
		}
		return a.KNN, nil
	case TypeRandomForest:
		if a.Forest == nil {
			return nil, fmt.Errorf("%w: random_forest artifact has no random_forest section", ErrInvalidArtifact)
		}
		if err := a.Forest.Validate(); err != nil {
			return nil, err
		}
		return a.Forest, nil
	default:
		return nil, fmt.Errorf("%w: unknown model type %q", ErrInvalidArtifact, a.Type)
	}
}

func isGob(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".gob")
}

func checkShape(x []float64, n int) error {
	if len(x) != n {
		return fmt.Errorf("%w: got %d features, model expects %d", ErrShape, len(x), n)
	}
	return nil
}
