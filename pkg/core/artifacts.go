package core

import (
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"laptopprice/pkg/config"
	"laptopprice/pkg/dataset"
	"laptopprice/pkg/ensemble"
	"laptopprice/pkg/model"
	"laptopprice/pkg/preprocess"
)

// Artifacts is the read-only context every prediction runs against. It is
// built once at startup and shared by concurrent requests.
type Artifacts struct {
	Pipeline *preprocess.Pipeline
	Models   ensemble.Models
	Cleaned  *dataset.Frame
	Raw      *dataset.Frame // nil when no raw dataset is configured
	Brands   []string
}

// NewArtifacts checks the pieces agree with each other: the cleaned dataset
// columns match the pipeline inputs and every loaded model accepts the
// pipeline's output width.
func NewArtifacts(p *preprocess.Pipeline, models ensemble.Models, cleaned, raw *dataset.Frame) (*Artifacts, error) {
	if p == nil {
		return nil, fmt.Errorf("core: no preprocessing pipeline")
	}
	if cleaned == nil {
		return nil, fmt.Errorf("core: no cleaned dataset")
	}
	if err := p.CheckSchema(cleaned.Columns()); err != nil {
		return nil, err
	}
	width := p.Width()
	for _, r := range []model.Regressor{models.KNN, models.RandomForest} {
		if r == nil {
			continue
		}
		if n := r.NumFeatures(); n > 0 && n != width {
			return nil, fmt.Errorf("%w: %s model expects %d features, pipeline produces %d", model.ErrShape, r.Type(), n, width)
		}
	}
	brands, err := cleaned.Brands()
	if err != nil {
		return nil, err
	}
	return &Artifacts{
		Pipeline: p,
		Models:   models,
		Cleaned:  cleaned,
		Raw:      raw,
		Brands:   brands,
	}, nil
}

// LoadArtifacts reads every artifact named in cfg concurrently. A model with
// an empty path stays unloaded; selecting it later fails the invocation.
func LoadArtifacts(cfg *config.Config) (*Artifacts, error) {
	a := cfg.Artifacts
	var (
		p       *preprocess.Pipeline
		cleaned *dataset.Frame
		raw     *dataset.Frame
		models  ensemble.Models
		g       errgroup.Group
	)

	g.Go(func() (err error) {
		p, err = preprocess.Load(a.Pipeline)
		return err
	})
	g.Go(func() (err error) {
		cleaned, err = dataset.Load(a.Cleaned)
		return err
	})
	if a.Dataset != "" {
		g.Go(func() (err error) {
			raw, err = dataset.Load(a.Dataset)
			return err
		})
	}
	if a.KNN != "" {
		g.Go(func() (err error) {
			models.KNN, err = model.Load(a.KNN)
			return err
		})
	}
	if a.RandomForest != "" {
		g.Go(func() (err error) {
			models.RandomForest, err = model.Load(a.RandomForest)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	art, err := NewArtifacts(p, models, cleaned, raw)
	if err != nil {
		return nil, err
	}
	log.Printf("[Engine] Artifacts loaded: %d rows, %d brands, vector width %d", cleaned.Len(), len(art.Brands), p.Width())
	return art, nil
}
