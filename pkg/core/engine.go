package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"

	"laptopprice/pkg/ensemble"
	"laptopprice/pkg/feature"
	"laptopprice/pkg/monitor"
	"laptopprice/pkg/storage"
)

// Recorder persists served predictions.
type Recorder interface {
	Save(ctx context.Context, rec storage.Record) error
}

type Options struct {
	CacheSize int      // 0 disables caching
	Recorder  Recorder // nil disables history
	Stats     *monitor.PredictionStats
	// HistoryBuffer bounds pending history writes; full buffers drop records.
	HistoryBuffer int
}

// Request is one form submission.
type Request struct {
	Input     feature.Input
	Selection ensemble.Selection
}

// Prediction is a served estimate.
type Prediction struct {
	Record    feature.Record    `json:"record"`
	Selection string            `json:"selection"`
	Price     float64           `json:"price"`
	Outputs   []ensemble.Output `json:"outputs"`
	Cached    bool              `json:"cached"`
}

// Engine runs the coerce, transform, invoke pipeline.
type Engine struct {
	art      *Artifacts
	coercer  *feature.Coercer
	invoker  *ensemble.Invoker
	cache    *lru.Cache
	stats    *monitor.PredictionStats
	recorder Recorder

	recordCh chan storage.Record
	closeCh  chan struct{}
	closed   sync.Once
	wg       sync.WaitGroup
}

func NewEngine(art *Artifacts, opts Options) (*Engine, error) {
	if art == nil {
		return nil, errors.New("core: nil artifacts")
	}
	e := &Engine{
		art:      art,
		coercer:  feature.NewCoercer(art.Brands),
		invoker:  ensemble.NewInvoker(art.Models),
		stats:    opts.Stats,
		recorder: opts.Recorder,
		closeCh:  make(chan struct{}),
	}
	if e.stats == nil {
		e.stats = monitor.NewPredictionStats()
	}
	if opts.CacheSize > 0 {
		c, err := lru.New(opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("core: prediction cache: %w", err)
		}
		e.cache = c
	}
	if e.recorder != nil {
		size := opts.HistoryBuffer
		if size <= 0 {
			size = 256
		}
		e.recordCh = make(chan storage.Record, size)
		e.wg.Add(1)
		go e.backgroundRecord()
	}
	return e, nil
}

func (e *Engine) Artifacts() *Artifacts { return e.art }

func (e *Engine) Stats() *monitor.PredictionStats { return e.stats }

func (e *Engine) Brands() []string {
	out := make([]string, len(e.art.Brands))
	copy(out, e.art.Brands)
	return out
}

// Predict estimates a price for req. An empty selection returns
// ensemble.ErrNoSelection before the input is looked at.
func (e *Engine) Predict(ctx context.Context, req Request) (*Prediction, error) {
	e.stats.RecordRequest()
	if req.Selection == ensemble.SelectNone {
		e.stats.RecordNoSelection()
		return nil, ensemble.ErrNoSelection
	}
	if err := req.Selection.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	row, err := e.coercer.Coerce(req.Input, e.art.Pipeline.InputColumns)
	if err != nil {
		if errors.Is(err, feature.ErrCoercion) {
			e.stats.RecordCoercionFailure()
		}
		return nil, err
	}
	rec := row.Record()
	key := rec.Key() + "|" + req.Selection.String()

	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			res := v.(ensemble.Result)
			e.stats.RecordCacheHit()
			e.stats.RecordPrediction()
			e.record(rec, req.Selection, res.Price)
			return newPrediction(rec, req.Selection, res, true), nil
		}
	}

	x, err := e.art.Pipeline.Transform(row)
	if err != nil {
		return nil, fmt.Errorf("core: preprocess: %w", err)
	}
	res, err := e.invoker.Invoke(x, req.Selection)
	if err != nil {
		var ie *ensemble.InvocationError
		if errors.As(err, &ie) {
			e.stats.RecordInvocationFailure()
			log.Printf("[Engine] %v", err)
		}
		return nil, err
	}

	if e.cache != nil {
		e.cache.Add(key, res)
	}
	e.stats.RecordPrediction()
	e.record(rec, req.Selection, res.Price)
	return newPrediction(rec, req.Selection, res, false), nil
}

// PredictPrice is the typed entry point: numeric features and two model flags.
func (e *Engine) PredictPrice(ctx context.Context, brand string, screenSize, hardDisk, ram float64, useKNN, useRandomForest bool) (float64, error) {
	rec := feature.Record{Brand: brand, ScreenSize: screenSize, HardDisk: hardDisk, RAM: ram}
	p, err := e.Predict(ctx, Request{
		Input:     rec.Input(),
		Selection: ensemble.NewSelection(useKNN, useRandomForest),
	})
	if err != nil {
		return 0, err
	}
	return p.Price, nil
}

func newPrediction(rec feature.Record, sel ensemble.Selection, res ensemble.Result, cached bool) *Prediction {
	outputs := make([]ensemble.Output, len(res.Outputs))
	copy(outputs, res.Outputs)
	return &Prediction{
		Record:    rec,
		Selection: sel.String(),
		Price:     res.Price,
		Outputs:   outputs,
		Cached:    cached,
	}
}

// record queues a history entry without blocking the request. Nothing is
// queued once the engine is closed.
func (e *Engine) record(rec feature.Record, sel ensemble.Selection, price float64) {
	if e.recordCh == nil {
		return
	}
	select {
	case <-e.closeCh:
		log.Printf("[Engine] Engine closed, not recording %s prediction for %s", sel, rec.Brand)
		return
	default:
	}
	r := storage.NewRecord(rec.Brand, rec.ScreenSize, rec.HardDisk, rec.RAM, sel.String(), price)
	select {
	case e.recordCh <- r:
	default:
		log.Printf("[Engine] History buffer full, dropping record %s", r.ID)
	}
}

func (e *Engine) backgroundRecord() {
	defer e.wg.Done()
	save := func(r storage.Record) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := e.recorder.Save(ctx, r); err != nil {
			log.Printf("[Engine] History write error: %v", err)
		}
	}
	for {
		select {
		case r := <-e.recordCh:
			save(r)
		case <-e.closeCh:
			for {
				select {
				case r := <-e.recordCh:
					save(r)
				default:
					return
				}
			}
		}
	}
}

// Close flushes pending history writes. Later predictions are served but not recorded.
func (e *Engine) Close() {
	e.closed.Do(func() {
		close(e.closeCh)
		e.wg.Wait()
	})
}

// Summary reports engine state for the stats endpoint.
func (e *Engine) Summary() map[string]interface{} {
	cached := 0
	if e.cache != nil {
		cached = e.cache.Len()
	}
	pending := 0
	if e.recordCh != nil {
		pending = len(e.recordCh)
	}
	return map[string]interface{}{
		"predictions":     e.stats.Snapshot(),
		"cache_entries":   cached,
		"pending_history": pending,
		"models_loaded":   loadedModels(e.art.Models),
		"vector_width":    e.art.Pipeline.Width(),
		"dataset_rows":    e.art.Cleaned.Len(),
	}
}

func loadedModels(m ensemble.Models) []string {
	var out []string
	if m.KNN != nil {
		out = append(out, string(ensemble.MemberKNN))
	}
	if m.RandomForest != nil {
		out = append(out, string(ensemble.MemberRandomForest))
	}
	return out
}
