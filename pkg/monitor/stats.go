package monitor

import (
	"sync/atomic"
)

// PredictionStats counts prediction outcomes. Safe for concurrent use.
type PredictionStats struct {
	RequestCount      uint64
	PredictionCount   uint64
	NoSelectionCount  uint64
	CoercionFailures  uint64
	InvocationFailure uint64
	CacheHitCount     uint64
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	Requests           uint64  `json:"requests"`
	Predictions        uint64  `json:"predictions"`
	NoSelection        uint64  `json:"no_selection"`
	CoercionFailures   uint64  `json:"coercion_failures"`
	InvocationFailures uint64  `json:"invocation_failures"`
	CacheHits          uint64  `json:"cache_hits"`
	CacheHitRatio      float64 `json:"cache_hit_ratio"`
}

func NewPredictionStats() *PredictionStats {
	return &PredictionStats{}
}

func (ps *PredictionStats) RecordRequest() {
	atomic.AddUint64(&ps.RequestCount, 1)
}

func (ps *PredictionStats) RecordPrediction() {
	atomic.AddUint64(&ps.PredictionCount, 1)
}

func (ps *PredictionStats) RecordNoSelection() {
	atomic.AddUint64(&ps.NoSelectionCount, 1)
}

func (ps *PredictionStats) RecordCoercionFailure() {
	atomic.AddUint64(&ps.CoercionFailures, 1)
}

func (ps *PredictionStats) RecordInvocationFailure() {
	atomic.AddUint64(&ps.InvocationFailure, 1)
}

func (ps *PredictionStats) RecordCacheHit() {
	atomic.AddUint64(&ps.CacheHitCount, 1)
}

// GetCacheHitRatio is hits over successful predictions.
func (ps *PredictionStats) GetCacheHitRatio() float64 {
	hits := atomic.LoadUint64(&ps.CacheHitCount)
	preds := atomic.LoadUint64(&ps.PredictionCount)
	if preds == 0 {
		return 0.0
	}
	return float64(hits) / float64(preds)
}

func (ps *PredictionStats) Snapshot() Snapshot {
	return Snapshot{
		Requests:           atomic.LoadUint64(&ps.RequestCount),
		Predictions:        atomic.LoadUint64(&ps.PredictionCount),
		NoSelection:        atomic.LoadUint64(&ps.NoSelectionCount),
		CoercionFailures:   atomic.LoadUint64(&ps.CoercionFailures),
		InvocationFailures: atomic.LoadUint64(&ps.InvocationFailure),
		CacheHits:          atomic.LoadUint64(&ps.CacheHitCount),
		CacheHitRatio:      ps.GetCacheHitRatio(),
	}
}
