package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"laptopprice/pkg/core"
	"laptopprice/pkg/dataset"
	"laptopprice/pkg/ensemble"
	"laptopprice/pkg/feature"
	"laptopprice/pkg/query"
	"laptopprice/pkg/storage"
)

// History is the read side of the prediction history store.
type History interface {
	Recent(ctx context.Context, limit int) ([]storage.Record, error)
	Count(ctx context.Context) (int, error)
	Truncate() error
}

type Server struct {
	engine  *core.Engine
	history History
	origins []string
}

// NewServer wires the handlers. history may be nil when recording is disabled.
func NewServer(engine *core.Engine, history History, origins []string) *Server {
	return &Server{engine: engine, history: history, origins: origins}
}

func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(s.corsConfig()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", s.handleMetrics)

	api := r.Group("/api")
	{
		api.POST("/predict", s.handlePredict)
		api.GET("/brands", s.handleBrands)
		api.GET("/dataset", s.handleDataset)
		api.GET("/describe", s.handleDescribe)
		api.GET("/describe/categorical", s.handleDescribeCategorical)
		api.GET("/value-counts", s.handleValueCounts)
		api.GET("/distribution", s.handleDistribution)
		api.GET("/breakdown", s.handleBreakdown)
		api.GET("/scatter", s.handleScatter)
		api.GET("/laptops", s.handleLaptops)
		api.POST("/query", s.handleQuery)
		api.GET("/predictions", s.handlePredictions)
		api.POST("/reset", s.handleReset)
		api.GET("/stats", s.handleStats)
	}
	return r
}

func (s *Server) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(s.origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = s.origins
	}
	return cfg
}

func (s *Server) Start(addr string) error {
	log.Printf("[API] Server listening on %s...", addr)
	return s.Router().Run(addr)
}

// predictRequest accepts numerics as JSON numbers or strings.
type predictRequest struct {
	Brand        string    `json:"brand"`
	ScreenSize   flexValue `json:"screen_size"`
	HardDisk     flexValue `json:"harddisk"`
	RAM          flexValue `json:"ram"`
	KNN          bool      `json:"knn"`
	RandomForest bool      `json:"random_forest"`
}

func (s *Server) handlePredict(c *gin.Context) {
	var req predictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "invalid_input", "error": "invalid request body"})
		return
	}

	p, err := s.engine.Predict(c.Request.Context(), core.Request{
		Input: feature.Input{
			Brand:      req.Brand,
			ScreenSize: string(req.ScreenSize),
			HardDisk:   string(req.HardDisk),
			RAM:        string(req.RAM),
		},
		Selection: ensemble.NewSelection(req.KNN, req.RandomForest),
	})

	var ce *feature.CoercionError
	var ie *ensemble.InvocationError
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"status":     "ok",
			"message":    priceMessage(p.Price),
			"price":      p.Price,
			"prediction": p,
		})
	case errors.Is(err, ensemble.ErrNoSelection):
		c.JSON(http.StatusOK, gin.H{"status": "no_selection", "message": ensemble.NoSelectionMessage})
	case errors.As(err, &ce):
		c.JSON(http.StatusBadRequest, gin.H{"status": "invalid_input", "field": ce.Field, "error": ce.Error()})
	case errors.As(err, &ie):
		c.JSON(http.StatusInternalServerError, gin.H{"status": "model_error", "model": ie.Model, "error": ie.Error()})
	default:
		log.Printf("[API] predict: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "error": err.Error()})
	}
}

func priceMessage(price float64) string {
	return fmt.Sprintf("expected price: %s$", strconv.FormatFloat(price, 'f', -1, 64))
}

func (s *Server) handleBrands(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"brands": s.engine.Brands()})
}

// frame picks the dataset named by ?source, cleaned by default.
func (s *Server) frame(c *gin.Context) (*dataset.Frame, bool) {
	art := s.engine.Artifacts()
	switch src := c.DefaultQuery("source", "cleaned"); src {
	case "cleaned":
		return art.Cleaned, true
	case "raw":
		if art.Raw == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "raw dataset not configured"})
			return nil, false
		}
		return art.Raw, true
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unknown source %q", src)})
		return nil, false
	}
}

func (s *Server) handleDataset(c *gin.Context) {
	fr, ok := s.frame(c)
	if !ok {
		return
	}
	offset, err1 := intQuery(c, "offset", 0)
	limit, err2 := intQuery(c, "limit", 50)
	if err := errors.Join(err1, err2); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"columns": fr.Columns(),
		"total":   fr.Len(),
		"offset":  offset,
		"rows":    fr.Rows(offset, limit),
	})
}

func (s *Server) handleDescribe(c *gin.Context) {
	fr, ok := s.frame(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"numeric": fr.Describe()})
}

func (s *Server) handleDescribeCategorical(c *gin.Context) {
	fr, ok := s.frame(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"categorical": fr.DescribeCategorical()})
}

func (s *Server) handleValueCounts(c *gin.Context) {
	fr, ok := s.frame(c)
	if !ok {
		return
	}
	column := c.Query("column")
	if column == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "column is required"})
		return
	}
	normalize, err1 := boolQuery(c, "normalize")
	lower, err2 := boolQuery(c, "lower")
	if err := errors.Join(err1, err2); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	counts, err := fr.ValueCounts(column, normalize, lower)
	if err != nil {
		datasetError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"column": column, "counts": counts})
}

func (s *Server) handleDistribution(c *gin.Context) {
	fr, ok := s.frame(c)
	if !ok {
		return
	}
	column := c.Query("column")
	chart := c.DefaultQuery("chart", dataset.ChartBar)
	counts, err := fr.Distribution(column, chart)
	if err != nil {
		datasetError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"column": column, "chart": chart, "counts": counts})
}

func (s *Server) handleBreakdown(c *gin.Context) {
	child := c.Query("child")
	groups, err := s.engine.Artifacts().Cleaned.Breakdown(feature.ColBrand, child)
	if err != nil {
		datasetError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"parent": feature.ColBrand, "child": child, "groups": groups})
}

func (s *Server) handleScatter(c *gin.Context) {
	fr, ok := s.frame(c)
	if !ok {
		return
	}
	x, y := c.Query("x"), c.Query("y")
	points, err := fr.Scatter(x, y)
	if err != nil {
		datasetError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"x": x, "y": y, "points": points})
}

func (s *Server) handleLaptops(c *gin.Context) {
	lo, err1 := floatQuery(c, "min_price", 0)
	hi, err2 := floatQuery(c, "max_price", math.MaxFloat64)
	if err := errors.Join(err1, err2); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start := time.Now()
	rows, err := s.engine.Artifacts().Cleaned.PriceRange(lo, hi)
	if err != nil {
		datasetError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":      len(rows),
		"rows":       rows,
		"latency_ns": time.Since(start).Nanoseconds(),
	})
}

func (s *Server) handleQuery(c *gin.Context) {
	var req struct {
		Query string `json:"query"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	stmt, err := query.Parse(req.Query)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rows, err := s.engine.Artifacts().Cleaned.Select(stmt)
	if err != nil {
		datasetError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(rows), "rows": rows})
}

func (s *Server) handlePredictions(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "prediction history disabled"})
		return
	}
	limit, err := intQuery(c, "limit", 50)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	recs, err := s.history.Recent(c.Request.Context(), limit)
	if err != nil {
		log.Printf("[API] history read: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": len(recs), "predictions": recs})
}

func (s *Server) handleReset(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "prediction history disabled"})
		return
	}
	if err := s.history.Truncate(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "prediction history cleared"})
}

func (s *Server) handleStats(c *gin.Context) {
	stats := s.engine.Summary()
	if s.history != nil {
		if n, err := s.history.Count(c.Request.Context()); err == nil {
			stats["history_records"] = n
		}
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) handleMetrics(c *gin.Context) {
	snap := s.engine.Stats().Snapshot()
	art := s.engine.Artifacts()

	var b []byte
	metric := func(name, kind, help string, v float64) {
		b = fmt.Appendf(b, "# HELP %s %s\n# TYPE %s %s\n%s %s\n", name, help, name, kind, name, strconv.FormatFloat(v, 'g', -1, 64))
	}
	metric("laptopprice_requests_total", "counter", "Prediction requests received.", float64(snap.Requests))
	metric("laptopprice_predictions_total", "counter", "Prices served.", float64(snap.Predictions))
	metric("laptopprice_no_selection_total", "counter", "Requests with no model selected.", float64(snap.NoSelection))
	metric("laptopprice_coercion_failures_total", "counter", "Requests rejected by input validation.", float64(snap.CoercionFailures))
	metric("laptopprice_invocation_failures_total", "counter", "Model invocation failures.", float64(snap.InvocationFailures))
	metric("laptopprice_cache_hits_total", "counter", "Predictions served from cache.", float64(snap.CacheHits))
	metric("laptopprice_cache_hit_ratio", "gauge", "Cache hits over predictions.", snap.CacheHitRatio)
	metric("laptopprice_dataset_rows", "gauge", "Rows in the cleaned dataset.", float64(art.Cleaned.Len()))

	c.Data(http.StatusOK, "text/plain; version=0.0.4", b)
}

func datasetError(c *gin.Context, err error) {
	status := http.StatusBadRequest
	if errors.Is(err, dataset.ErrUnknownColumn) {
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func intQuery(c *gin.Context, key string, def int) (int, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return n, nil
}

func floatQuery(c *gin.Context, key string, def float64) (float64, error) {
	v := c.Query(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) {
		return 0, fmt.Errorf("invalid %s %q", key, v)
	}
	return f, nil
}

func boolQuery(c *gin.Context, key string) (bool, error) {
	v := c.Query(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s %q", key, v)
	}
	return b, nil
}
