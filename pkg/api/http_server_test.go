package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"laptopprice/pkg/core"
	"laptopprice/pkg/dataset"
	"laptopprice/pkg/ensemble"
	"laptopprice/pkg/preprocess"
	"laptopprice/pkg/storage"
)

const pipelineJSON = `{
  "input_columns": ["brand", "screen_size", "harddisk", "ram"],
  "steps": [
    {"column": "brand", "kind": "onehot", "categories": ["Dell", "HP", "Lenovo"], "handle_unknown": "ignore"},
    {"column": "screen_size", "kind": "standard", "mean": 14, "scale": 2},
    {"column": "harddisk", "kind": "minmax", "min": 0, "max": 2000},
    {"column": "ram", "kind": "passthrough"}
  ]
}`

const cleanedCSV = `brand,screen_size,harddisk,ram,price
Dell,14,1000,8,700
HP,15.6,512,16,900
Dell,13.3,256,8,650
Lenovo,14,1000,4,400
`

type stubModel struct {
	price float64
	err   error
}

func (s stubModel) Predict(x []float64) (float64, error) { return s.price, s.err }
func (s stubModel) Type() string                         { return "stub" }
func (s stubModel) NumFeatures() int                     { return 0 }

type testServer struct {
	router  *gin.Engine
	engine  *core.Engine
	history *storage.HistoryStore
}

func newTestServer(t *testing.T, models ensemble.Models) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	p, err := preprocess.Parse([]byte(pipelineJSON))
	if err != nil {
		t.Fatal(err)
	}
	fr, err := dataset.Read(strings.NewReader(cleanedCSV))
	if err != nil {
		t.Fatal(err)
	}
	art, err := core.NewArtifacts(p, models, fr, nil)
	if err != nil {
		t.Fatal(err)
	}
	hist, err := storage.Open("sqlite", filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { hist.Close() })

	engine, err := core.NewEngine(art, core.Options{CacheSize: 16, Recorder: hist})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(engine.Close)

	return &testServer{
		router:  NewServer(engine, hist, nil).Router(),
		engine:  engine,
		history: hist,
	}
}

func (ts *testServer) do(t *testing.T, method, target string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		rdr = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, rdr)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	var resp map[string]interface{}
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode %s %s: %v body=%s", method, target, err, w.Body.String())
		}
	}
	return w, resp
}

func bothModels() ensemble.Models {
	return ensemble.Models{KNN: stubModel{price: 700}, RandomForest: stubModel{price: 750}}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, bothModels())
	w, resp := ts.do(t, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK || resp["status"] != "ok" {
		t.Fatalf("health: %d %v", w.Code, resp)
	}
}

func TestPredictBothModels(t *testing.T) {
	ts := newTestServer(t, bothModels())
	w, resp := ts.do(t, http.MethodPost, "/api/predict", map[string]interface{}{
		"brand": "Dell", "screen_size": 14, "harddisk": "1000", "ram": 8,
		"knn": true, "random_forest": true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", w.Code, w.Body.String())
	}
	if resp["status"] != "ok" || resp["price"] != 725.0 {
		t.Fatalf("response: %v", resp)
	}
	if resp["message"] != "expected price: 725$" {
		t.Fatalf("message: %v", resp["message"])
	}
}

func TestPredictNoSelection(t *testing.T) {
	ts := newTestServer(t, bothModels())
	w, resp := ts.do(t, http.MethodPost, "/api/predict", map[string]interface{}{
		"brand": "Dell", "screen_size": "abc", "harddisk": 0, "ram": 8,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if resp["status"] != "no_selection" || resp["message"] != "select at least one model!" {
		t.Fatalf("response: %v", resp)
	}
}

func TestPredictInvalidInput(t *testing.T) {
	ts := newTestServer(t, bothModels())
	tests := []struct {
		body  interface{}
		field string
	}{
		{map[string]interface{}{"brand": "Dell", "screen_size": "abc", "harddisk": 1000, "ram": 8, "knn": true}, "screen_size"},
		{map[string]interface{}{"brand": "Dell", "screen_size": 14, "harddisk": -5, "ram": 8, "knn": true}, "harddisk"},
		{map[string]interface{}{"brand": "Apple", "screen_size": 14, "harddisk": 1000, "ram": 8, "knn": true}, "brand"},
		{map[string]interface{}{"brand": "Dell", "screen_size": 14, "harddisk": 1000, "knn": true}, "ram"},
	}
	for _, tt := range tests {
		w, resp := ts.do(t, http.MethodPost, "/api/predict", tt.body)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("body %v: expected 400, got %d", tt.body, w.Code)
		}
		if resp["status"] != "invalid_input" || resp["field"] != tt.field {
			t.Errorf("body %v: response %v", tt.body, resp)
		}
	}

	w, _ := ts.do(t, http.MethodPost, "/api/predict", `{"brand": "Dell", "ram": true}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: expected 400, got %d", w.Code)
	}
}

func TestPredictModelFailure(t *testing.T) {
	ts := newTestServer(t, ensemble.Models{KNN: stubModel{price: 700}, RandomForest: stubModel{err: errors.New("tree exploded")}})
	w, resp := ts.do(t, http.MethodPost, "/api/predict", map[string]interface{}{
		"brand": "Dell", "screen_size": 14, "harddisk": 1000, "ram": 8,
		"knn": true, "random_forest": true,
	})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if resp["model"] != "random_forest" || !strings.Contains(resp["error"].(string), "tree exploded") {
		t.Fatalf("response: %v", resp)
	}
}

func TestPredictionHistory(t *testing.T) {
	ts := newTestServer(t, bothModels())
	body := map[string]interface{}{"brand": "HP", "screen_size": 15.6, "harddisk": 512, "ram": 16, "knn": true}
	for i := 0; i < 2; i++ {
		if w, _ := ts.do(t, http.MethodPost, "/api/predict", body); w.Code != http.StatusOK {
			t.Fatalf("predict: %d", w.Code)
		}
	}
	ts.engine.Close() // flush pending history writes

	w, resp := ts.do(t, http.MethodGet, "/api/predictions?limit=10", nil)
	if w.Code != http.StatusOK || resp["count"] != 2.0 {
		t.Fatalf("predictions: %d %v", w.Code, resp)
	}
	first := resp["predictions"].([]interface{})[0].(map[string]interface{})
	if first["brand"] != "HP" || first["selection"] != "knn" || first["price"] != 700.0 {
		t.Fatalf("record: %v", first)
	}

	w, resp = ts.do(t, http.MethodGet, "/api/stats", nil)
	if w.Code != http.StatusOK || resp["history_records"] != 2.0 {
		t.Fatalf("stats: %v", resp)
	}
	preds := resp["predictions"].(map[string]interface{})
	if preds["cache_hits"] != 1.0 {
		t.Fatalf("cache hits: %v", preds)
	}

	if w, _ := ts.do(t, http.MethodPost, "/api/reset", nil); w.Code != http.StatusOK {
		t.Fatalf("reset: %d", w.Code)
	}
	_, resp = ts.do(t, http.MethodGet, "/api/predictions", nil)
	if resp["count"] != 0.0 {
		t.Fatalf("after reset: %v", resp)
	}
}

func TestDatasetEndpoints(t *testing.T) {
	ts := newTestServer(t, bothModels())

	w, resp := ts.do(t, http.MethodGet, "/api/dataset?offset=1&limit=2", nil)
	if w.Code != http.StatusOK || resp["total"] != 4.0 || len(resp["rows"].([]interface{})) != 2 {
		t.Fatalf("dataset: %d %v", w.Code, resp)
	}
	if w, _ := ts.do(t, http.MethodGet, "/api/dataset?source=raw", nil); w.Code != http.StatusNotFound {
		t.Fatalf("raw without file: expected 404, got %d", w.Code)
	}
	if w, _ := ts.do(t, http.MethodGet, "/api/dataset?limit=x", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad limit: expected 400, got %d", w.Code)
	}

	_, resp = ts.do(t, http.MethodGet, "/api/brands", nil)
	brands := resp["brands"].([]interface{})
	if len(brands) != 3 || brands[0] != "Dell" {
		t.Fatalf("brands: %v", brands)
	}

	_, resp = ts.do(t, http.MethodGet, "/api/describe", nil)
	if n := len(resp["numeric"].([]interface{})); n != 4 {
		t.Fatalf("describe: %d numeric columns", n)
	}
	_, resp = ts.do(t, http.MethodGet, "/api/describe/categorical", nil)
	cat := resp["categorical"].([]interface{})[0].(map[string]interface{})
	if cat["top"] != "Dell" || cat["freq"] != 2.0 {
		t.Fatalf("categorical: %v", cat)
	}

	_, resp = ts.do(t, http.MethodGet, "/api/value-counts?column=brand&normalize=true", nil)
	top := resp["counts"].([]interface{})[0].(map[string]interface{})
	if top["value"] != "Dell" || top["share"] != 0.5 {
		t.Fatalf("value counts: %v", top)
	}
	if w, _ := ts.do(t, http.MethodGet, "/api/value-counts", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("missing column: expected 400, got %d", w.Code)
	}
}

func TestChartEndpoints(t *testing.T) {
	ts := newTestServer(t, bothModels())

	w, resp := ts.do(t, http.MethodGet, "/api/distribution?column=ram", nil)
	if w.Code != http.StatusOK || len(resp["counts"].([]interface{})) != 3 {
		t.Fatalf("distribution: %d %v", w.Code, resp)
	}
	w, resp = ts.do(t, http.MethodGet, "/api/distribution?column=price&chart=pie", nil)
	if w.Code != http.StatusBadRequest || !strings.Contains(resp["error"].(string), "pie chart not supported with price column") {
		t.Fatalf("pie/price: %d %v", w.Code, resp)
	}

	w, resp = ts.do(t, http.MethodGet, "/api/breakdown?child=ram", nil)
	if w.Code != http.StatusOK || len(resp["groups"].([]interface{})) != 3 {
		t.Fatalf("breakdown: %d %v", w.Code, resp)
	}
	if w, _ := ts.do(t, http.MethodGet, "/api/breakdown?child=gpu", nil); w.Code != http.StatusNotFound {
		t.Fatalf("unknown child: expected 404, got %d", w.Code)
	}
	if w, _ := ts.do(t, http.MethodGet, "/api/breakdown?child=price", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("price child: expected 400, got %d", w.Code)
	}

	w, resp = ts.do(t, http.MethodGet, "/api/scatter?x=ram&y=harddisk", nil)
	if w.Code != http.StatusOK || len(resp["points"].([]interface{})) != 4 {
		t.Fatalf("scatter: %d %v", w.Code, resp)
	}
	first := resp["points"].([]interface{})[0].(map[string]interface{})
	if first["brand"] != "Dell" || first["price"] != 700.0 {
		t.Fatalf("scatter point: %v", first)
	}
	if w, _ := ts.do(t, http.MethodGet, "/api/scatter?x=ram&y=harddisk&source=raw", nil); w.Code != http.StatusNotFound {
		t.Fatalf("scatter raw without raw dataset: expected 404, got %d", w.Code)
	}
	if w, _ := ts.do(t, http.MethodGet, "/api/scatter?x=ram&y=harddisk&source=other", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("scatter unknown source: expected 400, got %d", w.Code)
	}
}

func TestLaptopsAndQuery(t *testing.T) {
	ts := newTestServer(t, bothModels())

	w, resp := ts.do(t, http.MethodGet, "/api/laptops?min_price=600&max_price=800", nil)
	if w.Code != http.StatusOK || resp["count"] != 2.0 {
		t.Fatalf("laptops: %d %v", w.Code, resp)
	}
	if w, _ := ts.do(t, http.MethodGet, "/api/laptops?min_price=cheap", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad min_price: expected 400, got %d", w.Code)
	}

	w, resp = ts.do(t, http.MethodPost, "/api/query", map[string]string{"query": "SELECT * FROM laptops WHERE ram >= 8 LIMIT 2"})
	if w.Code != http.StatusOK || resp["count"] != 2.0 {
		t.Fatalf("query: %d %v", w.Code, resp)
	}
	if w, _ := ts.do(t, http.MethodPost, "/api/query", map[string]string{"query": "DROP TABLE laptops"}); w.Code != http.StatusBadRequest {
		t.Fatalf("bad query: expected 400, got %d", w.Code)
	}
}

func TestMetrics(t *testing.T) {
	ts := newTestServer(t, bothModels())
	ts.do(t, http.MethodPost, "/api/predict", map[string]interface{}{"brand": "Dell", "screen_size": 14, "harddisk": 1000, "ram": 8, "knn": true})

	w, _ := ts.do(t, http.MethodGet, "/metrics", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	for _, m := range []string{
		"laptopprice_requests_total 1",
		"laptopprice_predictions_total 1",
		"laptopprice_cache_hits_total 0",
		"laptopprice_dataset_rows 4",
	} {
		if !strings.Contains(body, m) {
			t.Fatalf("expected metrics output to contain %q, body=%s", m, body)
		}
	}
}

func TestFlexValue(t *testing.T) {
	var req predictRequest
	if err := json.Unmarshal([]byte(`{"screen_size": 15.6, "harddisk": " 512 ", "ram": null}`), &req); err != nil {
		t.Fatal(err)
	}
	if req.ScreenSize != "15.6" || req.HardDisk != " 512 " || req.RAM != "" {
		t.Fatalf("decoded: %+v", req)
	}
	if err := json.Unmarshal([]byte(`{"ram": [8]}`), &req); err == nil {
		t.Fatal("expected error for array value")
	}
}
