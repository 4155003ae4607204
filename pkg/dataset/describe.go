package dataset

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"laptopprice/pkg/feature"
)

var ErrUnsupportedChart = errors.New("dataset: chart not supported for column")

// Chart kinds whose data Distribution serves.
const (
	ChartBar = "bar"
	ChartKDE = "kde"
	ChartPie = "pie"
)

// NumericSummary mirrors the rows of a pandas describe() on one column.
type NumericSummary struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	P25    float64 `json:"25%"`
	P50    float64 `json:"50%"`
	P75    float64 `json:"75%"`
	Max    float64 `json:"max"`
}

// CategoricalSummary mirrors describe(include="object").
type CategoricalSummary struct {
	Column string `json:"column"`
	Count  int    `json:"count"`
	Unique int    `json:"unique"`
	Top    string `json:"top"`
	Freq   int    `json:"freq"`
}

// Count is one entry of a value count.
type Count struct {
	Value string  `json:"value"`
	Count int     `json:"count"`
	Share float64 `json:"share,omitempty"`
}

// Group is one parent value of a two-level breakdown.
type Group struct {
	Value    string  `json:"value"`
	Count    int     `json:"count"`
	Children []Count `json:"children"`
}

// Describe summarizes every numeric column. std is the sample standard
// deviation and quantiles interpolate linearly between order statistics.
func (fr *Frame) Describe() []NumericSummary {
	cols := fr.NumericColumns()
	out := make([]NumericSummary, 0, len(cols))
	for _, c := range cols {
		vals := dropNaN(fr.numeric[c])
		s := NumericSummary{Column: c, Count: len(vals)}
		if len(vals) == 0 {
			out = append(out, s)
			continue
		}
		sort.Float64s(vals)
		s.Mean, s.Std = stat.MeanStdDev(vals, nil)
		if len(vals) < 2 {
			s.Std = 0 // undefined; 0 keeps the summary JSON-encodable
		}
		s.Min = floats.Min(vals)
		s.Max = floats.Max(vals)
		s.P25 = quantile(vals, 0.25)
		s.P50 = quantile(vals, 0.50)
		s.P75 = quantile(vals, 0.75)
		out = append(out, s)
	}
	return out
}

// DescribeCategorical summarizes every non-numeric column.
func (fr *Frame) DescribeCategorical() []CategoricalSummary {
	cols := fr.CategoricalColumns()
	out := make([]CategoricalSummary, 0, len(cols))
	for _, c := range cols {
		counts, _ := fr.ValueCounts(c, false, false)
		s := CategoricalSummary{Column: c, Unique: len(counts)}
		for _, cnt := range counts {
			s.Count += cnt.Count
		}
		if len(counts) > 0 {
			s.Top = counts[0].Value
			s.Freq = counts[0].Count
		}
		out = append(out, s)
	}
	return out
}

// ValueCounts counts distinct non-empty values, most frequent first. Ties keep
// first-appearance order. normalize fills Share; lower folds case first.
func (fr *Frame) ValueCounts(column string, normalize, lower bool) ([]Count, error) {
	cells, err := fr.Strings(column)
	if err != nil {
		return nil, err
	}
	numeric := fr.IsNumeric(column)

	var order []string
	seen := make(map[string]int)
	total := 0
	for i, s := range cells {
		if s == "" {
			continue
		}
		key := s
		if numeric {
			key = formatFloat(fr.numeric[column][i])
		} else if lower {
			key = strings.ToLower(s)
		}
		if _, ok := seen[key]; !ok {
			order = append(order, key)
		}
		seen[key]++
		total++
	}

	out := make([]Count, len(order))
	for i, k := range order {
		out[i] = Count{Value: k, Count: seen[k]}
		if normalize && total > 0 {
			out[i].Share = float64(seen[k]) / float64(total)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}

// Distribution returns value counts sorted by value, numerically for numeric
// columns. A pie chart of price is rejected.
func (fr *Frame) Distribution(column, chart string) ([]Count, error) {
	switch chart {
	case "", ChartBar, ChartKDE:
	case ChartPie:
		if column == feature.ColPrice {
			return nil, fmt.Errorf("%w: %s chart not supported with %s column", ErrUnsupportedChart, chart, column)
		}
	default:
		return nil, fmt.Errorf("%w: unknown chart type %q", ErrUnsupportedChart, chart)
	}

	counts, err := fr.ValueCounts(column, false, false)
	if err != nil {
		return nil, err
	}
	if fr.IsNumeric(column) {
		sort.SliceStable(counts, func(i, j int) bool {
			a, _ := strconv.ParseFloat(counts[i].Value, 64)
			b, _ := strconv.ParseFloat(counts[j].Value, 64)
			return a < b
		})
	} else {
		sort.SliceStable(counts, func(i, j int) bool { return counts[i].Value < counts[j].Value })
	}
	return counts, nil
}

// Breakdown groups rows by parent and counts child values inside each group.
func (fr *Frame) Breakdown(parent, child string) ([]Group, error) {
	if parent == child {
		return nil, fmt.Errorf("dataset: breakdown needs two different columns, got %q twice", parent)
	}
	if parent == feature.ColPrice || child == feature.ColPrice {
		return nil, fmt.Errorf("%w: breakdown not supported with %s column", ErrUnsupportedChart, feature.ColPrice)
	}
	parents, err := fr.Strings(parent)
	if err != nil {
		return nil, err
	}
	children, err := fr.Strings(child)
	if err != nil {
		return nil, err
	}
	childNumeric := fr.IsNumeric(child)

	type bucket struct {
		count    int
		order    []string
		children map[string]int
	}
	var order []string
	buckets := make(map[string]*bucket)
	for i, p := range parents {
		c := children[i]
		if p == "" || c == "" {
			continue
		}
		if childNumeric {
			c = formatFloat(fr.numeric[child][i])
		}
		b, ok := buckets[p]
		if !ok {
			b = &bucket{children: make(map[string]int)}
			buckets[p] = b
			order = append(order, p)
		}
		if _, ok := b.children[c]; !ok {
			b.order = append(b.order, c)
		}
		b.children[c]++
		b.count++
	}

	out := make([]Group, 0, len(order))
	for _, p := range order {
		b := buckets[p]
		g := Group{Value: p, Count: b.count, Children: make([]Count, len(b.order))}
		for i, c := range b.order {
			g.Children[i] = Count{Value: c, Count: b.children[c]}
		}
		sort.SliceStable(g.Children, func(i, j int) bool { return g.Children[i].Count > g.Children[j].Count })
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out, nil
}

// Brands lists brand values by descending frequency, the order offered to users.
func (fr *Frame) Brands() ([]string, error) {
	counts, err := fr.ValueCounts(feature.ColBrand, false, false)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(counts))
	for i, c := range counts {
		out[i] = c.Value
	}
	return out, nil
}

// quantile interpolates linearly on sorted data at rank (n-1)*p.
func quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

func dropNaN(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
