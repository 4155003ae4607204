package dataset

import (
	"fmt"

	"laptopprice/pkg/feature"
	"laptopprice/pkg/query"
)

// PriceRange returns rows priced within [lo, hi], cheapest first.
func (fr *Frame) PriceRange(lo, hi float64) ([]Row, error) {
	if fr.prices == nil {
		return nil, fmt.Errorf("%w: %q", ErrNotNumeric, feature.ColPrice)
	}
	idx := fr.prices.Range(lo, hi)
	out := make([]Row, len(idx))
	for i, r := range idx {
		out[i] = fr.row(r)
	}
	return out, nil
}

// Select runs a parsed statement. Range predicates on price use the price
// index; everything else scans in table order.
func (fr *Frame) Select(stmt *query.SelectStmt) ([]Row, error) {
	if stmt.Limit == 0 {
		return []Row{}, nil
	}

	var candidates []int
	if stmt.Where == nil {
		candidates = make([]int, len(fr.cells))
		for i := range candidates {
			candidates[i] = i
		}
	} else {
		field := stmt.Where.Field
		vals, err := fr.Floats(field)
		if err != nil {
			return nil, err
		}
		if lo, hi, ok := stmt.Bounds(); ok && field == feature.ColPrice && fr.prices != nil {
			for _, r := range fr.prices.Range(lo, hi) {
				if stmt.Match(vals[r]) {
					candidates = append(candidates, r)
				}
			}
		} else {
			for i, v := range vals {
				if stmt.Match(v) {
					candidates = append(candidates, i)
				}
			}
		}
	}

	if stmt.Limit > 0 && len(candidates) > stmt.Limit {
		candidates = candidates[:stmt.Limit]
	}
	out := make([]Row, len(candidates))
	for i, r := range candidates {
		out[i] = fr.row(r)
	}
	return out, nil
}

// Point is one scatter sample of two columns. Brand and price carry the
// colour and marker size.
type Point struct {
	X     interface{} `json:"x"`
	Y     interface{} `json:"y"`
	Brand interface{} `json:"brand"`
	Price interface{} `json:"price"`
}

// Scatter pairs column x with column y row by row, skipping rows where
// either is empty.
func (fr *Frame) Scatter(x, y string) ([]Point, error) {
	xi, ok := fr.colIdx[x]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, x)
	}
	yi, ok := fr.colIdx[y]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, y)
	}
	pi, hasPrice := fr.colIdx[feature.ColPrice]
	bi, hasBrand := fr.colIdx[feature.ColBrand]

	out := make([]Point, 0, len(fr.cells))
	for i := range fr.cells {
		p := Point{X: fr.cell(i, xi), Y: fr.cell(i, yi)}
		if p.X == nil || p.Y == nil {
			continue
		}
		if hasPrice {
			p.Price = fr.cell(i, pi)
		}
		if hasBrand {
			p.Brand = fr.cell(i, bi)
		}
		out = append(out, p)
	}
	return out, nil
}
