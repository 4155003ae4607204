package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"laptopprice/pkg/feature"
)

var (
	ErrUnknownColumn = errors.New("dataset: unknown column")
	ErrNotNumeric    = errors.New("dataset: column is not numeric")
	ErrEmpty         = errors.New("dataset: no rows")
)

// Frame is an immutable in-memory table read from CSV.
type Frame struct {
	columns []string
	cells   [][]string
	numeric map[string][]float64 // NaN marks an empty cell
	colIdx  map[string]int
	prices  *PriceIndex
}

func Load(path string) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "open dataset %s", path)
	}
	defer f.Close()

	fr, err := Read(f)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "read dataset %s", path)
	}
	return fr, nil
}

// Read parses CSV with a header row. A column is numeric when every
// non-empty cell parses as a float.
func Read(r io.Reader) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, err
	}
	// pandas writes the index as an unnamed first column.
	skipFirst := len(header) > 0 && (header[0] == "" || header[0] == "Unnamed: 0")
	if skipFirst {
		header = header[1:]
	}

	fr := &Frame{
		columns: make([]string, len(header)),
		numeric: make(map[string][]float64),
		colIdx:  make(map[string]int, len(header)),
	}
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, dup := fr.colIdx[name]; dup {
			return nil, fmt.Errorf("dataset: duplicate column %q", name)
		}
		fr.columns[i] = name
		fr.colIdx[name] = i
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if skipFirst {
			rec = rec[1:]
		}
		row := make([]string, len(rec))
		for i, v := range rec {
			row[i] = strings.TrimSpace(v)
		}
		fr.cells = append(fr.cells, row)
	}
	if len(fr.cells) == 0 {
		return nil, ErrEmpty
	}

	for ci, name := range fr.columns {
		vals := make([]float64, len(fr.cells))
		isNum, nonEmpty := true, 0
		for ri, row := range fr.cells {
			s := row[ci]
			if s == "" {
				vals[ri] = math.NaN()
				continue
			}
			f, err := strconv.ParseFloat(s, 64)
			if err != nil {
				isNum = false
				break
			}
			vals[ri] = f
			nonEmpty++
		}
		if isNum && nonEmpty > 0 {
			fr.numeric[name] = vals
		}
	}

	if prices, ok := fr.numeric[feature.ColPrice]; ok {
		fr.prices = NewPriceIndex(prices)
	}
	return fr, nil
}

func (fr *Frame) Columns() []string {
	out := make([]string, len(fr.columns))
	copy(out, fr.columns)
	return out
}

func (fr *Frame) Len() int { return len(fr.cells) }

func (fr *Frame) IsNumeric(column string) bool {
	_, ok := fr.numeric[column]
	return ok
}

// NumericColumns returns numeric column names in table order.
func (fr *Frame) NumericColumns() []string {
	var out []string
	for _, c := range fr.columns {
		if fr.IsNumeric(c) {
			out = append(out, c)
		}
	}
	return out
}

// CategoricalColumns returns non-numeric column names in table order.
func (fr *Frame) CategoricalColumns() []string {
	var out []string
	for _, c := range fr.columns {
		if !fr.IsNumeric(c) {
			out = append(out, c)
		}
	}
	return out
}

// Strings returns the raw cells of column.
func (fr *Frame) Strings(column string) ([]string, error) {
	ci, ok := fr.colIdx[column]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	out := make([]string, len(fr.cells))
	for i, row := range fr.cells {
		out[i] = row[ci]
	}
	return out, nil
}

// Floats returns the parsed values of a numeric column. Empty cells are NaN.
func (fr *Frame) Floats(column string) ([]float64, error) {
	if _, ok := fr.colIdx[column]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}
	vals, ok := fr.numeric[column]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotNumeric, column)
	}
	out := make([]float64, len(vals))
	copy(out, vals)
	return out, nil
}

// Row is one table row keyed by column. Numeric cells are float64, empty cells nil.
type Row map[string]interface{}

func (fr *Frame) row(i int) Row {
	r := make(Row, len(fr.columns))
	for ci, name := range fr.columns {
		r[name] = fr.cell(i, ci)
	}
	return r
}

// cell returns float64 for numeric columns, string otherwise, nil when empty.
func (fr *Frame) cell(i, ci int) interface{} {
	s := fr.cells[i][ci]
	name := fr.columns[ci]
	switch {
	case s == "":
		return nil
	case fr.IsNumeric(name):
		v := fr.numeric[name][i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil
		}
		return v
	default:
		return s
	}
}

// Rows returns up to limit rows starting at offset. limit <= 0 means all.
func (fr *Frame) Rows(offset, limit int) []Row {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(fr.cells) {
		return []Row{}
	}
	end := len(fr.cells)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	out := make([]Row, 0, end-offset)
	for i := offset; i < end; i++ {
		out = append(out, fr.row(i))
	}
	return out
}
