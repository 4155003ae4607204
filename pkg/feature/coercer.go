package feature

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var (
	ErrCoercion = errors.New("feature: coercion failed")
	ErrSchema   = errors.New("feature: column schema mismatch")
)

// CoercionError reports the field that could not be turned into a valid value.
type CoercionError struct {
	Field  string
	Value  string
	Reason string
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *CoercionError) Is(target error) bool {
	return target == ErrCoercion
}

// Coercer validates raw form values. A nil brand set accepts any non-empty brand.
type Coercer struct {
	brands map[string]struct{}
}

func NewCoercer(brands []string) *Coercer {
	c := &Coercer{}
	if len(brands) > 0 {
		c.brands = make(map[string]struct{}, len(brands))
		for _, b := range brands {
			c.brands[b] = struct{}{}
		}
	}
	return c
}

// Coerce parses in and lays it out in columns order.
// columns must be a permutation of Columns.
func (c *Coercer) Coerce(in Input, columns []string) (Row, error) {
	if err := checkColumns(columns); err != nil {
		return nil, err
	}

	brand := strings.TrimSpace(in.Brand)
	if brand == "" {
		return nil, &CoercionError{Field: ColBrand, Value: in.Brand, Reason: "brand is required"}
	}
	if c.brands != nil {
		if _, ok := c.brands[brand]; !ok {
			return nil, &CoercionError{Field: ColBrand, Value: in.Brand, Reason: "unknown brand"}
		}
	}

	raw := map[string]string{
		ColScreenSize: in.ScreenSize,
		ColHardDisk:   in.HardDisk,
		ColRAM:        in.RAM,
	}

	row := make(Row, 0, len(columns))
	for _, col := range columns {
		if col == ColBrand {
			row = append(row, Value{Column: col, Text: brand})
			continue
		}
		f, err := parsePositive(col, raw[col])
		if err != nil {
			return nil, err
		}
		row = append(row, Value{Column: col, Number: f, Numeric: true})
	}
	return row, nil
}

// CoerceRecord re-validates an already typed record.
func (c *Coercer) CoerceRecord(rec Record, columns []string) (Row, error) {
	return c.Coerce(rec.Input(), columns)
}

func parsePositive(field, s string) (float64, error) {
	v := strings.TrimSpace(s)
	if v == "" {
		return 0, &CoercionError{Field: field, Value: s, Reason: "value is required"}
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, &CoercionError{Field: field, Value: s, Reason: "not a number"}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &CoercionError{Field: field, Value: s, Reason: "not a finite number"}
	}
	if f <= 0 {
		return 0, &CoercionError{Field: field, Value: s, Reason: "must be positive"}
	}
	return f, nil
}

func checkColumns(columns []string) error {
	if len(columns) != len(Columns) {
		return fmt.Errorf("%w: expected %d columns, got %v", ErrSchema, len(Columns), columns)
	}
	seen := make(map[string]bool, len(columns))
	for _, col := range columns {
		known := false
		for _, k := range Columns {
			if k == col {
				known = true
				break
			}
		}
		if !known {
			return fmt.Errorf("%w: unknown column %q", ErrSchema, col)
		}
		if seen[col] {
			return fmt.Errorf("%w: duplicate column %q", ErrSchema, col)
		}
		seen[col] = true
	}
	return nil
}
