package feature

import (
	"fmt"
	"strconv"
)

// Column names shared by the dataset, the preprocessing artifact and the coercer.
const (
	ColBrand      = "brand"
	ColScreenSize = "screen_size"
	ColHardDisk   = "harddisk"
	ColRAM        = "ram"
	ColPrice      = "price"
)

// Columns is the canonical feature column order of the cleaned dataset.
var Columns = []string{ColBrand, ColScreenSize, ColHardDisk, ColRAM}

// Input holds the raw, unvalidated values of one form submission.
type Input struct {
	Brand      string `json:"brand"`
	ScreenSize string `json:"screen_size"`
	HardDisk   string `json:"harddisk"`
	RAM        string `json:"ram"`
}

// Record is one laptop's configuration after coercion.
type Record struct {
	Brand      string  `json:"brand"`
	ScreenSize float64 `json:"screen_size"`
	HardDisk   float64 `json:"harddisk"`
	RAM        float64 `json:"ram"`
}

// Input formats the record back into raw form values.
func (r Record) Input() Input {
	return Input{
		Brand:      r.Brand,
		ScreenSize: formatFloat(r.ScreenSize),
		HardDisk:   formatFloat(r.HardDisk),
		RAM:        formatFloat(r.RAM),
	}
}

// Key is a stable string used for caching.
func (r Record) Key() string {
	return fmt.Sprintf("%s|%s|%s|%s", r.Brand, formatFloat(r.ScreenSize), formatFloat(r.HardDisk), formatFloat(r.RAM))
}

// Value is one cell of a Row. Numeric cells carry Number, the brand cell carries Text.
type Value struct {
	Column  string
	Text    string
	Number  float64
	Numeric bool
}

func (v Value) String() string {
	if v.Numeric {
		return formatFloat(v.Number)
	}
	return v.Text
}

// Row is a single-row structured record in the column order a transform expects.
type Row []Value

// Get returns the cell for column.
func (r Row) Get(column string) (Value, bool) {
	for _, v := range r {
		if v.Column == column {
			return v, true
		}
	}
	return Value{}, false
}

// Columns returns the column order of the row.
func (r Row) Columns() []string {
	cols := make([]string, len(r))
	for i, v := range r {
		cols[i] = v.Column
	}
	return cols
}

// Record collapses the row into its typed form.
func (r Row) Record() Record {
	var rec Record
	for _, v := range r {
		switch v.Column {
		case ColBrand:
			rec.Brand = v.Text
		case ColScreenSize:
			rec.ScreenSize = v.Number
		case ColHardDisk:
			rec.HardDisk = v.Number
		case ColRAM:
			rec.RAM = v.Number
		}
	}
	return rec
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
