package query

import (
	"math"
	"testing"
)

func TestParseSelect(t *testing.T) {
	tests := []struct {
		sql   string
		limit int
		hasW  bool
		err   bool
	}{
		{"SELECT * FROM laptops", -1, false, false},
		{"select * from laptops", -1, false, false},
		{"SELECT * FROM Laptops;", -1, false, false},
		{"  SELECT * FROM laptops  ", -1, false, false},
		{"SELECT * FROM laptops LIMIT 10", 10, false, false},
		{"SELECT * FROM laptops WHERE ram >= 8", -1, true, false},
		{"SELECT * FROM laptops WHERE price < 499.99 LIMIT 5", 5, true, false},
		{"SELECT * FROM laptops WHERE screen_size = -1", -1, true, false},
		{"SELECT * FROM users", 0, false, true},
		{"SELECT * FROM laptops WHERE brand = Dell", 0, false, true},
		{"SELECT * FROM ", 0, false, true},
		{"SELECT brand FROM laptops", 0, false, true},
		{"INSERT INTO laptops", 0, false, true},
		{"", 0, false, true},
	}
	for _, tt := range tests {
		stmt, err := Parse(tt.sql)
		if tt.err {
			if err == nil {
				t.Errorf("Parse(%q): expected error", tt.sql)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): %v", tt.sql, err)
			continue
		}
		if stmt.Table != Table {
			t.Errorf("Parse(%q): table=%q", tt.sql, stmt.Table)
		}
		if stmt.Limit != tt.limit {
			t.Errorf("Parse(%q): limit=%d, want %d", tt.sql, stmt.Limit, tt.limit)
		}
		if (stmt.Where != nil) != tt.hasW {
			t.Errorf("Parse(%q): where=%v, want hasWhere=%v", tt.sql, stmt.Where, tt.hasW)
		}
	}
}

func TestMatch(t *testing.T) {
	stmt, _ := Parse("SELECT * FROM laptops WHERE ram >= 8")
	if stmt.Where.Field != "ram" {
		t.Fatalf("field: %q", stmt.Where.Field)
	}
	if stmt.Match(4) {
		t.Fatalf("expected ram=4 not to match")
	}
	if !stmt.Match(8) || !stmt.Match(16) {
		t.Fatalf("expected ram>=8 to match")
	}
	for _, sql := range []string{
		"SELECT * FROM laptops WHERE price != 700",
		"SELECT * FROM laptops WHERE price = 700",
		"SELECT * FROM laptops WHERE price < 700",
	} {
		st, _ := Parse(sql)
		if st.Match(math.NaN()) {
			t.Errorf("%q: empty cell should not match", sql)
		}
	}
	stmt2, _ := Parse("SELECT * FROM laptops")
	if !stmt2.Match(1) || !stmt2.Match(-5) {
		t.Fatalf("expected query without WHERE to match anything")
	}
}

func TestBounds(t *testing.T) {
	stmt, _ := Parse("SELECT * FROM laptops WHERE price > 500")
	lo, _, ok := stmt.Bounds()
	if !ok || lo != 500 {
		t.Fatalf("bounds for >: lo=%v ok=%v", lo, ok)
	}
	stmt, _ = Parse("SELECT * FROM laptops WHERE price <= 900")
	_, hi, ok := stmt.Bounds()
	if !ok || hi != 900 {
		t.Fatalf("bounds for <=: hi=%v ok=%v", hi, ok)
	}
	stmt, _ = Parse("SELECT * FROM laptops WHERE price != 900")
	if _, _, ok := stmt.Bounds(); ok {
		t.Fatalf("!= should not produce a range")
	}
}
