package query

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Table is the only queryable table.
const Table = "laptops"

// SelectStmt represents a parsed SELECT * FROM laptops statement.
type SelectStmt struct {
	Table string
	Where *WhereClause
	Limit int
}

type WhereClause struct {
	Field string
	Op    string
	Value float64
}

var selectRe = regexp.MustCompile(`(?i)^SELECT\s+\*\s+FROM\s+([a-zA-Z_][a-zA-Z0-9_]*)(?:\s+WHERE\s+([a-zA-Z_][a-zA-Z0-9_]*)\s*(=|!=|>=|<=|>|<)\s*(-?\d+(?:\.\d+)?))?(?:\s+LIMIT\s+(\d+))?\s*;?\s*$`)

// Parse parses simple SQL:
// "SELECT * FROM laptops"
// "SELECT * FROM laptops WHERE ram >= 8"
// "SELECT * FROM laptops LIMIT 10"
// "SELECT * FROM laptops WHERE price < 500.5 LIMIT 10"
// The WHERE field must name a numeric column; that is checked at execution.
func Parse(s string) (*SelectStmt, error) {
	orig := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), ";"))
	if orig == "" {
		return nil, errors.New("empty query")
	}

	matches := selectRe.FindStringSubmatch(orig)
	if matches == nil {
		return nil, errors.New("syntax: expected SELECT * FROM laptops [WHERE <column> <op> <number>] [LIMIT <n>]")
	}
	table := strings.ToLower(strings.TrimSpace(matches[1]))
	if table != Table {
		return nil, errors.New("unknown table: " + matches[1])
	}

	stmt := &SelectStmt{
		Table: table,
		Limit: -1,
	}

	if matches[2] != "" {
		whereVal, err := strconv.ParseFloat(matches[4], 64)
		if err != nil {
			return nil, errors.New("invalid WHERE value")
		}
		stmt.Where = &WhereClause{
			Field: strings.ToLower(matches[2]),
			Op:    matches[3],
			Value: whereVal,
		}
	}

	if matches[5] != "" {
		limitVal, err := strconv.Atoi(matches[5])
		if err != nil || limitVal < 0 {
			return nil, errors.New("invalid LIMIT value")
		}
		stmt.Limit = limitVal
	}

	return stmt, nil
}

// Match reports whether v satisfies the WHERE clause. An empty cell (NaN)
// never satisfies a predicate.
func (stmt *SelectStmt) Match(v float64) bool {
	if stmt.Where == nil {
		return true
	}
	if math.IsNaN(v) {
		return false
	}
	w := stmt.Where.Value
	switch stmt.Where.Op {
	case "=":
		return v == w
	case "!=":
		return v != w
	case ">":
		return v > w
	case "<":
		return v < w
	case ">=":
		return v >= w
	case "<=":
		return v <= w
	default:
		return false
	}
}

// Bounds returns the closed interval a range predicate allows, for index
// lookups. ok is false for = and != which are not ranges worth scanning.
func (stmt *SelectStmt) Bounds() (lo, hi float64, ok bool) {
	if stmt.Where == nil {
		return 0, 0, false
	}
	w := stmt.Where.Value
	switch stmt.Where.Op {
	case ">", ">=":
		return w, math.MaxFloat64, true
	case "<", "<=":
		return -math.MaxFloat64, w, true
	}
	return 0, 0, false
}
