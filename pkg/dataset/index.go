package dataset

import (
	"math"

	"github.com/google/btree"
)

type priceItem struct {
	Price float64
	Row   int
}

func (i priceItem) Less(than btree.Item) bool {
	o := than.(priceItem)
	if i.Price != o.Price {
		return i.Price < o.Price
	}
	return i.Row < o.Row
}

// PriceIndex orders row numbers by price. It is built once and only read afterwards.
type PriceIndex struct {
	tree *btree.BTree
}

func NewPriceIndex(prices []float64) *PriceIndex {
	idx := &PriceIndex{tree: btree.New(32)}
	for row, p := range prices {
		if math.IsNaN(p) {
			continue
		}
		idx.tree.ReplaceOrInsert(priceItem{Price: p, Row: row})
	}
	return idx
}

// Range returns the rows with lo <= price <= hi in ascending price order.
func (idx *PriceIndex) Range(lo, hi float64) []int {
	var rows []int
	if lo > hi {
		return rows
	}
	idx.tree.AscendGreaterOrEqual(priceItem{Price: lo, Row: math.MinInt}, func(i btree.Item) bool {
		it := i.(priceItem)
		if it.Price > hi {
			return false
		}
		rows = append(rows, it.Row)
		return true
	})
	return rows
}

func (idx *PriceIndex) Len() int {
	return idx.tree.Len()
}

// Min and Max return the cheapest and most expensive prices.
func (idx *PriceIndex) Min() (float64, bool) {
	it := idx.tree.Min()
	if it == nil {
		return 0, false
	}
	return it.(priceItem).Price, true
}

func (idx *PriceIndex) Max() (float64, bool) {
	it := idx.tree.Max()
	if it == nil {
		return 0, false
	}
	return it.(priceItem).Price, true
}
