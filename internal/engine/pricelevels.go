package engine

import (
	"sync"

	"github.com/tidwall/btree"
)

// priceLevels is one side of the book: an ordered map of price to
// priceLevel, guarded by its own RWMutex since btree.BTreeG's mutating
// methods are not safe for concurrent use (the teacher's OrderBook makes
// the same tradeoff in internal/engine/orderbook.go, there for a single
// shared *btree.BTreeG[*PriceLevel] per book).
type priceLevels[Extra any] struct {
	mu   sync.RWMutex
	side Side
	tree *btree.BTreeG[*priceLevel[Extra]]
}

// newPriceLevels builds one side of the book. Bids are ordered best
// (highest) first; asks are ordered best (lowest) first. Both are
// expressed as a single "better than" comparator over price so Ascend
// always walks best-to-worst regardless of side.
func newPriceLevels[Extra any](side Side) *priceLevels[Extra] {
	var less func(a, b *priceLevel[Extra]) bool
	if side == Buy {
		less = func(a, b *priceLevel[Extra]) bool { return a.Price > b.Price }
	} else {
		less = func(a, b *priceLevel[Extra]) bool { return a.Price < b.Price }
	}
	return &priceLevels[Extra]{
		side: side,
		tree: btree.NewBTreeG[*priceLevel[Extra]](less),
	}
}

// getOrCreate returns the level at price, creating an empty one if absent.
func (pls *priceLevels[Extra]) getOrCreate(price uint64) *priceLevel[Extra] {
	pls.mu.Lock()
	defer pls.mu.Unlock()
	probe := &priceLevel[Extra]{Price: price}
	if existing, ok := pls.tree.Get(probe); ok {
		return existing
	}
	lvl := newPriceLevel[Extra](pls.side, price)
	pls.tree.Set(lvl)
	return lvl
}

func (pls *priceLevels[Extra]) get(price uint64) (*priceLevel[Extra], bool) {
	pls.mu.RLock()
	defer pls.mu.RUnlock()
	return pls.tree.Get(&priceLevel[Extra]{Price: price})
}

func (pls *priceLevels[Extra]) removeIfEmpty(lvl *priceLevel[Extra]) {
	if !lvl.isEmpty() {
		return
	}
	pls.mu.Lock()
	defer pls.mu.Unlock()
	if existing, ok := pls.tree.Get(lvl); ok && existing.isEmpty() {
		pls.tree.Delete(lvl)
	}
}

// best returns the first (best-priced) level, if any.
func (pls *priceLevels[Extra]) best() (*priceLevel[Extra], bool) {
	pls.mu.RLock()
	defer pls.mu.RUnlock()
	return pls.tree.Min()
}

func (pls *priceLevels[Extra]) len() int {
	pls.mu.RLock()
	defer pls.mu.RUnlock()
	return pls.tree.Len()
}

// ascend walks levels best-to-worst, stopping early if fn returns false.
func (pls *priceLevels[Extra]) ascend(fn func(*priceLevel[Extra]) bool) {
	pls.mu.RLock()
	defer pls.mu.RUnlock()
	pls.tree.Scan(fn)
}

// ascendFrom walks levels best-to-worst starting at the given price
// (inclusive). Nothing in the package calls it; the depth and iterator
// analytics re-walk from the best level with ascend.
func (pls *priceLevels[Extra]) ascendFrom(price uint64, fn func(*priceLevel[Extra]) bool) {
	pls.mu.RLock()
	defer pls.mu.RUnlock()
	pls.tree.Ascend(&priceLevel[Extra]{Price: price}, fn)
}
