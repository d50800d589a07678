package engine

import "sync/atomic"

// priceLevelCache memoizes best bid / best ask so hot-path readers
// (spread, mid price, micro price) avoid a BTreeG descent under lock on
// every call. It mirrors the cache the Rust original keeps alongside the
// skip-list book: valid is cleared on any mutation to the touched side and
// best_bid/best_ask recompute it lazily on next read.
type priceLevelCache struct {
	bidValid atomic.Bool
	bidPrice atomic.Uint64
	askValid atomic.Bool
	askPrice atomic.Uint64
}

func (c *priceLevelCache) invalidate(side Side) {
	if side == Buy {
		c.bidValid.Store(false)
	} else {
		c.askValid.Store(false)
	}
}

func (c *priceLevelCache) invalidateBoth() {
	c.bidValid.Store(false)
	c.askValid.Store(false)
}

func (c *priceLevelCache) get(side Side) (price uint64, ok bool) {
	if side == Buy {
		return c.bidPrice.Load(), c.bidValid.Load()
	}
	return c.askPrice.Load(), c.askValid.Load()
}

func (c *priceLevelCache) set(side Side, price uint64) {
	if side == Buy {
		c.bidPrice.Store(price)
		c.bidValid.Store(true)
	} else {
		c.askPrice.Store(price)
		c.askValid.Store(true)
	}
}

func (c *priceLevelCache) clear(side Side) {
	c.invalidate(side)
}
