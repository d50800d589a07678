package engine

import "math/bits"

// DepthLevel is one row of an aggregated depth view: a price and the
// total visible quantity resting there.
type DepthLevel struct {
	Price uint64
	Qty   uint64
}

// widenedNotional accumulates price*quantity products in a 128-bit
// integer (hi:lo) rather than a float64 running total, so summing many
// large fills across deep books cannot lose precision or overflow before
// the final divide-for-the-mean step.
type widenedNotional struct {
	hi, lo uint64
}

func (w *widenedNotional) addProduct(price, qty uint64) {
	hi, lo := bits.Mul64(price, qty)
	var carry uint64
	w.lo, carry = bits.Add64(w.lo, lo, 0)
	w.hi, _ = bits.Add64(w.hi, hi, carry)
}

// toFloat64 converts the accumulated 128-bit total to a float64, losing
// precision only at this final step rather than during accumulation.
func (w widenedNotional) toFloat64() float64 {
	const two64 = 18446744073709551616.0 // 2^64
	return float64(w.hi)*two64 + float64(w.lo)
}

// LevelInfo is one emitted row of a price-level iterator: a level's
// price and visible quantity, plus the cumulative visible quantity
// accumulated up to and including this level in the iteration order.
type LevelInfo struct {
	Price           uint64
	Quantity        uint64
	CumulativeDepth uint64
}

// DepthStatistics summarizes one side of the book to a fixed depth.
type DepthStatistics struct {
	Levels      int
	TotalQty    uint64
	BestPrice   uint64
	WorstPrice  uint64
	AverageSize float64
}

// TotalDepthAtLevels sums visible quantity across the best n levels of a
// side.
func (b *OrderBook[Extra]) TotalDepthAtLevels(side Side, n int) uint64 {
	var total uint64
	count := 0
	b.sideBook(side).ascend(func(lvl *priceLevel[Extra]) bool {
		if count >= n {
			return false
		}
		total += lvl.visibleQty
		count++
		return true
	})
	return total
}

// DepthDistribution returns up to n levels of visible depth, best first.
func (b *OrderBook[Extra]) DepthDistribution(side Side, n int) []DepthLevel {
	var out []DepthLevel
	b.sideBook(side).ascend(func(lvl *priceLevel[Extra]) bool {
		if len(out) >= n {
			return false
		}
		out = append(out, DepthLevel{Price: lvl.Price, Qty: lvl.visibleQty})
		return true
	})
	return out
}

// DepthStatisticsFor computes aggregate stats over the best n levels.
func (b *OrderBook[Extra]) DepthStatisticsFor(side Side, n int) DepthStatistics {
	levels := b.DepthDistribution(side, n)
	stats := DepthStatistics{Levels: len(levels)}
	if len(levels) == 0 {
		return stats
	}
	stats.BestPrice = levels[0].Price
	stats.WorstPrice = levels[len(levels)-1].Price
	for _, l := range levels {
		stats.TotalQty += l.Qty
	}
	stats.AverageSize = float64(stats.TotalQty) / float64(len(levels))
	return stats
}

// PriceAtDepth returns the price at which cumulative visible depth first
// reaches targetQty, walking best-to-worst.
func (b *OrderBook[Extra]) PriceAtDepth(side Side, targetQty uint64) (uint64, bool) {
	var cum uint64
	var price uint64
	found := false
	b.sideBook(side).ascend(func(lvl *priceLevel[Extra]) bool {
		cum += lvl.visibleQty
		price = lvl.Price
		if cum >= targetQty {
			found = true
			return false
		}
		return true
	})
	return price, found
}

// CumulativeDepthToTarget reports the actual cumulative quantity available
// by the time the target price is reached (or the book is exhausted).
func (b *OrderBook[Extra]) CumulativeDepthToTarget(side Side, targetPrice uint64) uint64 {
	var cum uint64
	b.sideBook(side).ascend(func(lvl *priceLevel[Extra]) bool {
		if side == Buy && lvl.Price < targetPrice {
			return false
		}
		if side == Sell && lvl.Price > targetPrice {
			return false
		}
		cum += lvl.visibleQty
		return true
	})
	return cum
}

// LiquidityInRange sums visible quantity for a side between lo and hi
// inclusive.
func (b *OrderBook[Extra]) LiquidityInRange(side Side, lo, hi uint64) uint64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	var total uint64
	b.sideBook(side).ascend(func(lvl *priceLevel[Extra]) bool {
		if lvl.Price >= lo && lvl.Price <= hi {
			total += lvl.visibleQty
		}
		return true
	})
	return total
}

// VWAP computes the volume-weighted average execution price a market
// order of qty would receive sweeping the given side, without mutating
// the book. Cost is accumulated in a widened 128-bit integer and divided
// only at the end, so the mean itself doesn't compound rounding error
// across levels.
func (b *OrderBook[Extra]) VWAP(side Side, qty uint64) (float64, uint64, bool) {
	var filled uint64
	var notional widenedNotional
	b.sideBook(side).ascend(func(lvl *priceLevel[Extra]) bool {
		if filled >= qty {
			return false
		}
		take := min(qty-filled, lvl.visibleQty)
		notional.addProduct(lvl.Price, take)
		filled += take
		return filled < qty
	})
	if filled == 0 {
		return 0, 0, false
	}
	return notional.toFloat64() / float64(filled), filled, filled >= qty
}

// defaultBpsMultiplier is the basis-point scale market impact is
// reported at unless the caller overrides it.
const defaultBpsMultiplier = 10000.0

// MarketImpactResult reports the full cost of sweeping qty off one side
// of the book: the average fill price, the worst price touched, the
// slippage from the best price both in absolute terms and in basis
// points, and how many price levels were consumed.
type MarketImpactResult struct {
	AvgPrice         float64
	BestPrice        uint64
	WorstPrice       uint64
	AbsoluteSlippage float64
	SlippageBps      float64
	FilledQty        uint64
	LevelsConsumed   int
	FullyFilled      bool
}

// MarketImpact estimates the cost of sweeping qty off side, reporting
// slippage in basis points using the default 10,000.0 multiplier.
func (b *OrderBook[Extra]) MarketImpact(side Side, qty uint64) (MarketImpactResult, bool) {
	return b.MarketImpactWithMultiplier(side, qty, defaultBpsMultiplier)
}

// MarketImpactWithMultiplier is MarketImpact with a caller-supplied
// basis-point multiplier (the default, 10,000.0, is what MarketImpact
// uses).
func (b *OrderBook[Extra]) MarketImpactWithMultiplier(side Side, qty uint64, bpsMultiplier float64) (MarketImpactResult, bool) {
	best, ok := b.best(side)
	if !ok {
		return MarketImpactResult{}, false
	}

	var filled uint64
	var notional widenedNotional
	var worst uint64
	levels := 0
	b.sideBook(side).ascend(func(lvl *priceLevel[Extra]) bool {
		if filled >= qty {
			return false
		}
		take := min(qty-filled, lvl.visibleQty)
		notional.addProduct(lvl.Price, take)
		filled += take
		worst = lvl.Price
		levels++
		return filled < qty
	})
	if filled == 0 {
		return MarketImpactResult{}, false
	}

	avg := notional.toFloat64() / float64(filled)
	// side is the book side being swept: consuming the bid side (Buy)
	// pays progressively less as depth is consumed, consuming the ask
	// side (Sell) pays progressively more. AbsoluteSlippage is reported
	// as a positive cost in both directions.
	var absSlippage float64
	if side == Buy {
		absSlippage = float64(best) - avg
	} else {
		absSlippage = avg - float64(best)
	}
	var slippageBps float64
	if best != 0 {
		slippageBps = absSlippage / float64(best) * bpsMultiplier
	}

	return MarketImpactResult{
		AvgPrice:         avg,
		BestPrice:        best,
		WorstPrice:       worst,
		AbsoluteSlippage: absSlippage,
		SlippageBps:      slippageBps,
		FilledQty:        filled,
		LevelsConsumed:   levels,
		FullyFilled:      filled >= qty,
	}, true
}

// SimulateMarketOrder previews the fills a market order of qty would
// receive, without mutating book state or emitting transactions.
func (b *OrderBook[Extra]) SimulateMarketOrder(side Side, qty uint64) []DepthLevel {
	var out []DepthLevel
	var filled uint64
	opposite := side.Opposite()
	b.sideBook(opposite).ascend(func(lvl *priceLevel[Extra]) bool {
		if filled >= qty {
			return false
		}
		take := min(qty-filled, lvl.visibleQty)
		out = append(out, DepthLevel{Price: lvl.Price, Qty: take})
		filled += take
		return filled < qty
	})
	return out
}

// OrderBookImbalance returns (bidQty-askQty)/(bidQty+askQty) over the
// best n levels on each side, in [-1, 1]. Zero denominator yields 0.
func (b *OrderBook[Extra]) OrderBookImbalance(n int) float64 {
	bidQty := b.TotalDepthAtLevels(Buy, n)
	askQty := b.TotalDepthAtLevels(Sell, n)
	denom := bidQty + askQty
	if denom == 0 {
		return 0
	}
	return (float64(bidQty) - float64(askQty)) / float64(denom)
}

// BuySellPressure is OrderBookImbalance rescaled to [0, 1], where 0.5 is
// balanced.
func (b *OrderBook[Extra]) BuySellPressure(n int) float64 {
	return (b.OrderBookImbalance(n) + 1) / 2
}

// IsThinBook reports whether total visible depth over n levels on either
// side falls below minQty.
func (b *OrderBook[Extra]) IsThinBook(n int, minQty uint64) bool {
	return b.TotalDepthAtLevels(Buy, n) < minQty || b.TotalDepthAtLevels(Sell, n) < minQty
}

// QueueAheadAtPrice returns the total visible quantity resting ahead of
// order id at its price level (zero if the order is the head of queue).
func (b *OrderBook[Extra]) QueueAheadAtPrice(id OrderID) (uint64, error) {
	loc, ok := b.index.get(id)
	if !ok {
		return 0, newFieldError(id, "id", "not resting on this book", ErrOrderNotFound)
	}
	lvl, ok := b.sideBook(loc.Side).get(loc.Price)
	if !ok {
		return 0, newFieldError(id, "id", "not resting on this book", ErrOrderNotFound)
	}
	var ahead uint64
	for _, o := range lvl.orders {
		if o.ID == id {
			return ahead, nil
		}
		ahead += o.Quantity
	}
	return 0, newFieldError(id, "id", "not resting on this book", ErrOrderNotFound)
}

// PriceNTicksInside returns the price n ticks better than the current
// best on side, given a fixed tick size.
func (b *OrderBook[Extra]) PriceNTicksInside(side Side, n int, tick uint64) (uint64, bool) {
	best, ok := b.best(side)
	if !ok {
		return 0, false
	}
	delta := uint64(n) * tick
	if side == Buy {
		return best + delta, true
	}
	if delta > best {
		return 0, true
	}
	return best - delta, true
}

// LevelsWithCumulativeDepth walks side best-first, calling fn with each
// level's price, visible quantity, and cumulative visible quantity
// including this level. It is lazy (each level's snapshot is taken only
// as fn is invoked), restartable (each call re-walks from the best
// level), and finite (bounded by the number of resting levels). Like the
// rest of the book's reads, the overall walk is only weakly consistent:
// a level not yet visited may be mutated concurrently.
func (b *OrderBook[Extra]) LevelsWithCumulativeDepth(side Side, fn func(LevelInfo) bool) {
	var cum uint64
	b.sideBook(side).ascend(func(lvl *priceLevel[Extra]) bool {
		cum += lvl.visibleQty
		return fn(LevelInfo{Price: lvl.Price, Quantity: lvl.visibleQty, CumulativeDepth: cum})
	})
}

// LevelsUntilDepth is LevelsWithCumulativeDepth bounded to stop once
// cumulative depth reaches targetDepth (the level that crosses the
// target is still emitted).
func (b *OrderBook[Extra]) LevelsUntilDepth(side Side, targetDepth uint64, fn func(LevelInfo) bool) {
	b.LevelsWithCumulativeDepth(side, func(li LevelInfo) bool {
		if !fn(li) {
			return false
		}
		return li.CumulativeDepth < targetDepth
	})
}

// LevelsInRange is LevelsWithCumulativeDepth restricted to levels whose
// price falls within [lo, hi] inclusive.
func (b *OrderBook[Extra]) LevelsInRange(side Side, lo, hi uint64, fn func(LevelInfo) bool) {
	if lo > hi {
		lo, hi = hi, lo
	}
	b.LevelsWithCumulativeDepth(side, func(li LevelInfo) bool {
		if li.Price < lo || li.Price > hi {
			return true
		}
		return fn(li)
	})
}

// FindLevel returns the first level best-first on side satisfying
// predicate.
func (b *OrderBook[Extra]) FindLevel(side Side, predicate func(LevelInfo) bool) (LevelInfo, bool) {
	var found LevelInfo
	ok := false
	b.LevelsWithCumulativeDepth(side, func(li LevelInfo) bool {
		if predicate(li) {
			found = li
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

// PriceForQueuePosition returns the price of the level holding the order
// at the given zero-based position when every resting order on side is
// counted best-first, level by level, in FIFO order. Position 0 is the
// very next order to be matched.
func (b *OrderBook[Extra]) PriceForQueuePosition(side Side, position int) (uint64, bool) {
	if position < 0 {
		return 0, false
	}
	var price uint64
	found := false
	count := 0
	b.sideBook(side).ascend(func(lvl *priceLevel[Extra]) bool {
		n := lvl.orderCount()
		if position < count+n {
			price = lvl.Price
			found = true
			return false
		}
		count += n
		return true
	})
	return price, found
}

// PriceAtDepthAdjusted is PriceAtDepth shifted one tick past the level
// where cumulative depth first reaches targetQty, i.e. the price a new
// resting order would need in order to queue entirely behind that depth
// rather than within it.
func (b *OrderBook[Extra]) PriceAtDepthAdjusted(side Side, targetQty uint64, tick uint64) (uint64, bool) {
	price, ok := b.PriceAtDepth(side, targetQty)
	if !ok {
		return 0, false
	}
	if side == Buy {
		if price < tick {
			return 0, true
		}
		return price - tick, true
	}
	return price + tick, true
}
