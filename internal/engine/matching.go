package engine

// matchOrder walks the opposite side of the book best-price-first,
// consuming resting orders in FIFO order at each level, until the taker
// is exhausted, the book runs out of crossable liquidity, or the taker's
// limit price (if any) no longer crosses. It mirrors the teacher's
// OrderBook.Match loop (internal/engine/orderbook.go), generalized to
// uint64 prices, self-trade prevention, and iceberg replenishment.
//
// limitPrice == nil means a market order: any price crosses.
func (b *OrderBook[Extra]) matchOrder(taker *Order[Extra], limitPrice *uint64) MatchResult {
	opposite := b.sideBook(taker.Side.Opposite())
	result := emptyMatchResult(taker.remainingVisible())

	for taker.remainingVisible() > 0 {
		lvl, ok := opposite.best()
		if !ok {
			break
		}
		if limitPrice != nil && !crosses(taker.Side, *limitPrice, lvl.Price) {
			break
		}

		drained := false
		for taker.remainingVisible() > 0 {
			head, ok := lvl.head()
			if !ok {
				drained = true
				break
			}

			marketClose, hasMarketClose := b.marketCloseTime()
			if head.expiredAt(b.clock.Now(), marketClose, hasMarketClose) {
				lvl.removeByID(head.ID)
				b.index.delete(head.ID)
				head.Status = StatusExpired
				continue
			}

			if b.selfTradePolicy.Prevent(head.Owner, taker.Owner) {
				lvl.removeByID(head.ID)
				b.index.delete(head.ID)
				head.Status = StatusCancelled
				continue
			}

			fillQty := min(taker.remainingVisible(), head.remainingVisible())
			txn := Transaction{
				MakerID:       head.ID,
				TakerID:       taker.ID,
				Price:         lvl.Price,
				Quantity:      fillQty,
				TransactionID: b.txnGen.Next(),
				Timestamp:     b.clock.Now(),
			}
			result.add(txn)

			taker.Quantity -= fillQty
			removed := lvl.fillHead(fillQty)
			if removed != nil {
				b.index.delete(removed.ID)
			} else if head.Status != StatusFilled {
				head.Status = StatusPartiallyFilled
			}

			b.lastTradePrice.Store(lvl.Price)
			b.hasTraded.Store(true)

			if lvl.isEmpty() {
				drained = true
				break
			}
		}

		if drained {
			opposite.removeIfEmpty(lvl)
			b.cache.invalidate(taker.Side.Opposite())
		}
	}

	result.RemainingQuantity = taker.remainingVisible()
	result.IsComplete = result.RemainingQuantity == 0
	return result
}

// crosses reports whether a resting level at restPrice is marketable
// against a taker limit of limitPrice on the given side.
func crosses(takerSide Side, limitPrice, restPrice uint64) bool {
	if takerSide == Buy {
		return limitPrice >= restPrice
	}
	return limitPrice <= restPrice
}

// wouldFullyFill is the FOK dry-run check: it reports whether the book
// currently holds enough crossable visible liquidity to fill qty in full,
// without mutating any state (spec.md §4.4 FOK semantics).
func (b *OrderBook[Extra]) wouldFullyFill(side Side, limitPrice *uint64, qty uint64) bool {
	opposite := b.sideBook(side.Opposite())
	var available uint64
	opposite.ascend(func(lvl *priceLevel[Extra]) bool {
		if limitPrice != nil && !crosses(side, *limitPrice, lvl.Price) {
			return false
		}
		available += lvl.visibleQty
		return available < qty
	})
	return available >= qty
}

func min(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
