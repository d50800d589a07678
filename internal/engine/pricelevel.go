package engine

// priceLevel holds every resting order at a single price, in strict
// time-priority (FIFO) order. It mirrors the teacher's PriceLevel
// (internal/engine/orderbook.go) generalized from a float64 price and a
// plain slice to a uint64 price and the replenishment rules spec.md §4.1
// adds for Iceberg/Reserve orders.
type priceLevel[Extra any] struct {
	Price      uint64
	Side       Side
	orders     []*Order[Extra]
	visibleQty uint64
	totalQty   uint64
}

func newPriceLevel[Extra any](side Side, price uint64) *priceLevel[Extra] {
	return &priceLevel[Extra]{Price: price, Side: side}
}

func (pl *priceLevel[Extra]) isEmpty() bool { return len(pl.orders) == 0 }

func (pl *priceLevel[Extra]) orderCount() int { return len(pl.orders) }

// append adds an order to the tail of the queue, losing time priority to
// anything already resting (spec.md §4.1 FIFO invariant).
func (pl *priceLevel[Extra]) append(o *Order[Extra]) {
	pl.orders = append(pl.orders, o)
	pl.visibleQty += o.Quantity
	pl.totalQty += o.totalRemaining()
}

// removeAt removes the order at index i, preserving FIFO order of the rest.
func (pl *priceLevel[Extra]) removeAt(i int) *Order[Extra] {
	o := pl.orders[i]
	pl.orders = append(pl.orders[:i], pl.orders[i+1:]...)
	pl.visibleQty -= o.Quantity
	pl.totalQty -= o.totalRemaining()
	return o
}

// removeByID removes and returns the order with the given ID, if present.
func (pl *priceLevel[Extra]) removeByID(id OrderID) (*Order[Extra], bool) {
	for i, o := range pl.orders {
		if o.ID == id {
			return pl.removeAt(i), true
		}
	}
	return nil, false
}

func (pl *priceLevel[Extra]) find(id OrderID) (*Order[Extra], bool) {
	for _, o := range pl.orders {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

// head returns the order at the front of the queue without removing it.
func (pl *priceLevel[Extra]) head() (*Order[Extra], bool) {
	if len(pl.orders) == 0 {
		return nil, false
	}
	return pl.orders[0], true
}

// fillHead reduces the head order's visible quantity by qty, replenishing
// from its hidden reserve if it is an Iceberg/Reserve order that has been
// fully exhausted and still has hidden quantity. Replenishment re-queues
// the order at the tail, losing time priority, per the pinned timing
// decision in SPEC_FULL.md §E.2: it happens after the current transaction
// against the head closes, before the next transaction is attempted
// against this level.
//
// Returns the order removed from the queue when it is fully consumed and
// not replenished, or nil if the head order still has visible quantity
// remaining or was replenished and moved to the tail (it is still resting).
func (pl *priceLevel[Extra]) fillHead(qty uint64) (removedFromFront *Order[Extra]) {
	head := pl.orders[0]
	head.Quantity -= qty
	pl.visibleQty -= qty
	pl.totalQty -= qty

	if head.Quantity > 0 {
		return nil
	}

	removedFromFront = pl.removeAt(0)

	if replenishable(head) && head.HiddenQuantity > 0 {
		amount := head.ReplenishAmount
		if amount == 0 || amount > head.HiddenQuantity {
			amount = head.HiddenQuantity
		}
		head.Quantity = amount
		head.HiddenQuantity -= amount
		head.Status = StatusPartiallyFilled
		pl.append(head)
		return nil
	}

	head.Status = StatusFilled
	return removedFromFront
}

func replenishable(o *Order[Extra]) bool {
	switch o.Kind {
	case KindIceberg:
		return true
	case KindReserve:
		return o.AutoReplenish
	default:
		return false
	}
}

// snapshotOrders returns a defensive copy of the resting orders, oldest
// first, for use by snapshot/restore and read-only introspection.
func (pl *priceLevel[Extra]) snapshotOrders() []*Order[Extra] {
	out := make([]*Order[Extra], len(pl.orders))
	for i, o := range pl.orders {
		out[i] = o.clone()
	}
	return out
}
