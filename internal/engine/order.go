package engine

import "time"

// Order is a tagged variant over the order kinds described in spec.md §3.
// Extra carries an opaque, caller-defined payload; the matching and
// indexing paths never inspect it (spec.md §9, "extra fields" note).
//
// Fields only meaningful for specific Kind values are documented inline;
// the zero value is meaningful (e.g. HiddenQuantity == 0 for a Standard
// order).
type Order[Extra any] struct {
	ID    OrderID
	Kind  OrderKind
	Side  Side
	Price uint64

	// Quantity is the remaining *visible* quantity. For Standard/PostOnly/
	// TrailingStop/Pegged/MarketToLimit orders this is the whole remaining
	// order. For Iceberg/Reserve orders this is the currently displayed
	// slice; HiddenQuantity holds the rest.
	Quantity uint64

	// TotalQuantity is the original requested size (visible + hidden at
	// creation time), retained for reporting and snapshot fidelity.
	TotalQuantity uint64

	// HiddenQuantity is the undisplayed reserve for Iceberg/Reserve orders.
	HiddenQuantity uint64

	TimeInForce TimeInForce
	// GoodTilDate is consulted only when TimeInForce == GTD.
	GoodTilDate time.Time

	Timestamp     time.Time
	ExchTimestamp time.Time
	Owner         string
	Status        OrderStatus

	// TrailingStop fields.
	TrailAmount        uint64
	LastReferencePrice uint64

	// Pegged fields.
	ReferencePriceOffset int64
	ReferencePriceType   PegReferenceType

	// Reserve fields. Iceberg orders always auto-replenish (AutoReplenish
	// is consulted only for Reserve orders). Both kinds refill by
	// ReplenishAmount, or by the whole remaining HiddenQuantity when
	// ReplenishAmount is zero. ReplenishThreshold is not consulted by
	// matching: a refill happens only once the visible quantity reaches zero.
	ReplenishThreshold uint64
	ReplenishAmount    uint64
	AutoReplenish      bool

	Extra Extra
}

// OwnerTag implements the lookup SelfTradePolicy needs without exposing the
// whole order.
func (o *Order[Extra]) OwnerTag() string { return o.Owner }

// IsTerminal reports whether the order has reached a state from which it
// can no longer be matched or mutated (spec.md §4.3 state machine).
func (o *Order[Extra]) IsTerminal() bool {
	switch o.Status {
	case StatusFilled, StatusCancelled, StatusExpired:
		return true
	default:
		return false
	}
}

// remainingVisible is the quantity immediately available to match.
func (o *Order[Extra]) remainingVisible() uint64 { return o.Quantity }

// totalRemaining is visible + hidden quantity still owned by the order.
func (o *Order[Extra]) totalRemaining() uint64 { return o.Quantity + o.HiddenQuantity }

// expiredAt reports whether the order's TIF has lapsed as of "now".
func (o *Order[Extra]) expiredAt(now time.Time, marketClose time.Time, hasMarketClose bool) bool {
	switch o.TimeInForce {
	case GTD:
		return !o.GoodTilDate.IsZero() && !now.Before(o.GoodTilDate)
	case DAY:
		return hasMarketClose && !now.Before(marketClose)
	default:
		return false
	}
}

// clone returns a shallow copy suitable for snapshotting: safe to read
// concurrently with further mutation of the original since Extra is
// expected to be a value type or itself immutable.
func (o *Order[Extra]) clone() *Order[Extra] {
	cp := *o
	return &cp
}
