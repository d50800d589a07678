package engine

import "time"

// Transaction records a single maker/taker fill.
type Transaction struct {
	MakerID       OrderID
	TakerID       OrderID
	Price         uint64
	Quantity      uint64
	TransactionID TransactionID
	Timestamp     time.Time
}

// MatchResult aggregates every transaction produced by one book operation.
type MatchResult struct {
	Transactions      []Transaction
	ExecutedQuantity  uint64
	RemainingQuantity uint64
	IsComplete        bool
}

func emptyMatchResult(remaining uint64) MatchResult {
	return MatchResult{RemainingQuantity: remaining}
}

// add records one fill into the aggregate. ExecutedQuantity is a plain
// uint64 sum; every fill is taken out of the taker's own remaining
// quantity, so the total never exceeds the taker's size and cannot wrap.
func (m *MatchResult) add(txn Transaction) {
	m.Transactions = append(m.Transactions, txn)
	m.ExecutedQuantity += txn.Quantity
}

// TradeResult pairs a MatchResult with the symbol it occurred on, as
// passed synchronously to a book's trade listener.
type TradeResult struct {
	Symbol      string
	MatchResult MatchResult
}

// TradeEvent is the BookManager's timestamped, channel-routed form of a
// TradeResult (spec.md §3).
type TradeEvent struct {
	Symbol      string
	MatchResult MatchResult
	TimestampMs uint64
}

// TradeListener is invoked synchronously, on the submitter's goroutine,
// whenever an operation produces at least one transaction. Per spec.md §9
// this is modeled as a plain function value rather than an interface;
// implementations must be safe to call from any goroutine since a
// listener may be shared across books.
type TradeListener func(*TradeResult)

// PriceLevelListener is an optional secondary hook describing a price
// level's aggregate state. OrderBook.SetPriceLevelListener stores it and
// RemovePriceLevelListener clears it; the book does not invoke it when a
// level is created, drained, or removed.
type PriceLevelListener func(side Side, price uint64, visibleQty uint64, orderCount uint64, removed bool)
