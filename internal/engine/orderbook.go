package engine

import (
	"sync"
	"sync/atomic"
	"time"
)

// OrderBook is a single-symbol limit order book. It generalizes the
// teacher's OrderBook (internal/engine/orderbook.go): prices move from
// float64 to uint64 ticks, the single *btree.BTreeG[*PriceLevel] becomes
// one priceLevels per side, and the order payload becomes generic so
// callers can attach their own bookkeeping without the engine caring.
type OrderBook[Extra any] struct {
	symbol string

	bids  *priceLevels[Extra]
	asks  *priceLevels[Extra]
	cache priceLevelCache
	index *locationIndex

	txnGen          *TxnIDGenerator
	clock           Clock
	selfTradePolicy SelfTradePolicy

	lastTradePrice atomic.Uint64
	hasTraded      atomic.Bool

	marketClose    atomic.Int64
	hasMarketClose atomic.Bool

	listenerMu         sync.RWMutex
	tradeListener      TradeListener
	priceLevelListener PriceLevelListener

	stopMu       sync.Mutex
	pendingStops []*Order[Extra]
}

// Option configures an OrderBook at construction time.
type Option[Extra any] func(*OrderBook[Extra])

func WithClock[Extra any](c Clock) Option[Extra] {
	return func(b *OrderBook[Extra]) { b.clock = c }
}

func WithSelfTradePolicy[Extra any](p SelfTradePolicy) Option[Extra] {
	return func(b *OrderBook[Extra]) { b.selfTradePolicy = p }
}

func WithTradeListener[Extra any](l TradeListener) Option[Extra] {
	return func(b *OrderBook[Extra]) { b.tradeListener = l }
}

// NewOrderBook constructs an empty book for symbol.
func NewOrderBook[Extra any](symbol string, opts ...Option[Extra]) *OrderBook[Extra] {
	b := &OrderBook[Extra]{
		symbol:          symbol,
		bids:            newPriceLevels[Extra](Buy),
		asks:            newPriceLevels[Extra](Sell),
		index:           newLocationIndex(),
		txnGen:          NewTxnIDGenerator(),
		clock:           SystemClock{},
		selfTradePolicy: NoSelfTradePrevention{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *OrderBook[Extra]) Symbol() string { return b.symbol }

func (b *OrderBook[Extra]) sideBook(side Side) *priceLevels[Extra] {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

// SetTradeListener installs the callback invoked synchronously after any
// operation that produces at least one transaction.
func (b *OrderBook[Extra]) SetTradeListener(l TradeListener) {
	b.listenerMu.Lock()
	b.tradeListener = l
	b.listenerMu.Unlock()
}

func (b *OrderBook[Extra]) RemoveTradeListener() {
	b.listenerMu.Lock()
	b.tradeListener = nil
	b.listenerMu.Unlock()
}

func (b *OrderBook[Extra]) SetPriceLevelListener(l PriceLevelListener) {
	b.listenerMu.Lock()
	b.priceLevelListener = l
	b.listenerMu.Unlock()
}

func (b *OrderBook[Extra]) RemovePriceLevelListener() {
	b.listenerMu.Lock()
	b.priceLevelListener = nil
	b.listenerMu.Unlock()
}

func (b *OrderBook[Extra]) notifyTrade(result MatchResult) {
	if len(result.Transactions) == 0 {
		return
	}
	b.listenerMu.RLock()
	l := b.tradeListener
	b.listenerMu.RUnlock()
	if l == nil {
		return
	}
	l(&TradeResult{Symbol: b.symbol, MatchResult: result})
}

// SetMarketCloseTimestamp arms DAY orders' expiry.
func (b *OrderBook[Extra]) SetMarketCloseTimestamp(t time.Time) {
	b.marketClose.Store(t.UnixNano())
	b.hasMarketClose.Store(true)
}

func (b *OrderBook[Extra]) ClearMarketCloseTimestamp() {
	b.hasMarketClose.Store(false)
}

func (b *OrderBook[Extra]) marketCloseTime() (time.Time, bool) {
	if !b.hasMarketClose.Load() {
		return time.Time{}, false
	}
	return time.Unix(0, b.marketClose.Load()), true
}

// checkNotExpired rejects an order whose GTD/DAY expiry has already
// lapsed as of now, per spec.md §4.3 ("expired orders are rejected at
// insertion and skipped at match time").
func (b *OrderBook[Extra]) checkNotExpired(o *Order[Extra]) error {
	marketClose, hasMarketClose := b.marketCloseTime()
	if !o.expiredAt(b.clock.Now(), marketClose, hasMarketClose) {
		return nil
	}
	o.Status = StatusExpired
	return newFieldError(o.ID, "time_in_force", "order already expired", ErrExpired)
}

func validateNewOrder[Extra any](o *Order[Extra], isMarket bool) error {
	if o.Quantity == 0 && o.HiddenQuantity == 0 {
		return newFieldError(o.ID, "quantity", "must be greater than zero", ErrInvalidQuantity)
	}
	if !isMarket && o.Price == 0 {
		return newFieldError(o.ID, "price", "must be greater than zero", ErrInvalidPrice)
	}
	if o.TimeInForce == GTD && o.GoodTilDate.IsZero() {
		return newFieldError(o.ID, "good_til_date", "required when time_in_force is GTD", ErrInvalidTimeInForce)
	}
	if isMarket && (o.TimeInForce == GTC || o.TimeInForce == GTD || o.TimeInForce == DAY) {
		return newFieldError(o.ID, "time_in_force", "market orders must be IOC or FOK", ErrInvalidTimeInForce)
	}
	return nil
}

// AddLimitOrder submits a resting-capable order at a fixed price. Standard
// GTC/GTD/DAY orders rest any unfilled remainder; IOC discards it; FOK
// requires the whole order be fillable before any transaction is applied;
// PostOnly is rejected outright if it would cross.
func (b *OrderBook[Extra]) AddLimitOrder(o *Order[Extra]) (MatchResult, error) {
	if err := validateNewOrder(o, false); err != nil {
		return MatchResult{}, err
	}
	if err := b.checkNotExpired(o); err != nil {
		return MatchResult{}, err
	}
	if _, exists := b.index.get(o.ID); exists {
		return MatchResult{}, newFieldError(o.ID, "id", "already present on this book", ErrDuplicateOrderID)
	}
	if o.Kind == KindTrailingStop {
		return b.addTrailingStop(o)
	}

	price := o.Price
	if o.Kind == KindPegged {
		price = b.resolvePegPrice(o)
		o.Price = price
	}

	if o.Kind == KindPostOnly {
		opposite := b.sideBook(o.Side.Opposite())
		if lvl, ok := opposite.best(); ok && crosses(o.Side, price, lvl.Price) {
			return MatchResult{}, newFieldError(o.ID, "price", "would cross the book", ErrWouldCross)
		}
	}

	if o.TimeInForce == FOK {
		if !b.wouldFullyFill(o.Side, &price, o.remainingVisible()) {
			return MatchResult{}, newFieldError(o.ID, "quantity", "cannot be fully filled", ErrCannotBeFullyFilled)
		}
	}

	result := b.matchOrder(o, &price)

	switch {
	case o.remainingVisible() == 0:
		o.Status = StatusFilled
	case o.TimeInForce == IOC || o.TimeInForce == FOK:
		o.Status = StatusCancelled
	default:
		o.Status = StatusPartiallyFilled
		if len(result.Transactions) == 0 {
			o.Status = StatusResting
		}
		lvl := b.sideBook(o.Side).getOrCreate(price)
		lvl.append(o)
		b.index.set(o.ID, orderLocation{Price: price, Side: o.Side})
		b.cache.invalidate(o.Side)
	}

	b.notifyTrade(result)
	b.checkStopTriggers()
	return result, nil
}

// SubmitMarketOrder sweeps the opposite side for qty without a limit
// price. IOC/FOK control what happens to any unfilled residual; market
// orders never rest.
func (b *OrderBook[Extra]) SubmitMarketOrder(o *Order[Extra]) (MatchResult, error) {
	if err := validateNewOrder(o, true); err != nil {
		return MatchResult{}, err
	}
	if o.TimeInForce == FOK {
		if !b.wouldFullyFill(o.Side, nil, o.remainingVisible()) {
			return MatchResult{}, newFieldError(o.ID, "quantity", "cannot be fully filled", ErrCannotBeFullyFilled)
		}
	}
	result := b.matchOrder(o, nil)
	if o.remainingVisible() == 0 {
		o.Status = StatusFilled
	} else {
		o.Status = StatusCancelled
	}
	b.notifyTrade(result)
	b.checkStopTriggers()
	return result, nil
}

// CancelOrder removes a resting order from the book.
func (b *OrderBook[Extra]) CancelOrder(id OrderID) (*Order[Extra], error) {
	loc, ok := b.index.get(id)
	if !ok {
		if o, ok := b.removeStop(id); ok {
			return o, nil
		}
		return nil, newFieldError(id, "id", "not resting on this book", ErrOrderNotFound)
	}
	side := b.sideBook(loc.Side)
	lvl, ok := side.get(loc.Price)
	if !ok {
		b.index.delete(id)
		return nil, newFieldError(id, "id", "not resting on this book", ErrOrderNotFound)
	}
	o, ok := lvl.removeByID(id)
	if !ok {
		b.index.delete(id)
		return nil, newFieldError(id, "id", "not resting on this book", ErrOrderNotFound)
	}
	b.index.delete(id)
	side.removeIfEmpty(lvl)
	b.cache.invalidate(loc.Side)
	o.Status = StatusCancelled
	return o, nil
}

// UpdateOrder replaces a resting order's price and/or quantity. Per
// standard book semantics this is cancel-then-add-at-tail: the order
// loses time priority, matching the teacher's treatment of any mutation
// to a resting order as a new insertion.
func (b *OrderBook[Extra]) UpdateOrder(id OrderID, newPrice, newQuantity uint64) (*Order[Extra], MatchResult, error) {
	existing, err := b.CancelOrder(id)
	if err != nil {
		return nil, MatchResult{}, err
	}
	existing.Price = newPrice
	existing.Quantity = newQuantity
	existing.TotalQuantity = newQuantity + existing.HiddenQuantity
	existing.Status = StatusResting
	result, err := b.AddLimitOrder(existing)
	return existing, result, err
}

// GetOrder returns a snapshot copy of a resting order.
func (b *OrderBook[Extra]) GetOrder(id OrderID) (*Order[Extra], error) {
	loc, ok := b.index.get(id)
	if !ok {
		return nil, newFieldError(id, "id", "not resting on this book", ErrOrderNotFound)
	}
	lvl, ok := b.sideBook(loc.Side).get(loc.Price)
	if !ok {
		return nil, newFieldError(id, "id", "not resting on this book", ErrOrderNotFound)
	}
	o, ok := lvl.find(id)
	if !ok {
		return nil, newFieldError(id, "id", "not resting on this book", ErrOrderNotFound)
	}
	return o.clone(), nil
}

func (b *OrderBook[Extra]) GetOrdersAtPrice(side Side, price uint64) []*Order[Extra] {
	lvl, ok := b.sideBook(side).get(price)
	if !ok {
		return nil
	}
	return lvl.snapshotOrders()
}

func (b *OrderBook[Extra]) GetAllOrders() []*Order[Extra] {
	var out []*Order[Extra]
	collect := func(pls *priceLevels[Extra]) {
		pls.ascend(func(lvl *priceLevel[Extra]) bool {
			out = append(out, lvl.snapshotOrders()...)
			return true
		})
	}
	collect(b.bids)
	collect(b.asks)
	return out
}

func (b *OrderBook[Extra]) BestBid() (uint64, bool) { return b.best(Buy) }
func (b *OrderBook[Extra]) BestAsk() (uint64, bool) { return b.best(Sell) }

func (b *OrderBook[Extra]) best(side Side) (uint64, bool) {
	if price, ok := b.cache.get(side); ok {
		return price, true
	}
	lvl, ok := b.sideBook(side).best()
	if !ok {
		return 0, false
	}
	b.cache.set(side, lvl.Price)
	return lvl.Price, true
}

// Spread returns BestAsk - BestBid, saturating at zero if the book is
// crossed or one-sided (spec.md §4.3).
func (b *OrderBook[Extra]) Spread() (uint64, bool) {
	bid, okb := b.BestBid()
	ask, oka := b.BestAsk()
	if !okb || !oka {
		return 0, false
	}
	if ask < bid {
		return 0, true
	}
	return ask - bid, true
}

func (b *OrderBook[Extra]) MidPrice() (float64, bool) {
	bid, okb := b.BestBid()
	ask, oka := b.BestAsk()
	if !okb || !oka {
		return 0, false
	}
	return float64(bid+ask) / 2, true
}

// MicroPrice is the quantity-weighted mid, pinned as
// (bestBid*askQty + bestAsk*bidQty) / (askQty + bidQty).
func (b *OrderBook[Extra]) MicroPrice() (float64, bool) {
	bidPrice, okb := b.BestBid()
	askPrice, oka := b.BestAsk()
	if !okb || !oka {
		return 0, false
	}
	bidLvl, _ := b.bids.get(bidPrice)
	askLvl, _ := b.asks.get(askPrice)
	if bidLvl == nil || askLvl == nil {
		return 0, false
	}
	bidQty, askQty := bidLvl.visibleQty, askLvl.visibleQty
	denom := bidQty + askQty
	if denom == 0 {
		return 0, false
	}
	return (float64(bidPrice)*float64(askQty) + float64(askPrice)*float64(bidQty)) / float64(denom), true
}

func (b *OrderBook[Extra]) SpreadBps() (float64, bool) {
	spread, ok := b.Spread()
	if !ok {
		return 0, false
	}
	mid, ok := b.MidPrice()
	if !ok || mid == 0 {
		return 0, false
	}
	return float64(spread) / mid * 10000, true
}

func (b *OrderBook[Extra]) LastTradePrice() (uint64, bool) {
	if !b.hasTraded.Load() {
		return 0, false
	}
	return b.lastTradePrice.Load(), true
}

// resolvePegPrice computes a Pegged order's price at insertion time from
// its reference side plus offset; it is not continuously repegged, a
// simplification from the continuous-repeg original noted in DESIGN.md.
func (b *OrderBook[Extra]) resolvePegPrice(o *Order[Extra]) uint64 {
	var ref uint64
	switch o.ReferencePriceType {
	case PegBestBid:
		ref, _ = b.BestBid()
	case PegBestAsk:
		ref, _ = b.BestAsk()
	case PegMidPrice:
		if mid, ok := b.MidPrice(); ok {
			ref = uint64(mid)
		}
	}
	offset := o.ReferencePriceOffset
	if offset < 0 && uint64(-offset) > ref {
		return 0
	}
	return uint64(int64(ref) + offset)
}

func (b *OrderBook[Extra]) addTrailingStop(o *Order[Extra]) (MatchResult, error) {
	last, ok := b.LastTradePrice()
	if !ok {
		last = o.LastReferencePrice
	}
	o.LastReferencePrice = last
	o.Status = StatusResting
	b.stopMu.Lock()
	b.pendingStops = append(b.pendingStops, o)
	b.stopMu.Unlock()
	return MatchResult{}, nil
}

func (b *OrderBook[Extra]) removeStop(id OrderID) (*Order[Extra], bool) {
	b.stopMu.Lock()
	defer b.stopMu.Unlock()
	for i, o := range b.pendingStops {
		if o.ID == id {
			b.pendingStops = append(b.pendingStops[:i], b.pendingStops[i+1:]...)
			o.Status = StatusCancelled
			return o, true
		}
	}
	return nil, false
}

// checkStopTriggers converts any trailing stop whose trigger condition is
// now satisfied into a market order and submits it. Buy stops trigger
// when the last trade rises to or above LastReferencePrice + TrailAmount
// from the lowest price seen since arming; this simplified version
// triggers directly off the current last trade price versus the trail
// distance from the order's own reference, re-arming the reference on
// every favorable move (spec.md §3 TrailingStop semantics).
func (b *OrderBook[Extra]) checkStopTriggers() {
	last, ok := b.LastTradePrice()
	if !ok {
		return
	}
	b.stopMu.Lock()
	var triggered []*Order[Extra]
	remaining := b.pendingStops[:0]
	for _, o := range b.pendingStops {
		if o.Side == Buy {
			if last < o.LastReferencePrice || o.LastReferencePrice == 0 {
				o.LastReferencePrice = last
			}
			if last >= o.LastReferencePrice+o.TrailAmount {
				triggered = append(triggered, o)
				continue
			}
		} else {
			if last > o.LastReferencePrice {
				o.LastReferencePrice = last
			}
			if o.LastReferencePrice > 0 && last+o.TrailAmount <= o.LastReferencePrice {
				triggered = append(triggered, o)
				continue
			}
		}
		remaining = append(remaining, o)
	}
	b.pendingStops = remaining
	b.stopMu.Unlock()

	for _, o := range triggered {
		o.Kind = KindStandard
		o.TimeInForce = IOC
		_, _ = b.SubmitMarketOrder(o)
	}
}
