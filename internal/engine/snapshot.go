package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// snapshotVersion is the wire format version stamped on every package;
// restore rejects anything else outright.
const snapshotVersion = 1

// PriceLevelSnapshot captures one resting price level in FIFO order.
type PriceLevelSnapshot[Extra any] struct {
	Price  uint64          `json:"price"`
	Orders []*Order[Extra] `json:"orders"`
}

// VisibleQty sums the visible quantity of every order at this level.
func (ls PriceLevelSnapshot[Extra]) VisibleQty() uint64 {
	var total uint64
	for _, o := range ls.Orders {
		total += o.Quantity
	}
	return total
}

// OrderBookSnapshot is a point-in-time capture of a book's resting
// orders, to the requested depth on each side (spec.md §3, §4.5).
type OrderBookSnapshot[Extra any] struct {
	Symbol    string                      `json:"symbol"`
	Timestamp time.Time                   `json:"timestamp"`
	Bids      []PriceLevelSnapshot[Extra] `json:"bids"`
	Asks      []PriceLevelSnapshot[Extra] `json:"asks"`
}

// BestBid returns the best (first) bid price captured in the snapshot.
func (s OrderBookSnapshot[Extra]) BestBid() (uint64, bool) {
	if len(s.Bids) == 0 {
		return 0, false
	}
	return s.Bids[0].Price, true
}

// BestAsk returns the best (first) ask price captured in the snapshot.
func (s OrderBookSnapshot[Extra]) BestAsk() (uint64, bool) {
	if len(s.Asks) == 0 {
		return 0, false
	}
	return s.Asks[0].Price, true
}

func (s OrderBookSnapshot[Extra]) MidPrice() (float64, bool) {
	bid, okb := s.BestBid()
	ask, oka := s.BestAsk()
	if !okb || !oka {
		return 0, false
	}
	return float64(bid+ask) / 2, true
}

func (s OrderBookSnapshot[Extra]) Spread() (uint64, bool) {
	bid, okb := s.BestBid()
	ask, oka := s.BestAsk()
	if !okb || !oka || ask < bid {
		return 0, okb && oka
	}
	return ask - bid, true
}

func (s OrderBookSnapshot[Extra]) TotalBidVolume() uint64 { return totalVolume(s.Bids) }
func (s OrderBookSnapshot[Extra]) TotalAskVolume() uint64 { return totalVolume(s.Asks) }

func (s OrderBookSnapshot[Extra]) TotalBidValue() float64 { return totalValue(s.Bids) }
func (s OrderBookSnapshot[Extra]) TotalAskValue() float64 { return totalValue(s.Asks) }

func totalVolume[Extra any](levels []PriceLevelSnapshot[Extra]) uint64 {
	var total uint64
	for _, l := range levels {
		total += l.VisibleQty()
	}
	return total
}

func totalValue[Extra any](levels []PriceLevelSnapshot[Extra]) float64 {
	var total float64
	for _, l := range levels {
		total += float64(l.Price) * float64(l.VisibleQty())
	}
	return total
}

// OrderBookSnapshotPackage wraps a snapshot with a version tag and an
// integrity checksum computed over the canonical JSON serialization of
// the snapshot subtree.
type OrderBookSnapshotPackage[Extra any] struct {
	Version  int                      `json:"version"`
	Snapshot OrderBookSnapshot[Extra] `json:"snapshot"`
	Checksum string                   `json:"checksum"`
}

func checksumOf(snap any) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", ErrSerialization
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// CreateSnapshot captures up to depth price levels per side (depth <= 0
// means every resting level).
func (b *OrderBook[Extra]) CreateSnapshot(depth int) OrderBookSnapshot[Extra] {
	collect := func(pls *priceLevels[Extra]) []PriceLevelSnapshot[Extra] {
		var out []PriceLevelSnapshot[Extra]
		count := 0
		pls.ascend(func(lvl *priceLevel[Extra]) bool {
			if depth > 0 && count >= depth {
				return false
			}
			out = append(out, PriceLevelSnapshot[Extra]{
				Price:  lvl.Price,
				Orders: lvl.snapshotOrders(),
			})
			count++
			return true
		})
		return out
	}
	return OrderBookSnapshot[Extra]{
		Symbol:    b.symbol,
		Timestamp: b.clock.Now(),
		Bids:      collect(b.bids),
		Asks:      collect(b.asks),
	}
}

// CreateSnapshotPackage wraps CreateSnapshot with its integrity checksum.
func (b *OrderBook[Extra]) CreateSnapshotPackage(depth int) (OrderBookSnapshotPackage[Extra], error) {
	snap := b.CreateSnapshot(depth)
	checksum, err := checksumOf(snap)
	if err != nil {
		return OrderBookSnapshotPackage[Extra]{}, err
	}
	return OrderBookSnapshotPackage[Extra]{
		Version:  snapshotVersion,
		Snapshot: snap,
		Checksum: checksum,
	}, nil
}

// SnapshotToJSON is CreateSnapshotPackage followed by JSON encoding.
func (b *OrderBook[Extra]) SnapshotToJSON(depth int) ([]byte, error) {
	pkg, err := b.CreateSnapshotPackage(depth)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(pkg)
	if err != nil {
		return nil, ErrSerialization
	}
	return data, nil
}

// validate recomputes the package's checksum and compares it against the
// stored value, returning a *ChecksumMismatchError on mismatch.
func (pkg *OrderBookSnapshotPackage[Extra]) validate() error {
	if pkg.Version != snapshotVersion {
		return ErrDeserialization
	}
	actual, err := checksumOf(pkg.Snapshot)
	if err != nil {
		return err
	}
	if actual != pkg.Checksum {
		return &ChecksumMismatchError{Expected: pkg.Checksum, Actual: actual}
	}
	return nil
}

// RestoreFromSnapshot replaces the book's resting state with the
// snapshot's contents. The snapshot's symbol must match the book's own;
// a mismatch leaves the book untouched and returns ErrInvalidOperation.
// Any existing resting orders, the location index, and the best-price
// cache are discarded first.
func (b *OrderBook[Extra]) RestoreFromSnapshot(snap OrderBookSnapshot[Extra]) error {
	if snap.Symbol != b.symbol {
		return newFieldError(OrderID{}, "symbol", "snapshot symbol does not match this book", ErrInvalidOperation)
	}

	b.bids = newPriceLevels[Extra](Buy)
	b.asks = newPriceLevels[Extra](Sell)
	b.index = newLocationIndex()
	b.cache.invalidateBoth()

	load := func(pls *priceLevels[Extra], side Side, levels []PriceLevelSnapshot[Extra]) {
		for _, ls := range levels {
			lvl := pls.getOrCreate(ls.Price)
			for _, o := range ls.Orders {
				cp := o.clone()
				lvl.append(cp)
				b.index.set(cp.ID, orderLocation{Price: ls.Price, Side: side})
			}
		}
	}
	load(b.bids, Buy, snap.Bids)
	load(b.asks, Sell, snap.Asks)
	return nil
}

// RestoreFromSnapshotPackage validates the package's checksum before
// restoring; a checksum mismatch leaves the book untouched.
func (b *OrderBook[Extra]) RestoreFromSnapshotPackage(pkg OrderBookSnapshotPackage[Extra]) error {
	if err := pkg.validate(); err != nil {
		return err
	}
	return b.RestoreFromSnapshot(pkg.Snapshot)
}

// RestoreFromJSON decodes and validates a snapshot package before
// restoring.
func (b *OrderBook[Extra]) RestoreFromJSON(data []byte) error {
	var pkg OrderBookSnapshotPackage[Extra]
	if err := json.Unmarshal(data, &pkg); err != nil {
		return ErrDeserialization
	}
	return b.RestoreFromSnapshotPackage(pkg)
}
