package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	book := NewOrderBook[noExtra]("TEST")
	_, err := book.AddLimitOrder(newTestOrder(Buy, 99, 10, GTC))
	require.NoError(t, err)
	_, err = book.AddLimitOrder(newTestOrder(Buy, 98, 5, GTC))
	require.NoError(t, err)
	_, err = book.AddLimitOrder(newTestOrder(Sell, 101, 7, GTC))
	require.NoError(t, err)

	pkg, err := book.CreateSnapshotPackage(0)
	require.NoError(t, err)
	assert.Equal(t, 1, pkg.Version)
	assert.NotEmpty(t, pkg.Checksum)

	restored := NewOrderBook[noExtra]("TEST")
	require.NoError(t, restored.RestoreFromSnapshotPackage(pkg))

	assert.Equal(t, "TEST", restored.Symbol())
	bid, ok := restored.BestBid()
	require.True(t, ok)
	assert.Equal(t, uint64(99), bid)
	ask, ok := restored.BestAsk()
	require.True(t, ok)
	assert.Equal(t, uint64(101), ask)

	orders := restored.GetOrdersAtPrice(Buy, 98)
	require.Len(t, orders, 1)
	assert.Equal(t, uint64(5), orders[0].Quantity)
}

func TestSnapshotJSONRoundTrip(t *testing.T) {
	book := NewOrderBook[noExtra]("TEST")
	_, err := book.AddLimitOrder(newTestOrder(Sell, 100, 10, GTC))
	require.NoError(t, err)

	data, err := book.SnapshotToJSON(0)
	require.NoError(t, err)

	restored := NewOrderBook[noExtra]("TEST")
	require.NoError(t, restored.RestoreFromJSON(data))
	ask, ok := restored.BestAsk()
	require.True(t, ok)
	assert.Equal(t, uint64(100), ask)
}

func TestSnapshotChecksumMismatchRejected(t *testing.T) {
	book := NewOrderBook[noExtra]("TEST")
	_, err := book.AddLimitOrder(newTestOrder(Buy, 99, 10, GTC))
	require.NoError(t, err)

	pkg, err := book.CreateSnapshotPackage(0)
	require.NoError(t, err)
	pkg.Checksum = "deadbeef"

	restored := NewOrderBook[noExtra]("TEST")
	err = restored.RestoreFromSnapshotPackage(pkg)
	require.Error(t, err)
	var mismatch *ChecksumMismatchError
	assert.ErrorAs(t, err, &mismatch)

	_, ok := restored.BestBid()
	assert.False(t, ok)
}

func TestSnapshotRestore_RejectsMismatchedSymbol(t *testing.T) {
	book := NewOrderBook[noExtra]("TEST")
	_, err := book.AddLimitOrder(newTestOrder(Buy, 99, 10, GTC))
	require.NoError(t, err)

	snap := book.CreateSnapshot(0)

	other := NewOrderBook[noExtra]("OTHER")
	_, err = other.AddLimitOrder(newTestOrder(Sell, 50, 1, GTC))
	require.NoError(t, err)

	err = other.RestoreFromSnapshot(snap)
	assert.ErrorIs(t, err, ErrInvalidOperation)
	assert.Equal(t, "OTHER", other.Symbol())

	ask, ok := other.BestAsk()
	require.True(t, ok)
	assert.Equal(t, uint64(50), ask)
}

func TestSnapshotDepthTruncation(t *testing.T) {
	book := NewOrderBook[noExtra]("TEST")
	_, err := book.AddLimitOrder(newTestOrder(Buy, 99, 10, GTC))
	require.NoError(t, err)
	_, err = book.AddLimitOrder(newTestOrder(Buy, 98, 10, GTC))
	require.NoError(t, err)
	_, err = book.AddLimitOrder(newTestOrder(Buy, 97, 10, GTC))
	require.NoError(t, err)

	snap := book.CreateSnapshot(2)
	assert.Len(t, snap.Bids, 2)
	assert.Equal(t, uint64(99), snap.Bids[0].Price)
	assert.Equal(t, uint64(98), snap.Bids[1].Price)
}
