package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVWAP_AcrossLevels(t *testing.T) {
	book := NewOrderBook[noExtra]("TEST")
	_, err := book.AddLimitOrder(newTestOrder(Sell, 100, 5, GTC))
	require.NoError(t, err)
	_, err = book.AddLimitOrder(newTestOrder(Sell, 102, 5, GTC))
	require.NoError(t, err)

	vwap, filled, complete := book.VWAP(Sell, 8)
	assert.True(t, complete)
	assert.Equal(t, uint64(8), filled)
	// 5@100 + 3@102 = 500 + 306 = 806 / 8 = 100.75
	assert.InDelta(t, 100.75, vwap, 0.0001)
}

func TestVWAP_InsufficientLiquidity(t *testing.T) {
	book := NewOrderBook[noExtra]("TEST")
	_, err := book.AddLimitOrder(newTestOrder(Sell, 100, 5, GTC))
	require.NoError(t, err)

	_, filled, complete := book.VWAP(Sell, 20)
	assert.False(t, complete)
	assert.Equal(t, uint64(5), filled)
}

func TestOrderBookImbalance(t *testing.T) {
	book := NewOrderBook[noExtra]("TEST")
	_, err := book.AddLimitOrder(newTestOrder(Buy, 99, 30, GTC))
	require.NoError(t, err)
	_, err = book.AddLimitOrder(newTestOrder(Sell, 101, 10, GTC))
	require.NoError(t, err)

	imbalance := book.OrderBookImbalance(5)
	assert.InDelta(t, 0.5, imbalance, 0.0001)
}

func TestIsThinBook(t *testing.T) {
	book := NewOrderBook[noExtra]("TEST")
	_, err := book.AddLimitOrder(newTestOrder(Buy, 99, 1, GTC))
	require.NoError(t, err)

	assert.True(t, book.IsThinBook(5, 100))
}

func TestQueueAheadAtPrice(t *testing.T) {
	book := NewOrderBook[noExtra]("TEST")
	first := newTestOrder(Buy, 99, 10, GTC)
	_, err := book.AddLimitOrder(first)
	require.NoError(t, err)
	second := newTestOrder(Buy, 99, 5, GTC)
	_, err = book.AddLimitOrder(second)
	require.NoError(t, err)

	ahead, err := book.QueueAheadAtPrice(second.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), ahead)

	ahead, err = book.QueueAheadAtPrice(first.ID)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), ahead)
}

func TestMarketImpact(t *testing.T) {
	book := NewOrderBook[noExtra]("TEST")
	_, err := book.AddLimitOrder(newTestOrder(Sell, 100, 5, GTC))
	require.NoError(t, err)
	_, err = book.AddLimitOrder(newTestOrder(Sell, 110, 5, GTC))
	require.NoError(t, err)

	impact, ok := book.MarketImpact(Sell, 10)
	require.True(t, ok)
	assert.Equal(t, uint64(100), impact.BestPrice)
	assert.Equal(t, uint64(110), impact.WorstPrice)
	assert.Equal(t, uint64(10), impact.FilledQty)
	assert.Equal(t, 2, impact.LevelsConsumed)
	assert.True(t, impact.FullyFilled)
	assert.Greater(t, impact.AbsoluteSlippage, 0.0)
	assert.Greater(t, impact.SlippageBps, 0.0)

	withBps, ok := book.MarketImpactWithMultiplier(Sell, 10, 100.0)
	require.True(t, ok)
	assert.InDelta(t, impact.SlippageBps/100, withBps.SlippageBps, 0.0001)
}

func TestLevelsWithCumulativeDepth(t *testing.T) {
	book := NewOrderBook[noExtra]("TEST")
	_, err := book.AddLimitOrder(newTestOrder(Buy, 99, 10, GTC))
	require.NoError(t, err)
	_, err = book.AddLimitOrder(newTestOrder(Buy, 98, 5, GTC))
	require.NoError(t, err)

	var cums []uint64
	book.LevelsWithCumulativeDepth(Buy, func(li LevelInfo) bool {
		cums = append(cums, li.CumulativeDepth)
		return true
	})
	assert.Equal(t, []uint64{10, 15}, cums)
}

func TestLevelsUntilDepth(t *testing.T) {
	book := NewOrderBook[noExtra]("TEST")
	_, err := book.AddLimitOrder(newTestOrder(Buy, 99, 10, GTC))
	require.NoError(t, err)
	_, err = book.AddLimitOrder(newTestOrder(Buy, 98, 10, GTC))
	require.NoError(t, err)
	_, err = book.AddLimitOrder(newTestOrder(Buy, 97, 10, GTC))
	require.NoError(t, err)

	var prices []uint64
	book.LevelsUntilDepth(Buy, 15, func(li LevelInfo) bool {
		prices = append(prices, li.Price)
		return true
	})
	assert.Equal(t, []uint64{99, 98}, prices)
}

func TestLevelsInRange(t *testing.T) {
	book := NewOrderBook[noExtra]("TEST")
	_, err := book.AddLimitOrder(newTestOrder(Buy, 99, 10, GTC))
	require.NoError(t, err)
	_, err = book.AddLimitOrder(newTestOrder(Buy, 97, 10, GTC))
	require.NoError(t, err)

	var prices []uint64
	book.LevelsInRange(Buy, 98, 100, func(li LevelInfo) bool {
		prices = append(prices, li.Price)
		return true
	})
	assert.Equal(t, []uint64{99}, prices)
}

func TestFindLevel(t *testing.T) {
	book := NewOrderBook[noExtra]("TEST")
	_, err := book.AddLimitOrder(newTestOrder(Buy, 99, 10, GTC))
	require.NoError(t, err)
	_, err = book.AddLimitOrder(newTestOrder(Buy, 98, 10, GTC))
	require.NoError(t, err)

	lvl, ok := book.FindLevel(Buy, func(li LevelInfo) bool { return li.Price == 98 })
	require.True(t, ok)
	assert.Equal(t, uint64(10), lvl.Quantity)

	_, ok = book.FindLevel(Buy, func(li LevelInfo) bool { return li.Price == 50 })
	assert.False(t, ok)
}

func TestPriceForQueuePosition(t *testing.T) {
	book := NewOrderBook[noExtra]("TEST")
	_, err := book.AddLimitOrder(newTestOrder(Buy, 99, 10, GTC))
	require.NoError(t, err)
	_, err = book.AddLimitOrder(newTestOrder(Buy, 99, 10, GTC))
	require.NoError(t, err)
	_, err = book.AddLimitOrder(newTestOrder(Buy, 98, 10, GTC))
	require.NoError(t, err)

	price, ok := book.PriceForQueuePosition(Buy, 1)
	require.True(t, ok)
	assert.Equal(t, uint64(99), price)

	price, ok = book.PriceForQueuePosition(Buy, 2)
	require.True(t, ok)
	assert.Equal(t, uint64(98), price)

	_, ok = book.PriceForQueuePosition(Buy, 10)
	assert.False(t, ok)
}

func TestPriceAtDepthAdjusted(t *testing.T) {
	book := NewOrderBook[noExtra]("TEST")
	_, err := book.AddLimitOrder(newTestOrder(Buy, 99, 10, GTC))
	require.NoError(t, err)

	price, ok := book.PriceAtDepthAdjusted(Buy, 10, 1)
	require.True(t, ok)
	assert.Equal(t, uint64(98), price)
}
