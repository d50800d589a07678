package manager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenrir-labs/lob/internal/engine"
)

type noExtra struct{}

func TestAddBook_RoutesTradeEvents(t *testing.T) {
	m := New[noExtra]()
	events := make(chan engine.TradeEvent, 10)
	m.StartTradeProcessor(func(e engine.TradeEvent) { events <- e })
	defer m.Stop()

	book, err := m.AddBook("BTC-USD")
	require.NoError(t, err)

	maker := &engine.Order[noExtra]{ID: engine.NewOrderID(), Kind: engine.KindStandard, Side: engine.Sell, Price: 100, Quantity: 10, TotalQuantity: 10, TimeInForce: engine.GTC}
	_, err = book.AddLimitOrder(maker)
	require.NoError(t, err)

	taker := &engine.Order[noExtra]{ID: engine.NewOrderID(), Kind: engine.KindStandard, Side: engine.Buy, Price: 100, Quantity: 4, TotalQuantity: 4, TimeInForce: engine.GTC}
	_, err = book.AddLimitOrder(taker)
	require.NoError(t, err)

	select {
	case event := <-events:
		assert.Equal(t, "BTC-USD", event.Symbol)
		assert.Equal(t, uint64(4), event.MatchResult.ExecutedQuantity)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for trade event")
	}
}

func TestAddBook_RejectsDuplicateSymbol(t *testing.T) {
	m := New[noExtra]()
	_, err := m.AddBook("ETH-USD")
	require.NoError(t, err)

	_, err = m.AddBook("ETH-USD")
	assert.Error(t, err)
}

func TestRemoveBook(t *testing.T) {
	m := New[noExtra]()
	_, err := m.AddBook("ETH-USD")
	require.NoError(t, err)

	assert.True(t, m.RemoveBook("ETH-USD"))
	assert.False(t, m.HasBook("ETH-USD"))
	assert.False(t, m.RemoveBook("ETH-USD"))
}

func TestSymbolsAndCount(t *testing.T) {
	m := New[noExtra]()
	_, err := m.AddBook("A")
	require.NoError(t, err)
	_, err = m.AddBook("B")
	require.NoError(t, err)

	assert.Equal(t, 2, m.BookCount())
	assert.ElementsMatch(t, []string{"A", "B"}, m.Symbols())
}
