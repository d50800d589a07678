package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fenrir-labs/lob/internal/manager"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mgr := manager.New[ClientTag]()
	srv, err := New("127.0.0.1", 0, mgr)
	require.NoError(t, err)
	t.Cleanup(srv.Shutdown)
	return srv
}

func TestDispatch_PlaceLimitCreatesBookOnDemand(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.dispatch("client1", Request{
		Kind: RequestPlaceLimit, Symbol: "BTC-USD", Side: "buy", Price: 100, Quantity: 10,
	})
	assert.True(t, resp.OK)
	assert.NotEmpty(t, resp.OrderID)
	assert.True(t, srv.mgr.HasBook("BTC-USD"))
}

func TestDispatch_PlaceLimitThenMatch(t *testing.T) {
	srv := newTestServer(t)

	resp := srv.dispatch("client1", Request{Kind: RequestPlaceLimit, Symbol: "BTC-USD", Side: "sell", Price: 100, Quantity: 10})
	require.True(t, resp.OK)

	resp = srv.dispatch("client2", Request{Kind: RequestPlaceLimit, Symbol: "BTC-USD", Side: "buy", Price: 100, Quantity: 4})
	require.True(t, resp.OK)
	require.NotNil(t, resp.MatchResult)
	assert.Equal(t, uint64(4), resp.MatchResult.ExecutedQuantity)
}

func TestDispatch_CancelUnknownOrderFails(t *testing.T) {
	srv := newTestServer(t)
	_, err := srv.mgr.AddBook("BTC-USD")
	require.NoError(t, err)

	resp := srv.dispatch("client1", Request{Kind: RequestCancel, Symbol: "BTC-USD", OrderID: "00000000-0000-0000-0000-000000000000"})
	assert.False(t, resp.OK)
	assert.NotEmpty(t, resp.Error)
}

func TestDispatch_UnknownKindFails(t *testing.T) {
	srv := newTestServer(t)
	resp := srv.dispatch("client1", Request{Kind: "bogus", Symbol: "BTC-USD"})
	assert.False(t, resp.OK)
}

func TestDispatch_Snapshot(t *testing.T) {
	srv := newTestServer(t)
	srv.dispatch("client1", Request{Kind: RequestPlaceLimit, Symbol: "BTC-USD", Side: "buy", Price: 99, Quantity: 5})

	resp := srv.dispatch("client1", Request{Kind: RequestSnapshot, Symbol: "BTC-USD"})
	require.True(t, resp.OK)
	require.NotNil(t, resp.Snapshot)
	require.Len(t, resp.Snapshot.Bids, 1)
	assert.Equal(t, uint64(99), resp.Snapshot.Bids[0].Price)
}
