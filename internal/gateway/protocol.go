package gateway

import (
	"fmt"

	"github.com/fenrir-labs/lob/internal/engine"
)

// ClientTag is the Extra payload carried on every order submitted
// through the gateway: just enough to report back to the submitting
// connection without the matching engine needing to know anything about
// TCP or JSON.
type ClientTag struct {
	ClientAddress string `json:"client_address"`
}

// RequestKind discriminates the line-protocol request envelope.
type RequestKind string

const (
	RequestPlaceLimit  RequestKind = "place_limit"
	RequestPlaceMarket RequestKind = "place_market"
	RequestCancel      RequestKind = "cancel"
	RequestSnapshot    RequestKind = "snapshot"
)

// Request is one line of the gateway's newline-delimited JSON protocol.
type Request struct {
	Kind     RequestKind `json:"kind"`
	Symbol   string      `json:"symbol"`
	OrderID  string      `json:"order_id,omitempty"`
	Side     string      `json:"side,omitempty"`
	Price    uint64      `json:"price,omitempty"`
	Quantity uint64      `json:"quantity,omitempty"`
	TIF      string      `json:"time_in_force,omitempty"`
	Depth    int         `json:"depth,omitempty"`
}

// Response is the gateway's reply to a single Request.
type Response struct {
	OK          bool                `json:"ok"`
	Error       string              `json:"error,omitempty"`
	OrderID     string              `json:"order_id,omitempty"`
	MatchResult *engine.MatchResult `json:"match_result,omitempty"`
	Snapshot    *bookSnapshot       `json:"snapshot,omitempty"`
}

// bookSnapshot defers snapshot encoding to the engine's own JSON
// representation rather than re-declaring its shape here.
type bookSnapshot = engine.OrderBookSnapshot[ClientTag]

func parseSide(s string) (engine.Side, error) {
	switch s {
	case "buy", "Buy", "BUY":
		return engine.Buy, nil
	case "sell", "Sell", "SELL":
		return engine.Sell, nil
	default:
		return 0, fmt.Errorf("gateway: unknown side %q", s)
	}
}

func parseTIF(s string) (engine.TimeInForce, error) {
	switch s {
	case "", "GTC", "gtc":
		return engine.GTC, nil
	case "IOC", "ioc":
		return engine.IOC, nil
	case "FOK", "fok":
		return engine.FOK, nil
	case "GTD", "gtd":
		return engine.GTD, nil
	case "DAY", "day":
		return engine.DAY, nil
	default:
		return 0, fmt.Errorf("gateway: unknown time_in_force %q", s)
	}
}
