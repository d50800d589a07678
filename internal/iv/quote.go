package iv

// QuoteSource is the minimal book surface a quote needs: whatever order
// book implementation backs it (engine.OrderBook is generic over an
// Extra type parameter this package has no reason to know about).
type QuoteSource interface {
	BestBid() (uint64, bool)
	BestAsk() (uint64, bool)
	MicroPrice() (float64, bool)
	LastTradePrice() (uint64, bool)
	SpreadBps() (float64, bool)
}

// ResolvePrice picks the market price an IV calculation should target,
// per the requested PriceSource, returning NoPriceAvailableError if the
// book cannot supply it.
func ResolvePrice(book QuoteSource, source PriceSource) (float64, error) {
	switch source {
	case WeightedMid:
		if p, ok := book.MicroPrice(); ok {
			return p, nil
		}
	case LastTrade:
		if p, ok := book.LastTradePrice(); ok {
			return float64(p), nil
		}
	default: // MidPrice
		bid, okb := book.BestBid()
		ask, oka := book.BestAsk()
		if okb && oka {
			return float64(bid+ask) / 2, nil
		}
	}
	return 0, NoPriceAvailableError{}
}

// SolveFromBook resolves a market price from book per source, solves for
// IV, and buckets the result's quality by the book's current spread.
func SolveFromBook(book QuoteSource, params Params, source PriceSource, cfg SolverConfig) (Result, error) {
	marketPrice, err := ResolvePrice(book, source)
	if err != nil {
		return Result{}, err
	}

	vol, iterations, err := Solve(params, marketPrice, cfg)
	if err != nil {
		return Result{}, err
	}

	spreadBps, _ := book.SpreadBps()
	return Result{
		IV:         vol,
		PriceUsed:  marketPrice,
		SpreadBps:  spreadBps,
		Iterations: iterations,
		Quality:    QualityFromSpreadBps(spreadBps),
	}, nil
}
