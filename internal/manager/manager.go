// Package manager routes trade events from every symbol's order book
// through a single channel, in the manner of the teacher's WorkerPool
// (internal/worker.go): a tomb.Tomb supervises one long-lived goroutine
// instead of a pool, since there is exactly one consumer of the channel.
package manager

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/fenrir-labs/lob/internal/engine"
)

const tradeEventChanSize = 4096

// TradeEvent re-exports engine.TradeEvent so callers of this package
// don't need a second import just to name the processor's argument type.
type TradeEvent = engine.TradeEvent

// BookManager owns one OrderBook per symbol and funnels the trades they
// produce into a single channel for a caller-supplied processor to
// consume, in the shape of the Rust BookManager's mpsc-based trade
// routing. The channel is bounded (tradeEventChanSize events) and the
// send never blocks: an event that arrives while the channel is full is
// dropped and a warning is logged.
type BookManager[Extra any] struct {
	mu    sync.RWMutex
	books map[string]*engine.OrderBook[Extra]

	events chan engine.TradeEvent
	clock  engine.Clock
	t      tomb.Tomb
}

// New creates an empty manager. Call StartTradeProcessor to begin
// consuming trade events before adding books that might emit them.
func New[Extra any]() *BookManager[Extra] {
	return &BookManager[Extra]{
		books:  make(map[string]*engine.OrderBook[Extra]),
		events: make(chan engine.TradeEvent, tradeEventChanSize),
		clock:  engine.SystemClock{},
	}
}

// AddBook creates a new order book for symbol, wiring its trade listener
// to stamp a millisecond timestamp and forward onto the shared channel.
func (m *BookManager[Extra]) AddBook(symbol string) (*engine.OrderBook[Extra], error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.books[symbol]; exists {
		return nil, fmt.Errorf("manager: book %q already exists", symbol)
	}
	book := engine.NewOrderBook[Extra](symbol, engine.WithClock[Extra](m.clock))
	book.SetTradeListener(func(tr *engine.TradeResult) {
		event := engine.TradeEvent{
			Symbol:      tr.Symbol,
			MatchResult: tr.MatchResult,
			TimestampMs: uint64(m.clock.Now().UnixMilli()),
		}
		select {
		case m.events <- event:
		default:
			log.Warn().Str("symbol", tr.Symbol).Msg("trade event channel full, dropping event")
		}
	})
	m.books[symbol] = book
	return book, nil
}

// RemoveBook drops a symbol's book. Resting orders are discarded; callers
// that need to preserve state should snapshot first.
func (m *BookManager[Extra]) RemoveBook(symbol string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.books[symbol]; !ok {
		return false
	}
	delete(m.books, symbol)
	return true
}

func (m *BookManager[Extra]) HasBook(symbol string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.books[symbol]
	return ok
}

func (m *BookManager[Extra]) GetBook(symbol string) (*engine.OrderBook[Extra], bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.books[symbol]
	return b, ok
}

func (m *BookManager[Extra]) Symbols() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.books))
	for s := range m.books {
		out = append(out, s)
	}
	return out
}

func (m *BookManager[Extra]) BookCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.books)
}

// TradeEventProcessor consumes a single routed trade event.
type TradeEventProcessor func(engine.TradeEvent)

// StartTradeProcessor spawns the tomb-supervised consumer goroutine. It
// runs until Stop is called.
func (m *BookManager[Extra]) StartTradeProcessor(process TradeEventProcessor) {
	m.t.Go(func() error {
		log.Info().Msg("trade event processor starting")
		for {
			select {
			case <-m.t.Dying():
				return nil
			case event := <-m.events:
				process(event)
			}
		}
	})
}

// Stop signals the trade processor to exit and waits for it to finish.
func (m *BookManager[Extra]) Stop() error {
	m.t.Kill(nil)
	return m.t.Wait()
}
