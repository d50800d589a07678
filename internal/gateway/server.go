package gateway

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/fenrir-labs/lob/internal/engine"
	"github.com/fenrir-labs/lob/internal/manager"
)

const (
	defaultNWorkers    = 10
	defaultConnTimeout = 30 * time.Second
)

// Server is a line-oriented TCP front end that submits requests onto a
// manager.BookManager and writes back one JSON response per request,
// adapted from the teacher's internal/server.go accept-loop idiom.
type Server struct {
	listener net.Listener
	pool     connPool
	mgr      *manager.BookManager[ClientTag]
	cancel   context.CancelFunc

	sessionsMu sync.Mutex
	sessions   map[string]net.Conn
}

func New(address string, port int, mgr *manager.BookManager[ClientTag]) (*Server, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("%s:%d", address, port))
	if err != nil {
		return nil, err
	}
	return &Server{
		listener: listener,
		pool:     newConnPool(defaultNWorkers),
		mgr:      mgr,
		sessions: make(map[string]net.Conn),
	}, nil
}

func (s *Server) Shutdown() {
	log.Info().Msg("gateway shutting down")
	if err := s.listener.Close(); err != nil {
		log.Error().Err(err).Msg("unable to close listener")
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// Run accepts connections until ctx is cancelled or Shutdown is called.
func (s *Server) Run(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	defer s.cancel()

	t, ctx := tomb.WithContext(ctx)
	go s.pool.run(t, s.handleConnection)

	// Accept blocks, so cancellation is delivered by closing the listener.
	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Msg("error accepting client")
			continue
		}
		log.Debug().Str("address", conn.RemoteAddr().String()).Msg("new client connected")
		s.addSession(conn)
		if !s.pool.submit(conn) {
			log.Warn().Str("address", conn.RemoteAddr().String()).Msg("connection pool saturated, rejecting client")
			s.deleteSession(conn.RemoteAddr().String())
			_ = conn.Close()
		}
	}
}

func (s *Server) addSession(conn net.Conn) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.sessions[conn.RemoteAddr().String()] = conn
}

func (s *Server) deleteSession(address string) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	delete(s.sessions, address)
}

// handleConnection reads newline-delimited JSON requests from conn until
// it closes, dispatching each and writing back a response line.
func (s *Server) handleConnection(t *tomb.Tomb, conn net.Conn) error {
	address := conn.RemoteAddr().String()
	defer func() {
		s.deleteSession(address)
		if err := conn.Close(); err != nil {
			log.Error().Err(err).Msg("error closing connection")
		}
	}()

	scanner := bufio.NewScanner(conn)
	for scanner.Scan() {
		select {
		case <-t.Dying():
			return nil
		default:
		}

		_ = conn.SetDeadline(time.Now().Add(defaultConnTimeout))

		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			s.writeResponse(conn, Response{OK: false, Error: err.Error()})
			continue
		}

		resp := s.dispatch(address, req)
		s.writeResponse(conn, resp)
	}
	return nil
}

func (s *Server) writeResponse(conn net.Conn, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("error encoding response")
		return
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("error writing response")
	}
}

func (s *Server) dispatch(clientAddress string, req Request) Response {
	book, ok := s.mgr.GetBook(req.Symbol)
	if !ok {
		var err error
		book, err = s.mgr.AddBook(req.Symbol)
		if err != nil {
			return Response{OK: false, Error: err.Error()}
		}
	}

	switch req.Kind {
	case RequestPlaceLimit:
		return s.dispatchPlaceLimit(clientAddress, book, req)
	case RequestPlaceMarket:
		return s.dispatchPlaceMarket(clientAddress, book, req)
	case RequestCancel:
		return s.dispatchCancel(book, req)
	case RequestSnapshot:
		return s.dispatchSnapshot(book, req)
	default:
		return Response{OK: false, Error: fmt.Sprintf("gateway: unknown request kind %q", req.Kind)}
	}
}

func (s *Server) dispatchPlaceLimit(clientAddress string, book *engine.OrderBook[ClientTag], req Request) Response {
	side, err := parseSide(req.Side)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	tif, err := parseTIF(req.TIF)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	order := &engine.Order[ClientTag]{
		ID:            engine.NewOrderID(),
		Kind:          engine.KindStandard,
		Side:          side,
		Price:         req.Price,
		Quantity:      req.Quantity,
		TotalQuantity: req.Quantity,
		TimeInForce:   tif,
		Timestamp:     time.Now(),
		Extra:         ClientTag{ClientAddress: clientAddress},
	}
	result, err := book.AddLimitOrder(order)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	return Response{OK: true, OrderID: order.ID.String(), MatchResult: &result}
}

func (s *Server) dispatchPlaceMarket(clientAddress string, book *engine.OrderBook[ClientTag], req Request) Response {
	side, err := parseSide(req.Side)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	order := &engine.Order[ClientTag]{
		ID:            engine.NewOrderID(),
		Kind:          engine.KindStandard,
		Side:          side,
		Quantity:      req.Quantity,
		TotalQuantity: req.Quantity,
		TimeInForce:   engine.IOC,
		Timestamp:     time.Now(),
		Extra:         ClientTag{ClientAddress: clientAddress},
	}
	result, err := book.SubmitMarketOrder(order)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	return Response{OK: true, OrderID: order.ID.String(), MatchResult: &result}
}

func (s *Server) dispatchCancel(book *engine.OrderBook[ClientTag], req Request) Response {
	id, err := uuid.Parse(req.OrderID)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	order, err := book.CancelOrder(id)
	if err != nil {
		return Response{OK: false, Error: err.Error()}
	}
	return Response{OK: true, OrderID: order.ID.String()}
}

func (s *Server) dispatchSnapshot(book *engine.OrderBook[ClientTag], req Request) Response {
	snap := book.CreateSnapshot(req.Depth)
	return Response{OK: true, Snapshot: &snap}
}
