// Package gateway is the optional line-protocol TCP front end over a
// BookManager (a network transport sits outside the matching engine
// itself per the spec's component boundaries).
package gateway

import (
	"net"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"
)

const connChanSize = 100

// connHandler services one accepted connection until it closes or the
// tomb starts dying.
type connHandler func(t *tomb.Tomb, conn net.Conn) error

// connPool maintains a fixed number of goroutines servicing accepted
// gateway connections, in the manner of the teacher's WorkerPool
// (internal/worker.go) but scoped to net.Conn rather than an any-typed
// task: a misrouted submission is a compile error instead of a runtime
// type assertion, and Shutdown draining (below) closes whatever
// connections never made it to a worker.
type connPool struct {
	n      int
	conns  chan net.Conn
	handle connHandler
}

func newConnPool(size int) connPool {
	return connPool{n: size, conns: make(chan net.Conn, connChanSize)}
}

// submit hands off an accepted connection to the pool. It never blocks:
// a full pool means every worker is already saturated, so the caller
// gets false back and is expected to reject the connection rather than
// stall the accept loop.
func (p *connPool) submit(conn net.Conn) bool {
	select {
	case p.conns <- conn:
		return true
	default:
		return false
	}
}

// run starts the pool's workers under t and blocks until t is dying,
// then drains any connections still queued.
func (p *connPool) run(t *tomb.Tomb, handle connHandler) {
	log.Info().Int("workers", p.n).Msg("gateway connection pool starting")
	p.handle = handle
	active := 0
	for {
		select {
		case <-t.Dying():
			p.drain()
			return
		default:
			if active < p.n {
				t.Go(func() error {
					err := p.worker(t)
					active--
					return err
				})
				active++
			}
		}
	}
}

func (p *connPool) worker(t *tomb.Tomb) error {
	select {
	case <-t.Dying():
		return nil
	case conn := <-p.conns:
		if err := p.handle(t, conn); err != nil {
			log.Error().Err(err).Msg("gateway connection worker exiting")
			return err
		}
	}
	return nil
}

// drain closes any connection the accept loop handed off but no worker
// ever picked up, so a shutdown mid-burst doesn't leak sockets.
func (p *connPool) drain() {
	for {
		select {
		case conn := <-p.conns:
			if err := conn.Close(); err != nil {
				log.Error().Err(err).Msg("error closing drained connection")
			}
		default:
			return
		}
	}
}
