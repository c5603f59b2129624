package server

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"gateserver/metrics"
	"gateserver/util/fastmap"
	"gateserver/util/fastmap/smap"
	"gateserver/util/log"

	"github.com/benbjohnson/clock"
)

const (
	MIN_ACCEPT_DELAY = 5 * time.Millisecond
	MAX_ACCEPT_DELAY = time.Second
)

// Server accepts sockets and runs one Connection per socket.
type Server struct {
	ln         net.Listener
	dispatcher Dispatcher
	deadline   time.Duration
	clock      clock.Clock

	conns  fastmap.FastMap
	nextID atomic.Int64
	wg     sync.WaitGroup
	closed atomic.Bool
}

type Option func(*Server)

func WithDeadline(d time.Duration) Option {
	return func(s *Server) {
		s.deadline = d
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Server) {
		s.clock = c
	}
}

func NewServer(port string, dispatcher Dispatcher, opts ...Option) (*Server, error) {
	ln, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return nil, err
	}
	return NewServerWithListener(ln, dispatcher, opts...), nil
}

func NewServerWithListener(ln net.Listener, dispatcher Dispatcher, opts ...Option) *Server {
	s := &Server{
		ln:         ln,
		dispatcher: dispatcher,
		deadline:   DEADLINE,
		clock:      clock.New(),
		conns:      smap.NewSMap(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Addr() net.Addr {
	return s.ln.Addr()
}

// NumConns returns the number of connections still being served.
func (s *Server) NumConns() int {
	return s.conns.CountNoLock()
}

// Serve accepts until the listener is closed or ctx is done. Accept errors
// are logged and retried with backoff.
func (s *Server) Serve(ctx context.Context) error {
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.closed.Store(true)
			_ = s.ln.Close()
		case <-stop:
		}
	}()

	log.Warnf("Start to listening the incoming requests on address: %s", s.ln.Addr())
	var tempDelay time.Duration
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if s.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			metrics.AcceptErrors.Inc()
			if tempDelay == 0 {
				tempDelay = MIN_ACCEPT_DELAY
			} else {
				tempDelay *= 2
			}
			if tempDelay > MAX_ACCEPT_DELAY {
				tempDelay = MAX_ACCEPT_DELAY
			}
			log.Warnf("accept error: %v; retrying in %v", err, tempDelay)
			select {
			case <-s.clock.After(tempDelay):
			case <-ctx.Done():
				return nil
			}
			continue
		}
		tempDelay = 0
		s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	id := s.nextID.Add(1)
	c := NewConnection(id, conn, s.dispatcher, s.deadline, s.clock)
	s.conns.Set(id, c)
	metrics.ConnectionsTotal.Inc()
	metrics.ConnectionsActive.Inc()

	s.wg.Add(1)
	go func() {
		defer func() {
			if err := recover(); err != nil {
				log.Errorf("connection %d panic: %v", id, err)
			}
			c.Close()
			s.conns.Remove(id)
			metrics.ConnectionsActive.Dec()
			s.wg.Done()
		}()
		c.Start(ctx)
	}()
}

// Shutdown stops accepting and waits for in-flight connections. When ctx
// expires first the remaining connections are closed.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closed.Store(true)
	err := s.ln.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return err
	case <-ctx.Done():
		s.conns.Range(func(key int64, value io.Closer) bool {
			_ = value.Close()
			return true
		})
		return ctx.Err()
	}
}
