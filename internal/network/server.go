// Package network serves catalog queries over TCP and provides the matching client.
package network

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"brickcat/internal/catalog"
	"brickcat/internal/dispatch"
	"brickcat/internal/logger"
	"brickcat/internal/metrics"
	"brickcat/internal/protocol"
	"brickcat/internal/wire"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

var ErrServerClosed = errors.New("network: server closed")

// State is the accept loop's lifecycle stage.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

type Config struct {
	// PollInterval bounds how long the accept loop waits before re-checking
	// for shutdown.
	PollInterval time.Duration
	// ReadTimeout limits the wait for the next query on a connection. Zero
	// waits until the peer sends or closes.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Limits       wire.Limits
	// AcceptRate caps accepted connections per second. Zero disables the limit.
	AcceptRate  float64
	AcceptBurst int
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 100 * time.Millisecond,
		Limits:       wire.DefaultLimits(),
	}
}

// Server answers queries against one shared, read-only catalog. Each accepted
// connection is served by its own goroutine.
type Server struct {
	cfg        Config
	dispatcher *dispatch.Dispatcher
	limiter    *rate.Limiter

	shutdown atomic.Bool
	state    atomic.Int32

	mu       sync.Mutex
	started  bool
	listener net.Listener
	conns    map[net.Conn]struct{}

	handlers sync.WaitGroup
	done     chan struct{}
}

func NewServer(c catalog.Catalog, cfg Config) *Server {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultConfig().PollInterval
	}
	s := &Server{
		cfg:        cfg,
		dispatcher: dispatch.NewDispatcher(c),
		conns:      make(map[net.Conn]struct{}),
		done:       make(chan struct{}),
	}
	if cfg.AcceptRate > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.AcceptRate), max(cfg.AcceptBurst, 1))
	}
	return s
}

func (s *Server) State() State {
	return State(s.state.Load())
}

// Addr returns the listener address once Serve has started, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe listens on the TCP address addr and calls Serve.
func (s *Server) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("network: listen %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called, then waits for
// every handler to finish. It always returns a non-nil error; after Shutdown
// that error is ErrServerClosed.
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.shutdown.Load() || s.started {
		s.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	s.started = true
	s.listener = ln
	s.mu.Unlock()
	defer close(s.done)

	s.state.Store(int32(StateRunning))
	logger.Info("Catalog server listening on %s", ln.Addr())

	err := s.acceptLoop(ln)

	s.state.Store(int32(StateDraining))
	ln.Close()
	s.handlers.Wait()
	s.state.Store(int32(StateStopped))
	logger.Info("Catalog server stopped")
	return err
}

type deadliner interface {
	SetDeadline(t time.Time) error
}

func (s *Server) acceptLoop(ln net.Listener) error {
	for {
		if s.shutdown.Load() {
			return ErrServerClosed
		}
		if d, ok := ln.(deadliner); ok {
			d.SetDeadline(time.Now().Add(s.cfg.PollInterval))
		}
		conn, err := ln.Accept()
		if err != nil {
			var ne net.Error
			switch {
			case errors.As(err, &ne) && ne.Timeout():
				// No pending connection.
			case errors.Is(err, net.ErrClosed):
				if s.shutdown.Load() {
					return ErrServerClosed
				}
				return fmt.Errorf("network: accept: %w", err)
			default:
				logger.Error("Accept error: %v", err)
				time.Sleep(s.cfg.PollInterval)
			}
			continue
		}

		if s.limiter != nil && !s.limiter.Allow() {
			logger.Warn("Rejecting %s: accept rate exceeded", conn.RemoteAddr())
			metrics.RecordConnectionError("rate_limited")
			conn.Close()
			continue
		}

		if tcpConn, ok := conn.(*net.TCPConn); ok {
			tcpConn.SetReadBuffer(65536)
			tcpConn.SetWriteBuffer(65536)
		}

		s.track(conn)
		s.handlers.Add(1)
		go s.handleConnection(conn)
	}
}

// Shutdown stops accepting connections and waits for in-flight handlers.
// A handler blocked waiting for its next query only returns when the peer
// closes, the read timeout fires, or ctx expires; on expiry the remaining
// connections are closed and ctx.Err() is returned.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdown.Store(true)

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if !started {
		s.state.Store(int32(StateStopped))
		return nil
	}

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
	}

	n := s.closeConns()
	logger.Warn("Shutdown deadline reached, closed %d connections", n)
	<-s.done
	return ctx.Err()
}

func (s *Server) track(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[conn] = struct{}{}
}

func (s *Server) untrack(conn net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, conn)
}

func (s *Server) closeConns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.conns {
		conn.Close()
	}
	return len(s.conns)
}

func (s *Server) handleConnection(conn net.Conn) {
	defer s.handlers.Done()
	defer s.untrack(conn)
	defer conn.Close()

	closed := metrics.ConnectionOpened()
	defer closed()

	log := logger.Conn(uuid.NewString(), conn.RemoteAddr().String())
	log.Debug().Msg("connection opened")

	r := bufio.NewReader(conn)
	w := bufio.NewWriter(conn)
	emit := func(resp protocol.Response) error {
		if s.cfg.WriteTimeout > 0 {
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		}
		return wire.Send(w, resp, s.cfg.Limits)
	}

	for {
		if s.shutdown.Load() {
			log.Debug().Msg("server draining, closing connection")
			return
		}
		if s.cfg.ReadTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		}

		q, err := wire.Receive(r, s.cfg.Limits, protocol.DecodeQuery)
		if err != nil {
			connectionError(log, "receive", err)
			return
		}

		start := time.Now()
		outcome, err := s.answer(q, emit)
		if err == nil {
			err = w.Flush()
		}
		if err != nil {
			connectionError(log, "send", err)
			return
		}
		label := queryLabel(q)
		metrics.RecordQuery(label, outcome, time.Since(start))
		log.Debug().Str("query", label).Str("outcome", outcome).Dur("took", time.Since(start)).Msg("query answered")
	}
}

// answer dispatches q and reports the outcome recorded in metrics.
func (s *Server) answer(q protocol.Query, emit dispatch.Emit) (string, error) {
	switch q := q.(type) {
	case protocol.Get:
		outcome := "found"
		err := s.dispatcher.Handle(q, func(resp protocol.Response) error {
			if r, ok := resp.(protocol.GetItemResponse); ok {
				if _, missing := r.Result.(protocol.NotFound); missing {
					outcome = "not_found"
				}
			}
			return emit(resp)
		})
		return outcome, err
	case protocol.Find:
		var n int
		err := s.dispatcher.Handle(q, func(resp protocol.Response) error {
			if _, ok := resp.(protocol.IterItem); ok {
				n++
			}
			return emit(resp)
		})
		metrics.RecordStreamedKeys(q.Kind.String(), n)
		return "streamed", err
	default:
		return "", s.dispatcher.Handle(q, emit)
	}
}

// connectionError logs the error that ended a handler. A disconnect at a
// frame boundary is routine.
func connectionError(log zerolog.Logger, op string, err error) {
	if errors.Is(err, io.EOF) {
		log.Debug().Msg("connection closed by peer")
		return
	}
	reason := errorReason(err)
	metrics.RecordConnectionError(reason)
	log.Error().Err(err).Str("op", op).Str("reason", reason).Msg("connection ended")
}

func errorReason(err error) string {
	var ne net.Error
	switch {
	case errors.Is(err, wire.ErrFrameTooLarge):
		return "frame_too_large"
	case errors.Is(err, wire.ErrShortFrame):
		return "short_frame"
	case errors.Is(err, protocol.ErrMalformed), errors.Is(err, protocol.ErrUnknownVariant):
		return "decode"
	case errors.As(err, &ne) && ne.Timeout():
		return "timeout"
	default:
		return "io"
	}
}

func queryLabel(q protocol.Query) string {
	switch q := q.(type) {
	case protocol.Get:
		switch q.Item.(type) {
		case protocol.PartFromID:
			return "get:part-id"
		case protocol.PartFromName:
			return "get:part-name"
		case protocol.ColorFromID:
			return "get:color-id"
		case protocol.ColorFromName:
			return "get:color-name"
		case protocol.ElementFromID:
			return "get:element-id"
		}
	case protocol.Find:
		return "find:" + q.Kind.String()
	}
	return "unknown"
}
