package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"sync"

	"minimart/internal/protocol"
)

// Handler answers a single decoded request. Implementations decide their
// own locking; the server calls Handle from one goroutine per connection.
type Handler interface {
	Handle(ctx context.Context, req *protocol.Request) *protocol.Response
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, req *protocol.Request) *protocol.Response

// Handle calls f.
func (f HandlerFunc) Handle(ctx context.Context, req *protocol.Request) *protocol.Response {
	return f(ctx, req)
}

// Server accepts TCP connections and services length-prefixed request
// frames, one goroutine per connection.
//
// newHandler is invoked once per accepted connection so that handlers may
// carry per-connection state (the gateways keep a pooled transport client
// per connection worker). Handlers implementing io.Closer are closed when
// their connection ends. Stateless services return a shared handler.
type Server struct {
	name       string
	addr       string
	newHandler func() Handler

	ln     net.Listener
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	conns map[net.Conn]struct{}
}

// NewServer creates a server for the given listen address. name is used
// as the logging prefix.
func NewServer(name, addr string, newHandler func() Handler) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		name:       name,
		addr:       addr,
		newHandler: newHandler,
		ctx:        ctx,
		cancel:     cancel,
		conns:      make(map[net.Conn]struct{}),
	}
}

// Start binds the listen address and begins accepting connections in a
// background goroutine.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.ln = ln
	log.Printf("[%s] Listening on %s", s.name, ln.Addr())

	s.wg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the bound listen address, useful when port 0 was requested.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return
			default:
			}
			log.Printf("[%s] Accept error: %v", s.name, err)
			continue
		}

		s.mu.Lock()
		s.conns[conn] = struct{}{}
		s.mu.Unlock()

		s.wg.Add(1)
		go s.serveConn(conn)
	}
}

// serveConn reads requests until the peer disconnects, answering each
// with exactly one response before reading the next.
func (s *Server) serveConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
	}()

	handler := s.newHandler()
	if closer, ok := handler.(io.Closer); ok {
		defer closer.Close()
	}

	for {
		req, err := protocol.ReadRequest(conn)
		if err != nil {
			// A client that gives up simply closes its connection;
			// anything already committed stays committed.
			if !errors.Is(err, io.EOF) {
				select {
				case <-s.ctx.Done():
				default:
					log.Printf("[%s] Read error from %s: %v", s.name, conn.RemoteAddr(), err)
				}
			}
			return
		}

		resp := handler.Handle(s.ctx, req)
		if resp == nil {
			continue
		}
		if err := protocol.WriteFrame(conn, resp); err != nil {
			log.Printf("[%s] Write error to %s: %v", s.name, conn.RemoteAddr(), err)
			return
		}
	}
}

// Shutdown stops accepting, closes open connections and waits for
// in-flight handlers to drain or the context to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancel()
	if s.ln != nil {
		s.ln.Close()
	}

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Printf("[%s] Stopped", s.name)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
