// Package server implements the supervisor (C6): it binds the listening
// socket, allocates a Client per accepted connection, and drains open
// connections on shutdown. Grounded on original_source/src/async/ship.c's
// ship_server_init/on_connect and async/main.c's knob defaults.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/seguro-db/seguro/internal/client"
	"github.com/seguro-db/seguro/internal/interfaces"
	"github.com/seguro-db/seguro/internal/store"
)

// Options configures a Server.
type Options struct {
	Port           int
	ReadBufferSize int
	FragmentSize   int
	Store          store.Store
	Logger         interfaces.Logger
	Observer       interfaces.Observer
}

// Server accepts TCP connections and runs one Client state machine per
// connection on its own goroutine.
type Server struct {
	opt      Options
	listener net.Listener

	nextID uint64

	mu      sync.Mutex
	clients map[uint64]net.Conn
	wg      sync.WaitGroup
}

// New constructs a Server; call Serve to bind and accept.
func New(opt Options) *Server {
	return &Server{opt: opt, clients: make(map[uint64]net.Conn)}
}

// Serve binds the listening socket (with the platform's default backlog,
// not 128; see below) and accepts connections until ctx is canceled or Close is called. It returns
// nil on a clean shutdown.
func (s *Server) Serve(ctx context.Context) error {
	// net.Listen always uses the platform's SOMAXCONN for its backlog; Go
	// exposes no knob to request spec.md §4.5's "backlog 128" specifically.
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", fmt.Sprintf(":%d", s.opt.Port))
	if err != nil {
		return fmt.Errorf("server: listen on port %d: %w", s.opt.Port, err)
	}
	s.listener = ln

	go func() {
		<-ctx.Done()
		s.Close()
	}()

	s.opt.Logger.Infof("listening on port %d", s.opt.Port)
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				s.wg.Wait()
				return nil
			default:
				return fmt.Errorf("server: accept: %w", err)
			}
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

// Close stops accepting new connections and closes every open connection,
// which unblocks each client goroutine's blocking Read and lets it return.
func (s *Server) Close() error {
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	s.mu.Lock()
	for _, conn := range s.clients {
		_ = conn.Close()
	}
	s.mu.Unlock()
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer conn.Close()

	id := atomic.AddUint64(&s.nextID, 1)
	c := client.New(id, client.Options{
		ReadBufferSize: s.opt.ReadBufferSize,
		FragmentSize:   s.opt.FragmentSize,
		Store:          s.opt.Store,
		Out:            conn,
		Logger:         s.opt.Logger,
		Observer:       s.opt.Observer,
	})

	s.mu.Lock()
	s.clients[id] = conn
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, id)
		s.mu.Unlock()
	}()

	s.opt.Observer.ObserveClientAccepted()
	if err := c.Start(); err != nil {
		c.Log().Warnf("%v", err)
		return
	}

	buf := make([]byte, 32*1024)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			if feedErr := c.Feed(buf[:n]); feedErr != nil {
				c.Log().Warnf("%v", feedErr)
				return
			}
		}
		if err != nil {
			// Clean EOF: terminate quietly, per spec.md §7.
			return
		}
		if c.Terminated() {
			return
		}
	}
}
