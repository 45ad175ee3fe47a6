package server

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"net"
	"net/http"
	"sync"
	"time"
)

// Server runs the API over HTTP or, when TLSConfig is set, HTTPS.
type Server struct {
	Addr      string
	Handler   http.Handler
	TLSConfig *tls.Config

	mu       sync.Mutex
	httpSrv  *http.Server
	listener net.Listener
}

func NewServer(addr string, handler http.Handler, tlsConfig *tls.Config) *Server {
	return &Server{
		Addr:      addr,
		Handler:   handler,
		TLSConfig: tlsConfig,
	}
}

// Start listens and serves until Shutdown. It returns nil after a clean shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	if s.TLSConfig != nil {
		ln = tls.NewListener(ln, s.TLSConfig)
	}

	srv := &http.Server{
		Handler:           s.Handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.mu.Lock()
	s.httpSrv = srv
	s.listener = ln
	s.mu.Unlock()

	log.Printf("API listening on %s (TLS=%v)", ln.Addr(), s.TLSConfig != nil)

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ListenAddr returns the bound address once Start is listening, or nil.
func (s *Server) ListenAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Shutdown gracefully stops the server.
// It stops accepting connections, waits for active requests to finish,
// and respects the provided context's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("API: initiating shutdown...")

	s.mu.Lock()
	srv := s.httpSrv
	s.mu.Unlock()
	if srv == nil {
		return nil
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Println("API: shutdown timeout, forcing close")
		srv.Close()
		return err
	}
	log.Println("API: all connections closed gracefully")
	return nil
}
