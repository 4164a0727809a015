// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultMaxParallel bounds simultaneously executing calls across all
// connections, preventing socket or database-handle exhaustion.
const DefaultMaxParallel = 16

// Server accepts connections and serves RPC calls over them.
type Server struct {
	addr     string
	handler  *Handler
	sem      *semaphore.Weighted
	logger   *slog.Logger
	listener net.Listener
	mu       sync.RWMutex
}

// NewServer creates a Server. maxParallel values below 1 fall back to
// DefaultMaxParallel.
func NewServer(addr string, handler *Handler, maxParallel int, logger *slog.Logger) *Server {
	if maxParallel < 1 {
		maxParallel = DefaultMaxParallel
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:    addr,
		handler: handler,
		sem:     semaphore.NewWeighted(int64(maxParallel)),
		logger:  logger,
	}
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run starts the server and blocks until the context is cancelled or the
// listener fails fatally. An error accepting a single connection is
// logged and that connection attempt discarded; it never stops the
// listener or disturbs other connections.
func (s *Server) Run(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("RPC server started", "addr", listener.Addr())

	go func() {
		<-ctx.Done()
		if err := listener.Close(); err != nil {
			s.logger.Debug("error closing listener", "error", err)
		}
	}()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				s.logger.Error("accept failed", "error", err)
				continue
			}
		}

		ConnectionsAccepted.Inc()
		s.logger.Info("accepted connection", "peer", conn.RemoteAddr())

		ch := newConnHandler(conn, s.handler, s.sem, s.logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch.serve(ctx)
		}()
	}
}
