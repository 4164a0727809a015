// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PageKeep Contributors

package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"

	"golang.org/x/sync/semaphore"
)

// connHandler serves one connection: a long-lived channel of pipelined
// calls. Reads stop while the global semaphore is exhausted, so a busy
// server backpressures clients instead of buffering unbounded work.
type connHandler struct {
	conn    net.Conn
	handler *Handler
	sem     *semaphore.Weighted
	logger  *slog.Logger

	writeMu sync.Mutex
	enc     *json.Encoder

	closeOnce sync.Once
}

func newConnHandler(conn net.Conn, handler *Handler, sem *semaphore.Weighted, logger *slog.Logger) *connHandler {
	return &connHandler{
		conn:    conn,
		handler: handler,
		sem:     sem,
		logger:  logger,
		enc:     json.NewEncoder(conn),
	}
}

// serve reads framed requests until the connection or context ends.
// Each request executes in its own goroutine once it clears the
// semaphore; responses are written in completion order.
func (h *connHandler) serve(ctx context.Context) {
	defer h.close()

	// Unblock the decoder when the server shuts down.
	stop := context.AfterFunc(ctx, h.close)
	defer stop()

	peer := h.conn.RemoteAddr().String()
	dec := json.NewDecoder(h.conn)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		var req Request
		if err := dec.Decode(&req); err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				h.logger.Debug("connection read error", "peer", peer, "error", err)
			}
			return
		}

		// Blocks while the process-wide ceiling is reached; this is
		// backpressure, not admission control.
		if err := h.sem.Acquire(ctx, 1); err != nil {
			return
		}

		wg.Add(1)
		go func(req Request) {
			defer wg.Done()
			defer h.sem.Release(1)

			InFlight.Inc()
			resp := h.handler.Dispatch(ctx, req, peer)
			InFlight.Dec()

			h.write(resp, peer)
		}(req)
	}
}

// write serializes one response onto the channel. Internal errors
// surface as typed failures in Dispatch; a write error here means the
// channel itself is gone, which only this connection's loop notices.
func (h *connHandler) write(resp Response, peer string) {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	if err := h.enc.Encode(resp); err != nil {
		h.logger.Debug("connection write error", "peer", peer, "error", err)
	}
}

func (h *connHandler) close() {
	h.closeOnce.Do(func() {
		if err := h.conn.Close(); err != nil {
			h.logger.Debug("error closing connection", "error", err)
		}
	})
}
