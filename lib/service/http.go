// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/whiteboard/lib/clock"
)

// Server runs an http.Handler on a TCP listener until its context is
// cancelled, then drains in-flight requests before returning.
type Server struct {
	server       *http.Server
	address      string
	drainTimeout time.Duration
	logger       *slog.Logger

	listening chan struct{}
	addr      net.Addr
}

// ServerConfig configures a Server. Address, Handler, and Logger are
// required.
type ServerConfig struct {
	// Address is the TCP listen address, e.g. ":5858". Port 0 asks
	// the OS for a free port; read it back with Addr.
	Address string

	Handler http.Handler
	Logger  *slog.Logger

	// DrainTimeout bounds how long Serve waits for in-flight requests
	// after cancellation. Zero means 10 seconds.
	DrainTimeout time.Duration

	// ReadTimeout and WriteTimeout cover a whole request body and a
	// whole response. Zero means 2 minutes, which leaves room for
	// large uploads.
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewServer builds a Server. It panics when a required field is
// missing: that is a wiring bug in main, not a runtime condition.
func NewServer(config ServerConfig) *Server {
	switch {
	case config.Address == "":
		panic("service: ServerConfig.Address is required")
	case config.Handler == nil:
		panic("service: ServerConfig.Handler is required")
	case config.Logger == nil:
		panic("service: ServerConfig.Logger is required")
	}

	return &Server{
		server: &http.Server{
			Handler:           config.Handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       orDefault(config.ReadTimeout, 2*time.Minute),
			WriteTimeout:      orDefault(config.WriteTimeout, 2*time.Minute),
			IdleTimeout:       time.Minute,
			ErrorLog:          slog.NewLogLogger(config.Logger.Handler(), slog.LevelWarn),
		},
		address:      config.Address,
		drainTimeout: orDefault(config.DrainTimeout, 10*time.Second),
		logger:       config.Logger,
		listening:    make(chan struct{}),
	}
}

func orDefault(value, fallback time.Duration) time.Duration {
	if value == 0 {
		return fallback
	}
	return value
}

// Listening is closed once the listener is bound.
func (s *Server) Listening() <-chan struct{} {
	return s.listening
}

// Addr is the bound address. Valid only after Listening is closed.
func (s *Server) Addr() net.Addr {
	return s.addr
}

// Serve binds the listener and serves until ctx is cancelled or the
// server fails. A clean drain returns nil.
func (s *Server) Serve(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("service: listen on %s: %w", s.address, err)
	}
	s.addr = listener.Addr()
	close(s.listening)
	s.logger.Info("serving http", "address", s.addr.String())

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := s.server.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("service: serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.drainTimeout)
		defer cancel()
		s.logger.Info("draining http requests", "timeout", s.drainTimeout)
		if err := s.server.Shutdown(drainCtx); err != nil {
			return fmt.Errorf("service: drain: %w", err)
		}
		return nil
	})

	if err := group.Wait(); err != nil {
		s.logger.Error("http server stopped with error", "error", err)
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

// statusRecorder captures the status code and body size written
// through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(data []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	written, err := r.ResponseWriter.Write(data)
	r.bytes += int64(written)
	return written, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// LogRequests wraps next so that every request produces one info log
// line with method, path, status, response size, and duration. A nil
// clock uses the real clock.
func LogRequests(logger *slog.Logger, clk clock.Clock, next http.Handler) http.Handler {
	if clk == nil {
		clk = clock.Real()
	}
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		start := clk.Now()
		recorder := &statusRecorder{ResponseWriter: writer}

		next.ServeHTTP(recorder, request)

		status := recorder.status
		if status == 0 {
			status = http.StatusOK
		}
		logger.Info("http request",
			"method", request.Method,
			"path", request.URL.Path,
			"status", status,
			"bytes", recorder.bytes,
			"duration", clk.Since(start),
		)
	})
}

// WriteJSON writes value as a JSON response with the given status.
func WriteJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(value)
}

// ErrorResponse is the body of every JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError writes {"error": message} with the given status.
func WriteError(writer http.ResponseWriter, status int, message string) {
	WriteJSON(writer, status, ErrorResponse{Error: message})
}
