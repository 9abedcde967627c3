// MIT License
//
// Copyright (c) 2025 Mike Lane
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"sigs.k8s.io/controller-runtime/pkg/log"
)

const (
	// WebhookPath is the route GitHub deliveries are posted to
	WebhookPath = "/webhooks"
	// HealthPath is the liveness probe route
	HealthPath = "/healthz"

	// TargetHeader identifies the account or repository the App is installed on
	TargetHeader = "X-GitHub-Hook-Installation-Target-ID"
)

// Server serves GitHub webhook requests over HTTP
type Server struct {
	addr        string
	port        int
	handler     http.Handler
	server      *http.Server
	rateLimiter *RateLimiter
}

// NewServer creates a new webhook server delegating deliveries to handler
func NewServer(addr string, port int, handler http.Handler) *Server {
	return &Server{
		addr:        addr,
		port:        port,
		handler:     handler,
		rateLimiter: NewRateLimiter(10, time.Second), // 10 requests per second per target
	}
}

// Handler returns the server's routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(WebhookPath, otelhttp.NewHandler(http.HandlerFunc(s.handleWebhook), "webhook"))
	mux.HandleFunc(HealthPath, s.handleHealth)
	return mux
}

// Start starts the webhook server and blocks until ctx is canceled or the
// listener fails
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              net.JoinHostPort(s.addr, fmt.Sprint(s.port)),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		log.Log.Info("Starting webhook server", "addr", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	// Wait for context cancellation or error
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	log.Log.Info("Shutting down webhook server")
	return s.server.Shutdown(ctx)
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK")) //nolint:errcheck,gosec
}

// handleWebhook rate-limits a delivery and hands it to the handler
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())

	// Only accept POST requests
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	target := r.Header.Get(TargetHeader)
	if target == "" {
		target = "unknown"
	}
	if !s.rateLimiter.Allow(target) {
		logger.Info("Rate limit exceeded", "target", target)
		http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
		return
	}

	s.handler.ServeHTTP(w, r)
}
