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

package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/mikelane/renovate-approve-bot/internal/github"
)

// Credentials are the three secrets a GitHub App needs at runtime
type Credentials struct {
	AppID         string
	PrivateKey    string
	WebhookSecret string
}

// HandlerFunc handles one webhook delivery
type HandlerFunc func(ctx context.Context, c *Context) error

// Registry is the subscription capability handed to handler modules
type Registry interface {
	// On subscribes fn to an event ("pull_request") or event and action
	// ("pull_request.opened").
	On(event string, fn HandlerFunc)
	// Logger returns the App's top-level logger, nil when absent
	Logger() Logger
}

// RegisterFunc subscribes a handler module's callbacks to a Registry
type RegisterFunc func(r Registry) error

// RuntimeConstructionError reports credentials the runtime cannot use
type RuntimeConstructionError struct {
	Err error
}

func (e *RuntimeConstructionError) Error() string {
	return fmt.Sprintf("failed to construct bot runtime: %v", e.Err)
}

func (e *RuntimeConstructionError) Unwrap() error {
	return e.Err
}

// App verifies, parses and dispatches webhook deliveries
type App struct {
	// Log is the App's top-level logger. It may be nil.
	Log Logger

	level         Level
	webhookSecret string
	auth          *github.AppAuth

	mu       sync.RWMutex
	handlers map[string][]HandlerFunc
}

var _ Registry = (*App)(nil)
var _ http.Handler = (*App)(nil)

type options struct {
	level   Level
	logger  Logger
	baseURL string
}

// Option configures an App
type Option func(*options)

// WithLogLevel sets the runtime's diagnostic verbosity
func WithLogLevel(level Level) Option {
	return func(o *options) { o.level = level }
}

// WithLogger sets the App's top-level logger
func WithLogger(l Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithGitHubBaseURL points installation clients at a non-default API root
func WithGitHubBaseURL(u string) Option {
	return func(o *options) { o.baseURL = u }
}

// New constructs an App from creds. It returns a *RuntimeConstructionError
// if any credential is empty or the private key cannot be parsed.
func New(creds Credentials, opts ...Option) (*App, error) {
	o := options{level: LevelInfo}
	for _, opt := range opts {
		opt(&o)
	}

	if creds.WebhookSecret == "" {
		return nil, &RuntimeConstructionError{Err: errors.New("webhook secret is empty")}
	}

	var authOpts []github.AppOption
	if o.baseURL != "" {
		authOpts = append(authOpts, github.WithBaseURL(o.baseURL))
	}
	auth, err := github.NewAppAuth(creds.AppID, creds.PrivateKey, authOpts...)
	if err != nil {
		return nil, &RuntimeConstructionError{Err: err}
	}

	return &App{
		Log:           o.logger,
		level:         o.level,
		webhookSecret: creds.WebhookSecret,
		auth:          auth,
		handlers:      make(map[string][]HandlerFunc),
	}, nil
}

// On implements Registry
func (a *App) On(event string, fn HandlerFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[event] = append(a.handlers[event], fn)
}

// Logger implements Registry
func (a *App) Logger() Logger {
	return a.Log
}

// Level returns the App's diagnostic verbosity
func (a *App) Level() Level {
	return a.level
}

// Event is a delivery received outside of HTTP
type Event struct {
	Name    string
	ID      string
	Payload []byte
}

// Receive parses and dispatches an already verified event
func (a *App) Receive(ctx context.Context, event Event) error {
	c, err := a.newContext(event)
	if err != nil {
		return err
	}
	return a.dispatch(ctx, c)
}

// ServeHTTP verifies the delivery signature, parses the payload and runs the
// subscribed handlers.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	payload, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, "failed to read body")
		return
	}
	defer r.Body.Close() //nolint:errcheck

	event := Event{
		Name:    r.Header.Get(EventHeader),
		ID:      r.Header.Get(DeliveryHeader),
		Payload: payload,
	}
	if event.Name == "" {
		writeJSON(w, http.StatusBadRequest, "missing "+EventHeader+" header")
		return
	}

	if !ValidateSignature(payload, r.Header.Get(SignatureHeader), a.webhookSecret) {
		a.logf(LevelWarn, "signature does not match event payload and secret", "id", event.ID)
		writeJSON(w, http.StatusUnauthorized, "signature does not match event payload and secret")
		return
	}

	c, err := a.newContext(event)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.dispatch(r.Context(), c); err != nil {
		a.logf(LevelError, "handler failed", "event", c.Key(), "id", c.ID, "error", err)
		writeJSON(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, "")
}

// dispatch runs the handlers for the event and for event.action in order
func (a *App) dispatch(ctx context.Context, c *Context) error {
	a.mu.RLock()
	handlers := append([]HandlerFunc(nil), a.handlers[c.Name]...)
	if c.Action != "" {
		handlers = append(handlers, a.handlers[c.Key()]...)
	}
	a.mu.RUnlock()

	a.logf(LevelDebug, "dispatching", "event", c.Key(), "id", c.ID, "handlers", len(handlers))

	var errs []error
	for _, fn := range handlers {
		if err := fn(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) logf(level Level, args ...any) {
	if a.Log == nil || level < a.level {
		return
	}
	a.Log(append([]any{level.String() + ":"}, args...)...)
}

func writeJSON(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	body := map[string]any{"ok": status < http.StatusBadRequest}
	if message != "" {
		body["message"] = message
	}
	json.NewEncoder(w).Encode(body) //nolint:errcheck,gosec
}
