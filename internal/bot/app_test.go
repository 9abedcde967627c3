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
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	gogithub "github.com/google/go-github/v66/github"

	"github.com/mikelane/renovate-approve-bot/internal/github"
)

const testSecret = "test-webhook-secret"

const prOpenedPayload = `{
	"action": "opened",
	"number": 7,
	"pull_request": {"number": 7, "state": "open", "user": {"login": "renovate[bot]"}, "head": {"sha": "abc123"}},
	"repository": {"name": "previewd", "owner": {"login": "mikelane"}},
	"installation": {"id": 42}
}`

func testPrivateKey(t *testing.T) string {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	}))
}

func newTestApp(t *testing.T, opts ...Option) *App {
	t.Helper()

	app, err := New(Credentials{
		AppID:         "12345",
		PrivateKey:    testPrivateKey(t),
		WebhookSecret: testSecret,
	}, opts...)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	return app
}

func signedRequest(event, payload string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/webhooks", bytes.NewReader([]byte(payload)))
	req.Header.Set(EventHeader, event)
	req.Header.Set(DeliveryHeader, "delivery-1")
	req.Header.Set(SignatureHeader, sign([]byte(payload), testSecret))
	return req
}

func TestNew_ConstructionErrors(t *testing.T) {
	pemKey := testPrivateKey(t)

	tests := []struct {
		name  string
		creds Credentials
		isKey bool
	}{
		{
			name:  "Empty webhook secret",
			creds: Credentials{AppID: "1", PrivateKey: pemKey},
		},
		{
			name:  "Empty app ID",
			creds: Credentials{PrivateKey: pemKey, WebhookSecret: testSecret},
		},
		{
			name:  "Unparseable private key",
			creds: Credentials{AppID: "1", PrivateKey: "not-a-key", WebhookSecret: testSecret},
			isKey: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, err := New(tt.creds)
			if app != nil {
				t.Error("New() returned an App alongside an error")
			}

			var rcErr *RuntimeConstructionError
			if !errors.As(err, &rcErr) {
				t.Fatalf("New() error = %v, expected *RuntimeConstructionError", err)
			}
			if tt.isKey && !errors.Is(err, github.ErrInvalidPrivateKey) {
				t.Errorf("New() error = %v, expected it to wrap ErrInvalidPrivateKey", err)
			}
		})
	}
}

func TestNew_Options(t *testing.T) {
	var called bool
	app := newTestApp(t, WithLogLevel(LevelDebug), WithLogger(func(...any) { called = true }))

	if app.Level() != LevelDebug {
		t.Errorf("Level() = %v, expected debug", app.Level())
	}
	if app.Logger() == nil {
		t.Fatal("Logger() is nil after WithLogger")
	}
	app.Logger()("hello")
	if !called {
		t.Error("Logger() does not return the configured logger")
	}

	if newTestApp(t).Logger() != nil {
		t.Error("Logger() is non-nil without WithLogger")
	}
}

func TestServeHTTP_Rejections(t *testing.T) {
	app := newTestApp(t)
	app.On("pull_request", func(context.Context, *Context) error {
		t.Error("handler ran for a rejected delivery")
		return nil
	})

	badJSON := signedRequest("pull_request", `{invalid json}`)

	badSig := signedRequest("pull_request", prOpenedPayload)
	badSig.Header.Set(SignatureHeader, "sha256=invalid")

	noEvent := signedRequest("pull_request", prOpenedPayload)
	noEvent.Header.Del(EventHeader)

	tests := []struct {
		name string
		req  *http.Request
		want int
	}{
		{"GET", httptest.NewRequest(http.MethodGet, "/webhooks", nil), http.StatusMethodNotAllowed},
		{"Missing event header", noEvent, http.StatusBadRequest},
		{"Invalid signature", badSig, http.StatusUnauthorized},
		{"Invalid JSON", badJSON, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			app.ServeHTTP(w, tt.req)

			if w.Code != tt.want {
				t.Errorf("ServeHTTP returns %d, expected %d", w.Code, tt.want)
			}
		})
	}
}

func TestServeHTTP_DispatchOrder(t *testing.T) {
	app := newTestApp(t)

	var calls []string
	app.On("pull_request.closed", func(context.Context, *Context) error {
		calls = append(calls, "closed")
		return nil
	})
	app.On("pull_request.opened", func(context.Context, *Context) error {
		calls = append(calls, "opened-1")
		return nil
	})
	app.On("pull_request", func(context.Context, *Context) error {
		calls = append(calls, "any")
		return nil
	})
	app.On("pull_request.opened", func(context.Context, *Context) error {
		calls = append(calls, "opened-2")
		return nil
	})

	w := httptest.NewRecorder()
	app.ServeHTTP(w, signedRequest("pull_request", prOpenedPayload))

	if w.Code != http.StatusOK {
		t.Fatalf("ServeHTTP returns %d, expected %d", w.Code, http.StatusOK)
	}
	want := []string{"any", "opened-1", "opened-2"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Errorf("handlers ran as %v, expected %v", calls, want)
	}

	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if body["ok"] != true {
		t.Errorf("response body = %v, expected ok=true", body)
	}
}

func TestServeHTTP_HandlerErrors(t *testing.T) {
	app := newTestApp(t)

	var ranSecond bool
	app.On("pull_request.opened", func(context.Context, *Context) error {
		return errors.New("first failed")
	})
	app.On("pull_request.opened", func(context.Context, *Context) error {
		ranSecond = true
		return nil
	})

	w := httptest.NewRecorder()
	app.ServeHTTP(w, signedRequest("pull_request", prOpenedPayload))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("ServeHTTP returns %d, expected %d", w.Code, http.StatusInternalServerError)
	}
	if !ranSecond {
		t.Error("a failing handler stopped later handlers from running")
	}
	if !strings.Contains(w.Body.String(), "first failed") {
		t.Errorf("response body %q does not report the handler error", w.Body.String())
	}
}

func TestServeHTTP_ContextFields(t *testing.T) {
	app := newTestApp(t)

	var got *Context
	app.On("pull_request.opened", func(_ context.Context, c *Context) error {
		got = c
		return nil
	})

	w := httptest.NewRecorder()
	app.ServeHTTP(w, signedRequest("pull_request", prOpenedPayload))

	if got == nil {
		t.Fatal("handler did not run")
	}
	if got.Key() != "pull_request.opened" || got.ID != "delivery-1" || got.InstallationID != 42 {
		t.Errorf("Context = {%s %s %d}, expected {pull_request.opened delivery-1 42}", got.Key(), got.ID, got.InstallationID)
	}
	if owner, repo := got.Repo(); owner != "mikelane" || repo != "previewd" {
		t.Errorf("Repo() = %s/%s, expected mikelane/previewd", owner, repo)
	}
	event, ok := got.Payload.(*gogithub.PullRequestEvent)
	if !ok {
		t.Fatalf("Payload is %T, expected *github.PullRequestEvent", got.Payload)
	}
	if event.GetPullRequest().GetHead().GetSHA() != "abc123" {
		t.Errorf("Payload head SHA = %q, expected abc123", event.GetPullRequest().GetHead().GetSHA())
	}
	if got.Log != nil {
		t.Error("Context.Log is non-nil for an App without a logger")
	}
}

func TestReceive_UnknownEvent(t *testing.T) {
	app := newTestApp(t)

	var got *Context
	app.On("made_up_event", func(_ context.Context, c *Context) error {
		got = c
		return nil
	})

	if err := app.Receive(context.Background(), Event{Name: "made_up_event", Payload: []byte(`{"hello":"world"}`)}); err != nil {
		t.Fatalf("Receive() unexpected error: %v", err)
	}
	if got == nil {
		t.Fatal("handler did not run for an unknown event type")
	}
	if got.Payload != nil {
		t.Errorf("Payload = %T, expected nil for an unknown event type", got.Payload)
	}
	if got.Key() != "made_up_event" {
		t.Errorf("Key() = %q, expected made_up_event", got.Key())
	}
}

func TestServeHTTP_DebugLogging(t *testing.T) {
	var lines []string
	logger := func(args ...any) {
		lines = append(lines, fmt.Sprint(args...))
	}

	quiet := newTestApp(t, WithLogger(logger))
	quiet.ServeHTTP(httptest.NewRecorder(), signedRequest("pull_request", prOpenedPayload))
	if len(lines) != 0 {
		t.Errorf("info-level App logged %v, expected nothing", lines)
	}

	verbose := newTestApp(t, WithLogger(logger), WithLogLevel(LevelDebug))
	verbose.ServeHTTP(httptest.NewRecorder(), signedRequest("pull_request", prOpenedPayload))
	if len(lines) == 0 || !strings.HasPrefix(lines[0], "debug:") {
		t.Errorf("debug-level App logged %v, expected a debug line", lines)
	}
}

func TestContextGitHub(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/app/installations/42/access_tokens":
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]string{"token": "ghs_installation"}) //nolint:errcheck,gosec
		case "/repos/mikelane/previewd/pulls/7":
			if r.Header.Get("Authorization") != "Bearer ghs_installation" {
				t.Errorf("pull request fetched with Authorization %q", r.Header.Get("Authorization"))
			}
			json.NewEncoder(w).Encode(map[string]any{"number": 7, "state": "open"}) //nolint:errcheck,gosec
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	app := newTestApp(t, WithGitHubBaseURL(ts.URL))

	var pr *github.PullRequest
	app.On("pull_request.opened", func(ctx context.Context, c *Context) error {
		client, err := c.GitHub(ctx)
		if err != nil {
			return err
		}
		owner, repo := c.Repo()
		pr, err = client.GetPullRequest(ctx, owner, repo, 7)
		return err
	})

	if err := app.Receive(context.Background(), Event{Name: "pull_request", Payload: []byte(prOpenedPayload)}); err != nil {
		t.Fatalf("Receive() unexpected error: %v", err)
	}
	if pr == nil || pr.Number != 7 {
		t.Errorf("GetPullRequest() = %+v, expected PR 7", pr)
	}
}

func TestContextGitHub_NoInstallation(t *testing.T) {
	c := &Context{Name: "ping"}

	if _, err := c.GitHub(context.Background()); !errors.Is(err, ErrNoInstallation) {
		t.Errorf("GitHub() error = %v, expected ErrNoInstallation", err)
	}
}
