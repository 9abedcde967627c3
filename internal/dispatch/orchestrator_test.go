/*
Copyright (c) 2025 Mike Lane

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in all
copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
SOFTWARE.
*/

package dispatch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/mikelane/renovate-approve-bot/internal/bot"
	"github.com/mikelane/renovate-approve-bot/internal/secrets"
)

const (
	testPath   = "/renovate-approve-bot/prod"
	testSecret = "test-webhook-secret"
	prPayload  = `{"action":"opened","number":7,"installation":{"id":42},"repository":{"name":"previewd","owner":{"login":"mikelane"}}}`
)

var _ = Describe("Orchestrator", func() {
	var (
		store     *fakeStore
		recorder  *tracetest.SpanRecorder
		fallback  bot.Logger
		fellBack  []string
		built     int
		factory   AppFactory
		newOrch   func(register bot.RegisterFunc, opts ...Option) *Orchestrator
		signedReq func(payload, signature string) *http.Request
	)

	BeforeEach(func() {
		store = &fakeStore{values: map[string]string{
			testPath + "/APP_ID":         "12345",
			testPath + "/PRIVATE_KEY":    testPrivateKey,
			testPath + "/WEBHOOK_SECRET": testSecret,
		}}
		recorder = tracetest.NewSpanRecorder()
		fellBack = nil
		fallback = func(args ...any) {
			fellBack = append(fellBack, "fallback")
		}
		built = 0
		factory = func(creds bot.Credentials, opts ...bot.Option) (*bot.App, error) {
			built++
			return bot.New(creds, opts...)
		}
		newOrch = func(register bot.RegisterFunc, opts ...Option) *Orchestrator {
			base := []Option{
				WithFallback(fallback),
				WithAppFactory(factory),
				WithTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))),
			}
			return New(store, testPath, register, append(base, opts...)...)
		}
		signedReq = func(payload, signature string) *http.Request {
			req := httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader(payload))
			req.Header.Set(bot.EventHeader, "pull_request")
			req.Header.Set(bot.SignatureHeader, signature)
			return req
		}
	})

	Context("When decorating the registry", func() {
		It("injects the fallback logger into contexts without one", func() {
			app, err := bot.New(bot.Credentials{AppID: "1", PrivateKey: testPrivateKey, WebhookSecret: testSecret})
			Expect(err).NotTo(HaveOccurred())

			var seen bot.Logger
			withFallbackLogger(app, fallback).On("pull_request", func(_ context.Context, c *bot.Context) error {
				seen = c.Log
				return nil
			})

			Expect(app.Receive(context.Background(), bot.Event{Name: "pull_request", Payload: []byte(prPayload)})).To(Succeed())
			Expect(seen).NotTo(BeNil())
			seen("hello")
			Expect(fellBack).To(Equal([]string{"fallback"}))
		})

		It("preserves a logger the context already has", func() {
			var sentinelCalls int
			sentinel := bot.Logger(func(...any) { sentinelCalls++ })
			app, err := bot.New(bot.Credentials{AppID: "1", PrivateKey: testPrivateKey, WebhookSecret: testSecret},
				bot.WithLogger(sentinel))
			Expect(err).NotTo(HaveOccurred())

			var seen bot.Logger
			withFallbackLogger(app, fallback).On("pull_request", func(_ context.Context, c *bot.Context) error {
				seen = c.Log
				return nil
			})

			Expect(app.Receive(context.Background(), bot.Event{Name: "pull_request", Payload: []byte(prPayload)})).To(Succeed())
			seen("hello")
			Expect(sentinelCalls).To(Equal(1))
			Expect(fellBack).To(BeEmpty())
		})

		It("injects the fallback into callbacks subscribed from inside a handler", func() {
			app, err := bot.New(bot.Credentials{AppID: "1", PrivateKey: testPrivateKey, WebhookSecret: testSecret})
			Expect(err).NotTo(HaveOccurred())

			registry := withFallbackLogger(app, fallback)
			var late bot.Logger
			subscribed := false
			registry.On("pull_request", func(context.Context, *bot.Context) error {
				if !subscribed {
					subscribed = true
					registry.On("pull_request.opened", func(_ context.Context, c *bot.Context) error {
						late = c.Log
						return nil
					})
				}
				return nil
			})

			event := bot.Event{Name: "pull_request", Payload: []byte(prPayload)}
			Expect(app.Receive(context.Background(), event)).To(Succeed())
			Expect(late).To(BeNil())

			Expect(app.Receive(context.Background(), event)).To(Succeed())
			Expect(late).NotTo(BeNil())
			late("hello")
			Expect(fellBack).To(Equal([]string{"fallback"}))
		})

		It("resolves the registry logger to the fallback", func() {
			app, err := bot.New(bot.Credentials{AppID: "1", PrivateKey: testPrivateKey, WebhookSecret: testSecret})
			Expect(err).NotTo(HaveOccurred())

			withFallbackLogger(app, fallback).Logger()("hello")
			Expect(fellBack).To(HaveLen(1))
		})
	})

	Context("When preparing the runtime", func() {
		It("never constructs the runtime when resolution fails", func() {
			store.err = context.DeadlineExceeded
			registered := false

			_, err := newOrch(func(bot.Registry) error {
				registered = true
				return nil
			}).Prepare(context.Background())

			var resErr *secrets.SecretResolutionError
			Expect(errors.As(err, &resErr)).To(BeTrue())
			Expect(errors.Is(err, context.DeadlineExceeded)).To(BeTrue())
			Expect(built).To(Equal(0))
			Expect(registered).To(BeFalse())
		})

		It("reports the missing secret and builds nothing", func() {
			delete(store.values, testPath+"/WEBHOOK_SECRET")

			_, err := newOrch(func(bot.Registry) error { return nil }).Prepare(context.Background())

			var resErr *secrets.SecretResolutionError
			Expect(errors.As(err, &resErr)).To(BeTrue())
			Expect(resErr.Missing).To(ConsistOf(testPath + "/WEBHOOK_SECRET"))
			Expect(built).To(Equal(0))
			Expect(store.calls).To(Equal(1))
		})

		It("constructs nothing until resolution succeeds", func() {
			store.failUntil = 2
			o := newOrch(func(bot.Registry) error { return nil })

			for i := 0; i < 2; i++ {
				_, err := o.Prepare(context.Background())
				Expect(errors.Is(err, errStoreUnavailable)).To(BeTrue())
				Expect(built).To(Equal(0))
			}

			app, err := o.Prepare(context.Background())
			Expect(err).NotTo(HaveOccurred())
			Expect(app).NotTo(BeNil())
			Expect(built).To(Equal(1))
			Expect(store.calls).To(Equal(3))
		})

		It("gives callbacks subscribed after preparation a logger", func() {
			var (
				registry bot.Registry
				late     bot.Logger
			)
			app, err := newOrch(func(r bot.Registry) error {
				registry = r
				r.On("pull_request.opened", func(context.Context, *bot.Context) error {
					if late == nil {
						registry.On("pull_request", func(_ context.Context, c *bot.Context) error {
							late = c.Log
							return nil
						})
					}
					return nil
				})
				return nil
			}).Prepare(context.Background())
			Expect(err).NotTo(HaveOccurred())

			event := bot.Event{Name: "pull_request", Payload: []byte(prPayload)}
			Expect(app.Receive(context.Background(), event)).To(Succeed())
			Expect(app.Receive(context.Background(), event)).To(Succeed())

			Expect(late).NotTo(BeNil())
			late("hello")
			Expect(fellBack).NotTo(BeEmpty())
		})

		It("propagates construction errors", func() {
			store.values[testPath+"/PRIVATE_KEY"] = "not-a-key"
			registered := false

			_, err := newOrch(func(bot.Registry) error {
				registered = true
				return nil
			}).Prepare(context.Background())

			var rcErr *bot.RuntimeConstructionError
			Expect(errors.As(err, &rcErr)).To(BeTrue())
			Expect(built).To(Equal(1))
			Expect(registered).To(BeFalse())
		})

		It("returns the registration error unmodified", func() {
			sentinel := errors.New("registration failed")

			_, err := newOrch(func(bot.Registry) error { return sentinel }).Prepare(context.Background())

			Expect(err).To(BeIdenticalTo(sentinel))
		})

		It("constructs the runtime at debug verbosity with a logger", func() {
			app, err := newOrch(func(bot.Registry) error { return nil }).Prepare(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(app.Level()).To(Equal(bot.LevelDebug))
			Expect(app.Log).NotTo(BeNil())
		})

		It("hands the handler module the decorated registry", func() {
			var got bot.Registry
			_, err := newOrch(func(r bot.Registry) error {
				got = r
				return nil
			}).Prepare(context.Background())

			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(BeAssignableToTypeOf(&loggingRegistry{}))
		})

		It("records a span per step", func() {
			_, err := newOrch(func(bot.Registry) error { return nil }).Prepare(context.Background())
			Expect(err).NotTo(HaveOccurred())

			var names []string
			for _, s := range recorder.Ended() {
				names = append(names, s.Name())
			}
			Expect(names).To(Equal([]string{"dispatch.resolve", "dispatch.construct"}))
		})
	})

	Context("When serving HTTP", func() {
		It("runs the registered handler once for a signed delivery", func() {
			calls := 0
			var log bot.Logger
			o := newOrch(func(r bot.Registry) error {
				r.On("pull_request.opened", func(_ context.Context, c *bot.Context) error {
					calls++
					log = c.Log
					return nil
				})
				return nil
			})

			w := httptest.NewRecorder()
			o.ServeHTTP(w, signedReq(prPayload, sign([]byte(prPayload), testSecret)))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(calls).To(Equal(1))
			Expect(log).NotTo(BeNil())
		})

		It("answers a bare 500 when a secret is missing", func() {
			delete(store.values, testPath+"/APP_ID")

			w := httptest.NewRecorder()
			newOrch(func(bot.Registry) error { return nil }).
				ServeHTTP(w, signedReq(prPayload, sign([]byte(prPayload), testSecret)))

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.Len()).To(BeZero())
			Expect(built).To(Equal(0))
		})

		It("returns the runtime's 401 for a bad signature", func() {
			w := httptest.NewRecorder()
			newOrch(func(bot.Registry) error { return nil }).
				ServeHTTP(w, signedReq(prPayload, "sha256=invalid"))

			Expect(w.Code).To(Equal(http.StatusUnauthorized))
		})
	})

	Context("When invoked through Lambda", func() {
		lambdaRequest := func(signature string) events.APIGatewayV2HTTPRequest {
			return events.APIGatewayV2HTTPRequest{
				RawPath: "/webhooks",
				Headers: map[string]string{
					"x-github-event":      "pull_request",
					"x-github-delivery":   "delivery-1",
					"x-hub-signature-256": signature,
					"content-type":        "application/json",
				},
				Body: prPayload,
				RequestContext: events.APIGatewayV2HTTPRequestContext{
					RequestID: "req-1",
					HTTP: events.APIGatewayV2HTTPRequestContextHTTPDescription{
						Method: http.MethodPost,
						Path:   "/webhooks",
					},
				},
			}
		}

		It("returns the runtime's response for a signed delivery", func() {
			calls := 0
			o := newOrch(func(r bot.Registry) error {
				r.On("pull_request", func(context.Context, *bot.Context) error {
					calls++
					return nil
				})
				return nil
			})

			resp, err := o.HandleLambda(context.Background(),
				lambdaRequest(sign([]byte(prPayload), testSecret)))

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(calls).To(Equal(1))
		})

		It("returns the 401 without an invocation error", func() {
			resp, err := newOrch(func(bot.Registry) error { return nil }).
				HandleLambda(context.Background(), lambdaRequest("sha256=invalid"))

			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})

		It("flushes batched spans before returning", func() {
			exporter := tracetest.NewInMemoryExporter()
			tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(time.Hour)))
			DeferCleanup(func() { _ = tp.Shutdown(context.Background()) })

			_, err := newOrch(func(bot.Registry) error { return nil }, WithTracerProvider(tp)).
				HandleLambda(context.Background(), lambdaRequest(sign([]byte(prPayload), testSecret)))
			Expect(err).NotTo(HaveOccurred())

			var names []string
			for _, s := range exporter.GetSpans() {
				names = append(names, s.Name)
			}
			Expect(names).To(ContainElements("dispatch.resolve", "dispatch.construct", "dispatch.invoke"))
		})

		It("flushes the failed invocation's span", func() {
			delete(store.values, testPath+"/APP_ID")
			exporter := tracetest.NewInMemoryExporter()
			tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(time.Hour)))
			DeferCleanup(func() { _ = tp.Shutdown(context.Background()) })

			_, err := newOrch(func(bot.Registry) error { return nil }, WithTracerProvider(tp)).
				HandleLambda(context.Background(), lambdaRequest("sha256=invalid"))
			Expect(err).To(HaveOccurred())

			var names []string
			for _, s := range exporter.GetSpans() {
				names = append(names, s.Name)
			}
			Expect(names).To(ContainElement("dispatch.invoke"))
		})

		It("fails the invocation when a secret is missing", func() {
			delete(store.values, testPath+"/PRIVATE_KEY")

			_, err := newOrch(func(bot.Registry) error { return nil }).
				HandleLambda(context.Background(), lambdaRequest("sha256=invalid"))

			var resErr *secrets.SecretResolutionError
			Expect(errors.As(err, &resErr)).To(BeTrue())
			Expect(built).To(Equal(0))
		})
	})
})
