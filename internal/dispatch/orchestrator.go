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
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/mikelane/renovate-approve-bot/internal/bot"
	"github.com/mikelane/renovate-approve-bot/internal/secrets"
)

// Secret names resolved under the configured path
const (
	AppIDSecret         = "APP_ID"
	PrivateKeySecret    = "PRIVATE_KEY"
	WebhookSecretSecret = "WEBHOOK_SECRET"
)

const tracerName = "github.com/mikelane/renovate-approve-bot/internal/dispatch"

// AppFactory constructs the bot runtime from resolved credentials
type AppFactory func(creds bot.Credentials, opts ...bot.Option) (*bot.App, error)

// Orchestrator runs one webhook invocation end to end
type Orchestrator struct {
	resolver *secrets.Resolver
	path     string
	register bot.RegisterFunc

	log      logr.Logger
	fallback bot.Logger
	newApp   AppFactory
	appOpts  []bot.Option
	tracer   trace.Tracer
	flush    func(context.Context) error
}

// Option configures an Orchestrator
type Option func(*Orchestrator)

// WithLogger sets the process logger. It also becomes the fallback handed to
// handlers and the App when they have none.
func WithLogger(l logr.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
		o.fallback = bot.FromLogr(l)
	}
}

// WithFallback overrides the logger injected into Contexts without one
func WithFallback(l bot.Logger) Option {
	return func(o *Orchestrator) { o.fallback = l }
}

// WithAppFactory replaces bot.New
func WithAppFactory(f AppFactory) Option {
	return func(o *Orchestrator) { o.newApp = f }
}

// WithAppOptions appends options passed to the App after the fixed ones
func WithAppOptions(opts ...bot.Option) Option {
	return func(o *Orchestrator) { o.appOpts = append(o.appOpts, opts...) }
}

// WithTracerProvider sets the provider spans are created from. Defaults to
// the global provider. A provider with a ForceFlush method is flushed after
// every Lambda invocation, before the execution environment is frozen.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *Orchestrator) {
		o.tracer = tp.Tracer(tracerName)
		if f, ok := tp.(interface{ ForceFlush(context.Context) error }); ok {
			o.flush = f.ForceFlush
		}
	}
}

// New creates an Orchestrator reading credentials from store under path and
// registering handlers with register
func New(store secrets.Store, path string, register bot.RegisterFunc, opts ...Option) *Orchestrator {
	logger := log.Log.WithName("dispatch")
	o := &Orchestrator{
		resolver: secrets.NewResolver(store),
		path:     path,
		register: register,
		log:      logger,
		fallback: bot.FromLogr(logger),
		newApp:   bot.New,
		tracer:   otel.GetTracerProvider().Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Prepare resolves the credentials, builds and decorates the App and runs
// handler registration. The returned App is ready to serve one request.
func (o *Orchestrator) Prepare(ctx context.Context) (*bot.App, error) {
	ctx = log.IntoContext(ctx, o.log)

	creds, err := o.resolve(ctx)
	if err != nil {
		return nil, err
	}

	app, err := o.construct(ctx, creds)
	if err != nil {
		return nil, err
	}

	registry := withFallbackLogger(app, o.fallback)
	app.Log = app.Log.OrElse(o.fallback)

	if err := o.register(registry); err != nil {
		o.log.Error(err, "Handler registration failed")
		return nil, err
	}
	return app, nil
}

func (o *Orchestrator) resolve(ctx context.Context) (bot.Credentials, error) {
	ctx, span := o.tracer.Start(ctx, "dispatch.resolve",
		trace.WithAttributes(attribute.String("secrets.path", o.path)))
	defer span.End()

	values, err := o.resolver.Resolve(ctx, o.path, AppIDSecret, PrivateKeySecret, WebhookSecretSecret)
	if err != nil {
		endWithError(span, err)
		o.log.Error(err, "Failed to resolve app credentials", "path", o.path)
		return bot.Credentials{}, err
	}

	return bot.Credentials{
		AppID:         values[AppIDSecret],
		PrivateKey:    values[PrivateKeySecret],
		WebhookSecret: values[WebhookSecretSecret],
	}, nil
}

func (o *Orchestrator) construct(ctx context.Context, creds bot.Credentials) (*bot.App, error) {
	_, span := o.tracer.Start(ctx, "dispatch.construct",
		trace.WithAttributes(attribute.String("github.app_id", creds.AppID)))
	defer span.End()

	opts := append([]bot.Option{bot.WithLogLevel(bot.LevelDebug)}, o.appOpts...)
	app, err := o.newApp(creds, opts...)
	if err != nil {
		endWithError(span, err)
		o.log.Error(err, "Failed to construct bot runtime")
		return nil, err
	}
	return app, nil
}

// ServeHTTP prepares a fresh App for the request and delegates to it.
// Preparation failures are answered with a bare 500.
func (o *Orchestrator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, span := o.tracer.Start(r.Context(), "dispatch.invoke",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("github.event", r.Header.Get(bot.EventHeader))))
	defer span.End()

	app, err := o.Prepare(ctx)
	if err != nil {
		endWithError(span, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	app.ServeHTTP(w, r.WithContext(ctx))
}

// HandleLambda is the Lambda entry point for API Gateway v2 HTTP events.
// Preparation failures are returned as invocation errors. Otherwise the App's
// response, whatever its status, is returned with a nil error.
func (o *Orchestrator) HandleLambda(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	resp, err := o.handleLambda(ctx, req)
	if o.flush != nil {
		if ferr := o.flush(ctx); ferr != nil {
			o.log.Error(ferr, "Failed to flush spans")
		}
	}
	return resp, err
}

func (o *Orchestrator) handleLambda(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	ctx, span := o.tracer.Start(ctx, "dispatch.invoke",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attribute.String("aws.request_id", req.RequestContext.RequestID)))
	defer span.End()

	app, err := o.Prepare(ctx)
	if err != nil {
		endWithError(span, err)
		return events.APIGatewayV2HTTPResponse{}, err
	}

	return httpadapter.NewV2(app).ProxyWithContext(ctx, req)
}

func endWithError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
