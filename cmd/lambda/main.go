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

// Command lambda is the AWS Lambda entry point behind the API Gateway
// POST /webhooks route.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/mikelane/renovate-approve-bot/internal/approve"
	"github.com/mikelane/renovate-approve-bot/internal/config"
	"github.com/mikelane/renovate-approve-bot/internal/dispatch"
	"github.com/mikelane/renovate-approve-bot/internal/secrets"
)

func main() {
	ctx := context.Background()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := config.NewLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}

	tp, err := cfg.InstallTracerProvider(ctx)
	if err != nil {
		logger.Error(err, "Failed to set up tracing")
		os.Exit(1)
	}
	// The store client is created once per cold start; secrets are resolved
	// on every invocation.
	store, err := secrets.Open(ctx, cfg)
	if err != nil {
		logger.Error(err, "Failed to open secret store", "backend", cfg.SecretBackend)
		os.Exit(1)
	}

	o := dispatch.New(store, cfg.SSMPath, approve.Register(approve.ConfigFrom(cfg)),
		dispatch.WithLogger(logger), dispatch.WithTracerProvider(tp))

	// Spans are flushed after every invocation; the provider is shut down
	// when the runtime sends SIGTERM.
	lambda.StartWithOptions(o.HandleLambda, lambda.WithEnableSIGTERM(func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Error(err, "Failed to shut down tracer provider")
		}
	}))
}
