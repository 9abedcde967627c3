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

// Package server runs the webhook handler as a long-lived HTTP server, the
// same code path the Lambda entry point uses, for self-hosting and local
// development.
//
// Routes:
//
//   - POST /webhooks: delegated to the handler passed to NewServer
//   - GET /healthz: liveness probe, always "OK"
//
// Rate Limiting:
//
// Deliveries are rate-limited per installation target using a fixed window
// token bucket keyed by the X-GitHub-Hook-Installation-Target-ID header. The
// default limit is 10 requests per second per target. Requests exceeding the
// limit receive HTTP 429 Too Many Requests before any secret is resolved.
//
// Example usage:
//
//	srv := server.NewServer("", 8080, orchestrator)
//	if err := srv.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package server
