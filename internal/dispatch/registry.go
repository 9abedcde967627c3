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

	"github.com/mikelane/renovate-approve-bot/internal/bot"
)

// loggingRegistry guarantees every callback registered through it receives a
// Context with a usable logger
type loggingRegistry struct {
	next     bot.Registry
	fallback bot.Logger
}

var _ bot.Registry = (*loggingRegistry)(nil)

func withFallbackLogger(next bot.Registry, fallback bot.Logger) bot.Registry {
	return &loggingRegistry{next: next, fallback: fallback}
}

func (r *loggingRegistry) On(event string, fn bot.HandlerFunc) {
	r.next.On(event, func(ctx context.Context, c *bot.Context) error {
		c.Log = c.Log.OrElse(r.fallback)
		return fn(ctx, c)
	})
}

func (r *loggingRegistry) Logger() bot.Logger {
	return r.next.Logger().OrElse(r.fallback)
}
