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

// Package bot is a small GitHub App runtime: it verifies webhook deliveries,
// parses them and dispatches them to subscribed handlers.
//
// An App is built from the three credentials every GitHub App has:
//
//	app, err := bot.New(bot.Credentials{
//		AppID:         "12345",
//		PrivateKey:    pemKey,
//		WebhookSecret: secret,
//	}, bot.WithLogLevel(bot.LevelDebug))
//	if err != nil {
//		return err
//	}
//
//	app.On("pull_request.opened", func(ctx context.Context, c *bot.Context) error {
//		c.Log("opened", c.Repo())
//		return nil
//	})
//
//	http.Handle("/webhooks", app)
//
// Webhook Security:
//
// Every delivery must carry an X-Hub-Signature-256 header containing the
// HMAC-SHA256 of the body keyed with the webhook secret. Deliveries with an
// invalid or missing signature are rejected with HTTP 401 before any handler
// runs.
//
// Event Routing:
//
// Handlers subscribe either to an event ("pull_request") or to an event and
// action ("pull_request.opened"). A delivery runs the handlers of both keys in
// registration order. Handler errors are joined and answered with HTTP 500;
// otherwise the delivery is acknowledged with HTTP 200.
//
// Logging:
//
// Logger is an optional capability. A nil Logger means the App or Context has
// no logger; Logger.OrElse resolves the absent case to a fallback once.
package bot
