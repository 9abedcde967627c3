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

// Package github provides GitHub App authentication and the REST calls the
// bot makes on behalf of an installation.
//
// Key features:
//   - Sign GitHub App JWTs (RS256) from the App ID and private key
//   - Exchange the App JWT for short-lived installation tokens
//   - Fetch pull request metadata and reviews
//   - Submit approving reviews
//   - Retry logic with exponential backoff and jitter
//
// Authentication:
//
// GitHub Apps authenticate in two steps. The App signs a JWT with its private
// key and uses it to request an installation access token. The installation
// token is then used for every repository call:
//
//	auth, err := github.NewAppAuth(appID, privateKeyPEM)
//	if err != nil {
//	    return err
//	}
//	client, err := auth.InstallationClient(ctx, installationID)
//	if err != nil {
//	    return err
//	}
//	err = client.ApprovePullRequest(ctx, "owner", "repo", 42, headSHA, "")
//
// Installation tokens are not cached. Every invocation of the bot mints its
// own token, matching the per-invocation lifetime of the credentials.
//
// Retry Logic:
//
// Failed requests are retried with exponential backoff:
//   - Initial backoff: 100 milliseconds
//   - Maximum backoff: 2 seconds
//   - Maximum retries: 3
//   - Backoff factor: 2.0
//
// Retries are performed for rate limits and 502/503/504 responses.
// Other client errors are not retried.
package github
