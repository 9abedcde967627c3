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

package github

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/go-github/v66/github"
)

// ErrInvalidPrivateKey is returned when the App private key cannot be parsed
var ErrInvalidPrivateKey = errors.New("invalid GitHub App private key")

// AppAuth authenticates as a GitHub App and mints installation tokens
type AppAuth struct {
	appID   string
	key     *rsa.PrivateKey
	baseURL *url.URL
	now     func() time.Time
}

// AppOption configures an AppAuth
type AppOption func(*AppAuth) error

// WithBaseURL points the App at a GitHub Enterprise or test API root
func WithBaseURL(raw string) AppOption {
	return func(a *AppAuth) error {
		if !strings.HasSuffix(raw, "/") {
			raw += "/"
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid base URL %q: %w", raw, err)
		}
		a.baseURL = u
		return nil
	}
}

// NewAppAuth parses the App's PEM private key.
// The key may also be base64-encoded or carry escaped "\n" sequences, which is
// how multi-line values usually end up in parameter stores.
func NewAppAuth(appID string, privateKey string, opts ...AppOption) (*AppAuth, error) {
	if appID == "" {
		return nil, errors.New("app ID is empty")
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(normalizePrivateKey(privateKey)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}

	a := &AppAuth{
		appID: appID,
		key:   key,
		now:   time.Now,
	}
	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// AppID returns the App identifier used as JWT issuer
func (a *AppAuth) AppID() string {
	return a.appID
}

// JWT returns a signed App token valid for nine minutes. Issued-at is
// backdated by a minute to tolerate clock drift against GitHub.
func (a *AppAuth) JWT() (string, error) {
	now := a.now()
	claims := jwt.RegisteredClaims{
		Issuer:    a.appID,
		IssuedAt:  jwt.NewNumericDate(now.Add(-time.Minute)),
		ExpiresAt: jwt.NewNumericDate(now.Add(9 * time.Minute)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(a.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign app token: %w", err)
	}
	return signed, nil
}

// InstallationToken exchanges the App JWT for an installation access token
func (a *AppAuth) InstallationToken(ctx context.Context, installationID int64) (string, error) {
	appToken, err := a.JWT()
	if err != nil {
		return "", err
	}

	appClient, err := newClient(appToken, a.baseURL)
	if err != nil {
		return "", err
	}

	var token *github.InstallationToken
	err = appClient.executeWithRetry(ctx, func() error {
		token, _, err = appClient.client.Apps.CreateInstallationToken(ctx, installationID, nil)
		return err
	})
	if err != nil {
		return "", fmt.Errorf("failed to create installation token: %w", err)
	}

	return token.GetToken(), nil
}

// InstallationClient returns a Client acting as the given installation
func (a *AppAuth) InstallationClient(ctx context.Context, installationID int64) (Client, error) {
	token, err := a.InstallationToken(ctx, installationID)
	if err != nil {
		return nil, err
	}
	return newClient(token, a.baseURL)
}

func normalizePrivateKey(key string) string {
	key = strings.TrimSpace(key)
	if !strings.HasPrefix(key, "-----BEGIN") {
		if decoded, err := base64.StdEncoding.DecodeString(key); err == nil {
			key = strings.TrimSpace(string(decoded))
		}
	}
	if !strings.Contains(key, "\n") {
		key = strings.ReplaceAll(key, `\n`, "\n")
	}
	return key
}
