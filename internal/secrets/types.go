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

package secrets

import (
	"context"
	"fmt"
	"strings"
)

// Store is a key/value secret store queried by fully-qualified name
type Store interface {
	// GetParameters looks up all names in one batched call, decrypting values.
	// Names the store cannot resolve are reported in Result.Invalid rather
	// than as an error.
	GetParameters(ctx context.Context, names []string) (*Result, error)
}

// Parameter is a single resolved secret
type Parameter struct {
	Name  string
	Value string
}

// Result is the response of a batched lookup
type Result struct {
	Parameters []Parameter
	Invalid    []string
}

// SecretResolutionError reports that a required secret could not be resolved.
// Missing holds the names the store reported as invalid or did not return.
// Err holds the underlying failure when the store call itself failed.
type SecretResolutionError struct {
	Missing []string
	Err     error
}

func (e *SecretResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to resolve secrets: %v", e.Err)
	}
	return fmt.Sprintf("invalid parameters: %s", strings.Join(e.Missing, ", "))
}

func (e *SecretResolutionError) Unwrap() error {
	return e.Err
}
