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
	"path"
	"strings"

	"sigs.k8s.io/controller-runtime/pkg/log"
)

// Resolver fetches logical secrets from a Store
type Resolver struct {
	store Store
}

// NewResolver creates a Resolver backed by the given store
func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve fetches names under basePath and returns their values keyed by the
// last path segment of each name. It returns a *SecretResolutionError and a
// nil map if any name is missing.
func (r *Resolver) Resolve(ctx context.Context, basePath string, names ...string) (map[string]string, error) {
	logger := log.FromContext(ctx)

	qualified := make([]string, 0, len(names))
	for _, name := range names {
		qualified = append(qualified, Qualify(basePath, name))
	}

	logger.V(1).Info("Resolving secrets", "names", qualified)
	result, err := r.store.GetParameters(ctx, qualified)
	if err != nil {
		return nil, &SecretResolutionError{Err: err}
	}

	if len(result.Invalid) > 0 {
		return nil, &SecretResolutionError{Missing: result.Invalid}
	}

	values := make(map[string]string, len(qualified))
	found := make(map[string]bool, len(result.Parameters))
	for _, p := range result.Parameters {
		values[ShortName(p.Name)] = p.Value
		found[p.Name] = true
	}

	// A store may omit a name without flagging it
	var missing []string
	for _, name := range qualified {
		if !found[name] {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &SecretResolutionError{Missing: missing}
	}

	return values, nil
}

// Qualify returns name unchanged if it is already absolute, otherwise it is
// joined to basePath with a "/" separator.
func Qualify(basePath, name string) string {
	if strings.HasPrefix(name, "/") {
		return name
	}
	return basePath + "/" + name
}

// ShortName returns the last path segment of a qualified name
func ShortName(name string) string {
	return path.Base(name)
}

// splitName splits a qualified name into its directory and key,
// e.g. "/renovate/prod/APP_ID" into "renovate/prod" and "APP_ID".
func splitName(name string) (dir, key string) {
	dir, key = path.Split(name)
	return strings.Trim(dir, "/"), key
}
