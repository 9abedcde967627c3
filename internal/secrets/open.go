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

	"github.com/mikelane/renovate-approve-bot/internal/config"
)

// Open creates the Store selected by cfg.SecretBackend
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.SecretBackend {
	case config.BackendSSM, "":
		return NewSSMStoreFromEnv(ctx)
	case config.BackendKubernetes:
		return NewKubernetesStoreFromEnv(cfg.SecretNamespace)
	case config.BackendVault:
		return NewVaultStoreFromEnv(cfg.VaultMount)
	default:
		return nil, fmt.Errorf("unsupported secret backend %q", cfg.SecretBackend)
	}
}
