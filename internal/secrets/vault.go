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
	"errors"
	"fmt"

	"github.com/hashicorp/vault/api"
)

// kvReader is the subset of api.KVv2 used by VaultStore
type kvReader interface {
	Get(ctx context.Context, secretPath string) (*api.KVSecret, error)
}

// VaultStore reads fields of KV v2 secrets from Vault or OpenBao.
//
// The qualified name "/renovate/prod/APP_ID" is read from field APP_ID of the
// secret at "renovate/prod" under the configured mount.
type VaultStore struct {
	kv kvReader
}

// NewVaultStore wraps an existing client, reading from the given KV v2 mount
func NewVaultStore(vaultClient *api.Client, mount string) *VaultStore {
	return &VaultStore{kv: vaultClient.KVv2(mount)}
}

// NewVaultStoreFromEnv creates a client from VAULT_ADDR and VAULT_TOKEN
func NewVaultStoreFromEnv(mount string) (*VaultStore, error) {
	vaultClient, err := api.NewClient(api.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	return NewVaultStore(vaultClient, mount), nil
}

// GetParameters implements Store. Each distinct secret path is read once.
func (s *VaultStore) GetParameters(ctx context.Context, names []string) (*Result, error) {
	result := &Result{}
	fetched := make(map[string]*api.KVSecret)

	for _, name := range names {
		dir, key := splitName(name)

		secret, ok := fetched[dir]
		if !ok {
			var err error
			secret, err = s.kv.Get(ctx, dir)
			if err != nil {
				if !errors.Is(err, api.ErrSecretNotFound) {
					return nil, fmt.Errorf("failed to read %s: %w", dir, err)
				}
				secret = nil
			}
			fetched[dir] = secret
		}

		if secret == nil {
			result.Invalid = append(result.Invalid, name)
			continue
		}

		value, ok := secret.Data[key].(string)
		if !ok {
			result.Invalid = append(result.Invalid, name)
			continue
		}
		result.Parameters = append(result.Parameters, Parameter{Name: name, Value: value})
	}

	return result, nil
}
