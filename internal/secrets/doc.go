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

// Package secrets resolves the bot's credentials from a hierarchical secret store.
//
// A Resolver qualifies logical secret names against a base path, fetches them
// in a single batched call and returns them keyed by their short name:
//
//	resolver := secrets.NewResolver(store)
//	values, err := resolver.Resolve(ctx, "/renovate/prod", "APP_ID", "PRIVATE_KEY")
//	if err != nil {
//	    return err
//	}
//	appID := values["APP_ID"]
//
// Names that already start with "/" are used verbatim. Every other name is
// prefixed with the base path. Nothing is cached: each call goes back to the
// store so rotated credentials are picked up on the next invocation.
//
// Backends:
//   - SSMStore: AWS Systems Manager Parameter Store (GetParameters with decryption)
//   - KubernetesStore: keys of Kubernetes Secrets, one Secret per path
//   - VaultStore: fields of HashiCorp Vault / OpenBao KV v2 secrets
//
// Any missing name, or any failure of the store call itself, is reported as a
// *SecretResolutionError and no partial result is returned.
package secrets
