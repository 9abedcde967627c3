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

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	ctrlconfig "sigs.k8s.io/controller-runtime/pkg/client/config"
)

// KubernetesStore maps each secret path onto a Kubernetes Secret.
//
// The qualified name "/renovate/prod/APP_ID" is read from key APP_ID of the
// Secret "renovate-prod" in the store's namespace.
type KubernetesStore struct {
	client    client.Client
	namespace string
}

// NewKubernetesStore wraps an existing controller-runtime client
func NewKubernetesStore(k8sClient client.Client, namespace string) *KubernetesStore {
	return &KubernetesStore{client: k8sClient, namespace: namespace}
}

// NewKubernetesStoreFromEnv builds a client from in-cluster config or KUBECONFIG
func NewKubernetesStoreFromEnv(namespace string) (*KubernetesStore, error) {
	cfg, err := ctrlconfig.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubeconfig: %w", err)
	}

	k8sClient, err := client.New(cfg, client.Options{Scheme: clientgoscheme.Scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	return NewKubernetesStore(k8sClient, namespace), nil
}

// GetParameters implements Store. Each distinct Secret is fetched once.
func (s *KubernetesStore) GetParameters(ctx context.Context, names []string) (*Result, error) {
	result := &Result{}
	fetched := make(map[string]*corev1.Secret)

	for _, name := range names {
		dir, key := splitName(name)
		secretName := secretObjectName(dir)

		secret, ok := fetched[secretName]
		if !ok {
			secret = &corev1.Secret{}
			err := s.client.Get(ctx, client.ObjectKey{Namespace: s.namespace, Name: secretName}, secret)
			if err != nil {
				if !apierrors.IsNotFound(err) {
					return nil, fmt.Errorf("failed to get secret %s/%s: %w", s.namespace, secretName, err)
				}
				secret = nil
			}
			fetched[secretName] = secret
		}

		if secret == nil {
			result.Invalid = append(result.Invalid, name)
			continue
		}

		value, ok := secret.Data[key]
		if !ok {
			result.Invalid = append(result.Invalid, name)
			continue
		}
		result.Parameters = append(result.Parameters, Parameter{Name: name, Value: string(value)})
	}

	return result, nil
}

// secretObjectName converts a secret path to a valid Secret name
func secretObjectName(dir string) string {
	s := strings.ToLower(dir)
	s = strings.ReplaceAll(s, "/", "-")
	s = strings.ReplaceAll(s, "_", "-")
	if len(s) > 253 {
		s = s[:253]
	}
	return s
}
