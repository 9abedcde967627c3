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

// Package config reads the bot's runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
)

// Backend selects the secret store implementation
type Backend string

const (
	// BackendSSM reads secrets from AWS Systems Manager Parameter Store
	BackendSSM Backend = "ssm"
	// BackendKubernetes reads secrets from Kubernetes Secrets
	BackendKubernetes Backend = "kubernetes"
	// BackendVault reads secrets from a Vault KV v2 mount
	BackendVault Backend = "vault"
)

// DefaultRenovateBotUser is the login Renovate uses when installed as a GitHub App
const DefaultRenovateBotUser = "renovate[bot]"

// Config holds settings read once at invocation start
type Config struct {
	// SSMPath is the secret path prefix, e.g. /renovate/prod
	SSMPath string
	// RenovateBotUser is the author of dependency update pull requests
	RenovateBotUser string
	// RenovateApproveBotUser is the login this App reviews as
	RenovateApproveBotUser string

	SecretBackend   Backend
	SecretNamespace string
	VaultMount      string

	LogLevel string
	// TracesExporter is stdout, otlp or none
	TracesExporter string
}

// FromEnv reads configuration from environment variables
func FromEnv() (*Config, error) {
	cfg := &Config{
		SSMPath:                os.Getenv("SSM_PATH"),
		RenovateBotUser:        getenv("RENOVATE_BOT_USER", DefaultRenovateBotUser),
		RenovateApproveBotUser: os.Getenv("RENOVATE_APPROVE_BOT_USER"),
		SecretBackend:          Backend(getenv("SECRET_BACKEND", string(BackendSSM))),
		SecretNamespace:        getenv("SECRET_NAMESPACE", "default"),
		VaultMount:             getenv("VAULT_MOUNT", "secret"),
		LogLevel:               getenv("LOG_LEVEL", "info"),
		TracesExporter:         getenv("OTEL_TRACES_EXPORTER", "none"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	switch c.SecretBackend {
	case BackendSSM, BackendKubernetes, BackendVault:
	default:
		return fmt.Errorf("unsupported secret backend %q", c.SecretBackend)
	}
	switch c.TracesExporter {
	case "stdout", "otlp", "none", "":
	default:
		return fmt.Errorf("unsupported traces exporter %q", c.TracesExporter)
	}
	return nil
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
