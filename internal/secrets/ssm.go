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

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// SSMAPI is the subset of the SSM client used by SSMStore
type SSMAPI interface {
	GetParameters(ctx context.Context, params *ssm.GetParametersInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersOutput, error)
}

// SSMStore reads SecureString and String parameters from AWS Systems Manager
type SSMStore struct {
	client SSMAPI
}

// NewSSMStore wraps an existing SSM client
func NewSSMStore(client SSMAPI) *SSMStore {
	return &SSMStore{client: client}
}

// NewSSMStoreFromEnv builds an SSM client from the default AWS credential chain.
// The client is meant to be created once per process and reused.
func NewSSMStoreFromEnv(ctx context.Context) (*SSMStore, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}
	return NewSSMStore(ssm.NewFromConfig(cfg)), nil
}

// GetParameters implements Store
func (s *SSMStore) GetParameters(ctx context.Context, names []string) (*Result, error) {
	out, err := s.client.GetParameters(ctx, &ssm.GetParametersInput{
		Names:          names,
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get parameters: %w", err)
	}

	result := &Result{Invalid: out.InvalidParameters}
	for _, p := range out.Parameters {
		result.Parameters = append(result.Parameters, Parameter{
			Name:  aws.ToString(p.Name),
			Value: aws.ToString(p.Value),
		})
	}
	return result, nil
}
