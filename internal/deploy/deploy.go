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

// Package deploy describes the named deployments of the bot, one per GitHub
// App, as listed in deployments.yml.
package deploy

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mikelane/renovate-approve-bot/internal/config"
)

// DefaultFile is the deployments file looked up when none is given
const DefaultFile = "deployments.yml"

// Deployment is one GitHub App backed by its own secret path
type Deployment struct {
	Name                   string `yaml:"name"`
	AppName                string `yaml:"appName"`
	SSMPath                string `yaml:"ssmPath"`
	RenovateBotUser        string `yaml:"renovateBotUser,omitempty"`
	RenovateApproveBotUser string `yaml:"renovateApproveBotUser,omitempty"`
}

type file struct {
	Deployments []Deployment `yaml:"deployments"`
}

// Load reads and validates a deployments file
func Load(path string) ([]Deployment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	deployments, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return deployments, nil
}

// Parse decodes and validates deployments.yml content
func Parse(data []byte) ([]Deployment, error) {
	var f file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(f.Deployments))
	var errs []error
	for i, d := range f.Deployments {
		switch {
		case d.Name == "":
			errs = append(errs, fmt.Errorf("deployment %d: name is required", i))
		case seen[d.Name]:
			errs = append(errs, fmt.Errorf("deployment %q: duplicate name", d.Name))
		case d.SSMPath == "":
			errs = append(errs, fmt.Errorf("deployment %q: ssmPath is required", d.Name))
		}
		seen[d.Name] = true
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return f.Deployments, nil
}

// Select returns the deployment called name, or every deployment when name
// is empty
func Select(deployments []Deployment, name string) ([]Deployment, error) {
	if name == "" {
		return deployments, nil
	}
	for _, d := range deployments {
		if d.Name == name {
			return []Deployment{d}, nil
		}
	}

	names := make([]string, 0, len(deployments))
	for _, d := range deployments {
		names = append(names, d.Name)
	}
	sort.Strings(names)
	return nil, fmt.Errorf("deployment %q not found (available: %s)", name, strings.Join(names, ", "))
}

// Environment returns the environment variables the bot reads for this
// deployment. Optional users are omitted when unset.
func (d Deployment) Environment() map[string]string {
	env := map[string]string{
		"SSM_PATH": d.SSMPath,
	}
	if d.RenovateBotUser != "" {
		env["RENOVATE_BOT_USER"] = d.RenovateBotUser
	}
	if d.RenovateApproveBotUser != "" {
		env["RENOVATE_APPROVE_BOT_USER"] = d.RenovateApproveBotUser
	}
	return env
}

// Apply overrides cfg with the values this deployment sets
func (d Deployment) Apply(cfg *config.Config) {
	cfg.SSMPath = d.SSMPath
	if d.RenovateBotUser != "" {
		cfg.RenovateBotUser = d.RenovateBotUser
	}
	if d.RenovateApproveBotUser != "" {
		cfg.RenovateApproveBotUser = d.RenovateApproveBotUser
	}
}
