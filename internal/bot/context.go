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

package bot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	gogithub "github.com/google/go-github/v66/github"

	"github.com/mikelane/renovate-approve-bot/internal/github"
)

const (
	// EventHeader names the webhook event
	EventHeader = "X-GitHub-Event"
	// DeliveryHeader carries the unique delivery ID
	DeliveryHeader = "X-GitHub-Delivery"
)

// ErrNoInstallation is returned by Context.GitHub for deliveries that do not
// belong to an App installation
var ErrNoInstallation = errors.New("event has no installation")

// Context is one parsed delivery as seen by a handler
type Context struct {
	// Name is the event name, e.g. "pull_request"
	Name string
	// Action is the payload's action, e.g. "opened". Empty for events without one.
	Action string
	// ID is the delivery ID
	ID string
	// Payload is the typed go-github event, nil for event types go-github
	// does not know.
	Payload any
	// Raw is the verified request body
	Raw []byte
	// InstallationID identifies the App installation that triggered the event
	InstallationID int64
	// Log is the per-delivery logger. It may be nil.
	Log Logger

	owner string
	repo  string
	app   *App
}

// envelope holds the fields common to every App webhook payload
type envelope struct {
	Action       string `json:"action"`
	Installation *struct {
		ID int64 `json:"id"`
	} `json:"installation"`
	Repository *struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
		} `json:"owner"`
	} `json:"repository"`
}

func (a *App) newContext(event Event) (*Context, error) {
	var env envelope
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		return nil, fmt.Errorf("invalid JSON payload: %w", err)
	}

	// Unknown event types still reach handlers, without a typed payload
	payload, err := gogithub.ParseWebHook(event.Name, event.Payload)
	if err != nil {
		payload = nil
	}

	c := &Context{
		Name:    event.Name,
		Action:  env.Action,
		ID:      event.ID,
		Payload: payload,
		Raw:     event.Payload,
		Log:     a.Log,
		app:     a,
	}
	if env.Installation != nil {
		c.InstallationID = env.Installation.ID
	}
	if env.Repository != nil {
		c.owner = env.Repository.Owner.Login
		c.repo = env.Repository.Name
	}
	return c, nil
}

// Key returns "event.action", or just the event when there is no action
func (c *Context) Key() string {
	if c.Action == "" {
		return c.Name
	}
	return c.Name + "." + c.Action
}

// Repo returns the owner and name of the repository the event belongs to
func (c *Context) Repo() (owner, repo string) {
	return c.owner, c.repo
}

// GitHub returns a client authenticated as the installation that sent the event
func (c *Context) GitHub(ctx context.Context) (github.Client, error) {
	if c.InstallationID == 0 {
		return nil, ErrNoInstallation
	}
	if c.app == nil || c.app.auth == nil {
		return nil, errors.New("context is not bound to an app")
	}
	return c.app.auth.InstallationClient(ctx, c.InstallationID)
}
