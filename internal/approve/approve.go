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

package approve

import (
	"context"
	"fmt"
	"strings"

	gogithub "github.com/google/go-github/v66/github"

	"github.com/mikelane/renovate-approve-bot/internal/bot"
	"github.com/mikelane/renovate-approve-bot/internal/config"
	"github.com/mikelane/renovate-approve-bot/internal/github"
)

// Events are the pull_request actions that may need a fresh approval
var Events = []string{
	"pull_request.opened",
	"pull_request.reopened",
	"pull_request.synchronize",
	"pull_request.ready_for_review",
}

// DefaultReviewBody is left on every approving review
const DefaultReviewBody = "Approved automatically: dependency update opened by Renovate."

// ClientFunc returns the GitHub client for a delivery
type ClientFunc func(ctx context.Context, c *bot.Context) (github.Client, error)

// Config controls which pull requests get approved
type Config struct {
	// RenovateBotUser is the login whose pull requests are approved
	RenovateBotUser string
	// ApproveBotUser is the login reviews from this App appear under. When
	// empty, an APPROVED review by anyone on the head commit counts.
	ApproveBotUser string
	// ReviewBody is the approving review's text
	ReviewBody string
	// Clients defaults to the installation client of the delivery
	Clients ClientFunc
}

// ConfigFrom builds a Config from the process configuration
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		RenovateBotUser: cfg.RenovateBotUser,
		ApproveBotUser:  cfg.RenovateApproveBotUser,
	}
}

type handler struct {
	cfg Config
}

// Register returns the registration callback subscribing the approval
// handler to every event in Events
func Register(cfg Config) bot.RegisterFunc {
	if cfg.RenovateBotUser == "" {
		cfg.RenovateBotUser = config.DefaultRenovateBotUser
	}
	if cfg.ReviewBody == "" {
		cfg.ReviewBody = DefaultReviewBody
	}
	if cfg.Clients == nil {
		cfg.Clients = func(ctx context.Context, c *bot.Context) (github.Client, error) {
			return c.GitHub(ctx)
		}
	}

	return func(r bot.Registry) error {
		h := &handler{cfg: cfg}
		for _, event := range Events {
			r.On(event, h.handle)
		}

		if logf := r.Logger(); logf != nil {
			logf("approving pull requests by", cfg.RenovateBotUser, "on", strings.Join(Events, ", "))
		}
		return nil
	}
}

func (h *handler) handle(ctx context.Context, c *bot.Context) error {
	logf := c.Log.OrElse(func(...any) {})

	event, ok := c.Payload.(*gogithub.PullRequestEvent)
	if !ok || event.GetPullRequest() == nil {
		logf("ignoring", c.Key(), "delivery", c.ID, "without a pull request payload")
		return nil
	}

	pr := github.ConvertPullRequest(event.GetPullRequest())
	owner, repo := c.Repo()
	ref := fmt.Sprintf("%s/%s#%d", owner, repo, pr.Number)

	if pr.Author != h.cfg.RenovateBotUser {
		logf("ignoring", ref, "authored by", pr.Author)
		return nil
	}
	if pr.State != "open" || pr.Draft {
		logf("ignoring", ref, "state", pr.State, "draft", pr.Draft)
		return nil
	}

	client, err := h.cfg.Clients(ctx, c)
	if err != nil {
		return fmt.Errorf("failed to create GitHub client for %s: %w", ref, err)
	}

	// The payload may be stale by the time it is handled
	current, err := client.GetPullRequest(ctx, owner, repo, pr.Number)
	if err != nil {
		return fmt.Errorf("failed to refresh %s: %w", ref, err)
	}
	if current.State != "open" || current.Draft {
		logf("ignoring", ref, "state", current.State, "draft", current.Draft)
		return nil
	}
	if current.HeadSHA != pr.HeadSHA {
		logf(ref, "head moved from", pr.HeadSHA, "to", current.HeadSHA)
	}
	pr = current

	reviews, err := client.ListReviews(ctx, owner, repo, pr.Number)
	if err != nil {
		return fmt.Errorf("failed to list reviews for %s: %w", ref, err)
	}
	if approvedAt(reviews, h.cfg.ApproveBotUser, pr.HeadSHA) {
		logf(ref, "already approved at", pr.HeadSHA)
		return nil
	}

	if err := client.ApprovePullRequest(ctx, owner, repo, pr.Number, pr.HeadSHA, h.cfg.ReviewBody); err != nil {
		return fmt.Errorf("failed to approve %s: %w", ref, err)
	}

	logf("approved", ref, "at", pr.HeadSHA)
	return nil
}

// approvedAt reports whether reviewer (anyone when empty) has an APPROVED
// review pinned to sha
func approvedAt(reviews []*github.Review, reviewer, sha string) bool {
	for _, r := range reviews {
		if r == nil || r.State != github.ReviewStateApproved || r.CommitID != sha {
			continue
		}
		if reviewer == "" || strings.EqualFold(r.Reviewer, reviewer) {
			return true
		}
	}
	return false
}
