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

package github

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
)

// RetryConfig defines the retry behavior for API calls
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	BackoffFactor  float64
}

// DefaultRetryConfig keeps the total retry budget well inside a Lambda timeout
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:     3,
		InitialBackoff: 100 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		BackoffFactor:  2.0,
	}
}

// githubClient implements the Client interface using go-github
type githubClient struct {
	client      *github.Client
	retryConfig *RetryConfig
}

func newClient(token string, baseURL *url.URL) (*githubClient, error) {
	gh := github.NewClient(nil)
	if token != "" {
		gh = gh.WithAuthToken(token)
	}
	if baseURL != nil {
		gh.BaseURL = baseURL
	}

	return &githubClient{
		client:      gh,
		retryConfig: DefaultRetryConfig(),
	}, nil
}

// GetPullRequest retrieves metadata about a pull request
func (c *githubClient) GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error) {
	var pr *github.PullRequest
	var err error

	err = c.executeWithRetry(ctx, func() error {
		pr, _, err = c.client.PullRequests.Get(ctx, owner, repo, number)
		return err
	})

	if err != nil {
		return nil, fmt.Errorf("failed to get pull request: %w", err)
	}

	return convertPullRequest(pr), nil
}

// ListReviews retrieves all reviews submitted on a pull request
func (c *githubClient) ListReviews(ctx context.Context, owner, repo string, number int) ([]*Review, error) {
	allReviews := []*Review{}
	opts := &github.ListOptions{
		PerPage: 100,
	}

	for {
		var reviews []*github.PullRequestReview
		var resp *github.Response
		var err error

		err = c.executeWithRetry(ctx, func() error {
			reviews, resp, err = c.client.PullRequests.ListReviews(ctx, owner, repo, number, opts)
			return err
		})

		if err != nil {
			return nil, fmt.Errorf("failed to list reviews: %w", err)
		}

		for _, review := range reviews {
			if review != nil {
				allReviews = append(allReviews, convertReview(review))
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return allReviews, nil
}

// ApprovePullRequest submits an approving review pinned to commitSHA
func (c *githubClient) ApprovePullRequest(ctx context.Context, owner, repo string, number int, commitSHA, body string) error {
	review := &github.PullRequestReviewRequest{
		Event: github.String("APPROVE"),
	}
	if commitSHA != "" {
		review.CommitID = github.String(commitSHA)
	}
	if body != "" {
		review.Body = github.String(body)
	}

	err := c.executeWithRetry(ctx, func() error {
		_, _, err := c.client.PullRequests.CreateReview(ctx, owner, repo, number, review)
		return err
	})

	if err != nil {
		return fmt.Errorf("failed to approve pull request: %w", err)
	}

	return nil
}

// executeWithRetry executes an operation with exponential backoff retry
func (c *githubClient) executeWithRetry(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt <= c.retryConfig.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		if !isRetryableError(lastErr) {
			return lastErr
		}

		if attempt == c.retryConfig.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.calculateBackoff(attempt)):
		}
	}

	return fmt.Errorf("operation failed after %d retries: %w", c.retryConfig.MaxRetries, lastErr)
}

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return true
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}

	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		switch ghErr.Response.StatusCode {
		case http.StatusTooManyRequests,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		case http.StatusForbidden:
			return strings.Contains(strings.ToLower(ghErr.Message), "rate limit")
		}
	}

	return false
}

// calculateBackoff calculates the backoff duration for a retry attempt
func (c *githubClient) calculateBackoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= c.retryConfig.BackoffFactor
	}
	base := float64(c.retryConfig.InitialBackoff) * multiplier

	// ±20% jitter
	jitter := (rand.Float64() * 0.4) - 0.2
	backoff := time.Duration(base * (1 + jitter))

	if backoff > c.retryConfig.MaxBackoff {
		backoff = c.retryConfig.MaxBackoff
	}

	return backoff
}

// convertPullRequest converts a GitHub PR to our domain model
func convertPullRequest(pr *github.PullRequest) *PullRequest {
	if pr == nil {
		return nil
	}

	result := &PullRequest{
		Number:    pr.GetNumber(),
		Title:     pr.GetTitle(),
		State:     pr.GetState(),
		Draft:     pr.GetDraft(),
		CreatedAt: pr.GetCreatedAt().Time,
		UpdatedAt: pr.GetUpdatedAt().Time,
	}

	if pr.Head != nil {
		result.HeadSHA = pr.Head.GetSHA()
		result.HeadBranch = pr.Head.GetRef()
	}

	if pr.Base != nil {
		result.BaseBranch = pr.Base.GetRef()
	}

	if pr.User != nil {
		result.Author = pr.User.GetLogin()
	}

	for _, label := range pr.Labels {
		if label != nil {
			result.Labels = append(result.Labels, label.GetName())
		}
	}

	return result
}

// ConvertPullRequest exposes the conversion for webhook payloads, which carry
// the same pull request object as the REST API.
func ConvertPullRequest(pr *github.PullRequest) *PullRequest {
	return convertPullRequest(pr)
}

func convertReview(review *github.PullRequestReview) *Review {
	result := &Review{
		ID:          review.GetID(),
		State:       ReviewState(review.GetState()),
		CommitID:    review.GetCommitID(),
		SubmittedAt: review.GetSubmittedAt().Time,
	}
	if review.User != nil {
		result.Reviewer = review.User.GetLogin()
	}
	return result
}
