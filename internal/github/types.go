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
	"time"
)

// Client interface defines the contract for interacting with GitHub API
type Client interface {
	// GetPullRequest retrieves metadata about a pull request
	GetPullRequest(ctx context.Context, owner, repo string, number int) (*PullRequest, error)
	// ListReviews retrieves all reviews submitted on a pull request
	ListReviews(ctx context.Context, owner, repo string, number int) ([]*Review, error)
	// ApprovePullRequest submits an approving review pinned to commitSHA
	ApprovePullRequest(ctx context.Context, owner, repo string, number int, commitSHA, body string) error
}

// PullRequest represents GitHub pull request metadata
type PullRequest struct {
	Number     int
	Title      string
	HeadSHA    string
	BaseBranch string
	HeadBranch string
	Author     string
	State      string // open, closed
	Draft      bool
	Labels     []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Review represents a pull request review
type Review struct {
	ID          int64
	Reviewer    string
	State       ReviewState
	CommitID    string
	SubmittedAt time.Time
}

// ReviewState represents the state of a pull request review
type ReviewState string

const (
	// ReviewStateApproved indicates the reviewer approved the changes
	ReviewStateApproved ReviewState = "APPROVED"
	// ReviewStateChangesRequested indicates the reviewer requested changes
	ReviewStateChangesRequested ReviewState = "CHANGES_REQUESTED"
	// ReviewStateCommented indicates the review only left comments
	ReviewStateCommented ReviewState = "COMMENTED"
	// ReviewStateDismissed indicates the review was dismissed
	ReviewStateDismissed ReviewState = "DISMISSED"
)
