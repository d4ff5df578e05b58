package ticket

import (
	"context"
	"fmt"
	"strings"

	gogh "github.com/google/go-github/v68/github"
)

// GitHubNotifier opens a tracking issue for every issued ticket.
type GitHubNotifier struct {
	gh    *gogh.Client
	owner string
	repo  string
}

// NewGitHubNotifier creates a notifier filing issues in repoFullName
// ("owner/repo"), authenticated with the given token.
func NewGitHubNotifier(token, repoFullName string) (*GitHubNotifier, error) {
	owner, repo, err := splitRepo(repoFullName)
	if err != nil {
		return nil, err
	}
	return &GitHubNotifier{
		gh:    gogh.NewClient(nil).WithAuthToken(token),
		owner: owner,
		repo:  repo,
	}, nil
}

// Name returns the notifier name.
func (n *GitHubNotifier) Name() string { return "github" }

// Notify files the tracking issue.
func (n *GitHubNotifier) Notify(ctx context.Context, rec Record) error {
	title := fmt.Sprintf("Quality Inspection Ticket %s", rec.Number)
	body := fmt.Sprintf(
		"Ticket **%s** was created from chat session `%s` at %s.\n\nType: %s",
		rec.Number, rec.SessionID, rec.IssuedAt.Format("2006-01-02 15:04 MST"), rec.Type,
	)

	_, _, err := n.gh.Issues.Create(ctx, n.owner, n.repo, &gogh.IssueRequest{
		Title:  gogh.Ptr(title),
		Body:   gogh.Ptr(body),
		Labels: &[]string{"quality-inspection"},
	})
	if err != nil {
		return fmt.Errorf("creating issue: %w", err)
	}
	return nil
}

func splitRepo(fullName string) (owner, repo string, err error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo format %q, expected \"owner/repo\"", fullName)
	}
	return parts[0], parts[1], nil
}
