// Package gateway provides a gateway to the GitHub API and to the text generation services,
// abstracting away the underlying REST, GraphQL and completion clients.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/rs/zerolog"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"

	"github.com/naka-gawa/github-timeline/internal/domain"
)

// DefaultTimeout bounds every outbound GitHub call.
const DefaultTimeout = 30 * time.Second

// Fetcher defines the behavior of a gateway for fetching activity from GitHub.
type Fetcher interface {
	FetchEvents(ctx context.Context, user string) ([]domain.Event, error)
	FetchCompare(ctx context.Context, repoName, before, head string) ([]domain.Commit, error)
	FetchCommitStats(ctx context.Context, commitURL string) (domain.LineStats, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	authenticated bool
	timeout       time.Duration
	logger        zerolog.Logger
}

// Options configures NewGitHubGateway.
type Options struct {
	Token   string
	BaseURL string // REST API root; empty means api.github.com
	Timeout time.Duration
}

// userNameQuery resolves a login to the profile display name.
type userNameQuery struct {
	User struct {
		Login githubv4.String
		Name  githubv4.String
	} `graphql:"user(login: $login)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
// The token is optional; without it requests are anonymous and heavily rate limited.
func NewGitHubGateway(opts Options, logger zerolog.Logger) (*GitHubGateway, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(5*time.Minute, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	var transport http.RoundTripper = rateLimitWaiter
	if opts.Token != "" {
		transport = &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token}),
		}
	} else {
		logger.Warn().Msg("GITHUB_TOKEN is not set; using anonymous requests with a low rate limit")
	}
	httpClient := &http.Client{Transport: transport}

	restClient := github.NewClient(httpClient)
	graphqlClient := githubv4.NewClient(httpClient)
	if opts.BaseURL != "" {
		baseURL, err := url.Parse(strings.TrimRight(opts.BaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub base URL %q: %w", opts.BaseURL, err)
		}
		restClient.BaseURL = baseURL
		graphqlClient = githubv4.NewEnterpriseClient(baseURL.String()+"graphql", httpClient)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &GitHubGateway{
		restClient:    restClient,
		graphqlClient: graphqlClient,
		authenticated: opts.Token != "",
		timeout:       timeout,
		logger:        logger,
	}, nil
}

func (g *GitHubGateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, g.timeout)
}

// FetchEvents returns the first page of the user's event feed. Only one request is made.
func (g *GitHubGateway) FetchEvents(ctx context.Context, user string) ([]domain.Event, error) {
	g.logger.Info().Str("user", user).Msg("[1/4] Fetching GitHub events...")
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	events, _, err := g.restClient.Activity.ListEventsPerformedByUser(ctx, user, false, &github.ListOptions{Page: 1})
	if err != nil {
		logEvent := g.logger.Error().Err(err)
		var errResp *github.ErrorResponse
		if errors.As(err, &errResp) && errResp.Response != nil {
			logEvent = logEvent.
				Int("status", errResp.Response.StatusCode).
				Str("body", responseBody(errResp.Response))
		}
		logEvent.Msg("GitHub rejected the events request")
		return nil, fmt.Errorf("failed to list events for %s: %w", user, err)
	}

	out := make([]domain.Event, 0, len(events))
	for _, ev := range events {
		out = append(out, g.toDomainEvent(ev))
	}
	g.logger.Debug().Int("events", len(out)).Msg("Completed fetching events.")
	return out, nil
}

func (g *GitHubGateway) toDomainEvent(ev *github.Event) domain.Event {
	out := domain.Event{
		Type:     ev.GetType(),
		RepoName: ev.GetRepo().GetName(),
		RepoURL:  ev.GetRepo().GetURL(),
	}
	if ev.CreatedAt != nil {
		// time.Parse keeps the original offset, so this reproduces the date GitHub sent.
		out.CreatedAt = ev.CreatedAt.Time.Format(time.RFC3339)
	}
	if out.Type != domain.PushEventType {
		return out
	}
	payload, err := ev.ParsePayload()
	if err != nil {
		g.logger.Warn().Err(err).Str("repo", out.RepoName).Msg("failed to parse push payload")
		return out
	}
	push, ok := payload.(*github.PushEvent)
	if !ok {
		return out
	}
	out.Before = push.GetBefore()
	out.Head = push.GetHead()
	for _, c := range push.Commits {
		out.Commits = append(out.Commits, domain.Commit{
			SHA:     c.GetSHA(),
			Message: c.GetMessage(),
			URL:     c.GetURL(),
		})
	}
	return out
}

// FetchCompare lists the individual commits between two refs of a repository.
func (g *GitHubGateway) FetchCompare(ctx context.Context, repoName, before, head string) ([]domain.Commit, error) {
	owner, repo, ok := strings.Cut(repoName, "/")
	if !ok {
		return nil, fmt.Errorf("invalid repository name %q", repoName)
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	comparison, _, err := g.restClient.Repositories.CompareCommits(ctx, owner, repo, before, head, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to compare %s %s...%s: %w", repoName, short(before), short(head), err)
	}
	commits := make([]domain.Commit, 0, len(comparison.Commits))
	for _, c := range comparison.Commits {
		commits = append(commits, domain.Commit{
			SHA:     c.GetSHA(),
			Message: c.GetCommit().GetMessage(),
			URL:     c.GetURL(),
		})
	}
	return commits, nil
}

// FetchCommitStats fetches a commit detail resource by its API URL and returns its line stats.
func (g *GitHubGateway) FetchCommitStats(ctx context.Context, commitURL string) (domain.LineStats, error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	req, err := g.restClient.NewRequest(http.MethodGet, commitURL, nil)
	if err != nil {
		return domain.LineStats{}, fmt.Errorf("failed to build commit request: %w", err)
	}
	commit := new(github.RepositoryCommit)
	if _, err := g.restClient.Do(ctx, req, commit); err != nil {
		return domain.LineStats{}, fmt.Errorf("failed to fetch commit details: %w", err)
	}
	if commit.Stats == nil {
		return domain.LineStats{}, domain.ErrNoStats
	}
	return domain.LineStats{
		Additions: commit.Stats.GetAdditions(),
		Deletions: commit.Stats.GetDeletions(),
	}, nil
}

// FetchDisplayName resolves the profile name of a login through the GraphQL API.
// GraphQL requires authentication, so anonymous gateways fall back to the login itself.
func (g *GitHubGateway) FetchDisplayName(ctx context.Context, login string) (string, error) {
	if !g.authenticated {
		return login, nil
	}
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	var q userNameQuery
	variables := map[string]interface{}{"login": githubv4.String(login)}
	if err := g.graphqlClient.Query(ctx, &q, variables); err != nil {
		return login, fmt.Errorf("failed to execute GraphQL query for user name: %w", err)
	}
	if name := strings.TrimSpace(string(q.User.Name)); name != "" {
		return name, nil
	}
	return login, nil
}

// responseBody returns the raw error body, which go-github puts back on the response after
// decoding. Bodies that are not GitHub's JSON envelope are only visible here.
func responseBody(resp *http.Response) string {
	if resp.Body == nil {
		return ""
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func short(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
