package ghclient

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/go-github/v73/github"
)

// errDownloadURLUnavailable marks a failed fallback fetch against a
// content entry's download_url; callers treat it as "drop this file"
// rather than a fatal error.
var errDownloadURLUnavailable = errors.New("ghclient: download_url fetch failed")

const (
	shortBreakDelay  = 5 * time.Second
	mediumBreakDelay = 15 * time.Second
	longBreakDelay   = 60 * time.Second
	maxRetries       = 5
)

// Client wraps a *github.Client with the rate governor and retry dispatch
// from spec §4.3/§4.4, grounded on the original's GithubClient.request and
// the `github_limit` retry decorator.
type Client struct {
	cred    Credential
	gh      *github.Client
	limiter *RateGovernor
	logger  *slog.Logger
}

// New builds a Client for one worker identity.
func New(cred Credential, logger *slog.Logger) (*Client, error) {
	gh, err := cred.NewClient()
	if err != nil {
		return nil, err
	}
	return &Client{cred: cred, gh: gh, limiter: NewRateGovernor(), logger: logger}, nil
}

// Name identifies the worker this client authenticates as.
func (c *Client) Name() string { return c.cred.Name() }

// reset rebuilds the underlying *github.Client, used after abuse-limit
// violations and connection resets (mirrors GithubClient.reset).
func (c *Client) reset() {
	gh, err := c.cred.NewClient()
	if err != nil {
		c.logger.Error("failed to reset github client", "worker", c.Name(), "error", err)
		return
	}
	c.gh = gh
}

// call runs fn against class's quota, retrying per spec §4.4's taxonomy
// up to maxRetries times, and records the observed *github.Response rate
// whenever a response came back, failed or not.
func call[T any](ctx context.Context, c *Client, class EndpointClass, fn func(context.Context, *github.Client) (T, *github.Response, error)) (T, *github.Response, error) {
	var zero T
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx, class); err != nil {
			return zero, nil, err
		}

		result, resp, err := fn(ctx, c.gh)
		if resp != nil {
			c.limiter.Observe(class, &resp.Rate)
		}
		if err == nil {
			return result, resp, nil
		}

		switch Classify(err) {
		case ClassEmpty:
			return zero, resp, err
		case ClassRateLimited:
			c.logger.Error("github rate limit exceeded", "worker", c.Name(), "error", err)
			if sleep(ctx, shortBreakDelay) != nil {
				return zero, nil, ctx.Err()
			}
		case ClassAbuse:
			c.logger.Error("github abuse limit violated", "worker", c.Name(), "error", err)
			c.reset()
			if sleep(ctx, longBreakDelay) != nil {
				return zero, nil, ctx.Err()
			}
		case ClassTransient:
			c.logger.Error("github request failed transiently", "worker", c.Name(), "error", err)
			c.reset()
			if sleep(ctx, mediumBreakDelay) != nil {
				return zero, nil, ctx.Err()
			}
		default:
			return zero, resp, err
		}
	}
	return zero, nil, &MaxRetriesExceededError{Attempts: maxRetries}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// MaxRetriesExceededError is returned when a request never succeeded
// after exhausting the retry budget (mirrors MaxRetriesExceeded).
type MaxRetriesExceededError struct {
	Attempts int
}

func (e *MaxRetriesExceededError) Error() string {
	return "github: request failed after exhausting retries"
}

// SearchParams composes a repository search request (spec §4.5/§6),
// grounded on the original's GithubSearch.search.
type SearchParams struct {
	Keyword    string
	Qualifiers map[string]string
	Sort       string
	Order      string
	PerPage    int
	Page       int
}

// SearchResult is one page of a repository search.
type SearchResult struct {
	Repositories []*github.Repository
	HasNext      bool
	NextPage     int
	Total        int
}

// SearchRepositories runs one page of a repository search.
func (c *Client) SearchRepositories(ctx context.Context, p SearchParams) (*SearchResult, error) {
	query := buildSearchQuery(p.Keyword, p.Qualifiers)
	opts := &github.SearchOptions{
		Sort:  p.Sort,
		Order: p.Order,
		ListOptions: github.ListOptions{
			PerPage: clampPerPage(p.PerPage),
			Page:    p.Page,
		},
	}

	res, resp, err := call(ctx, c, ClassSearch, func(ctx context.Context, gh *github.Client) (*github.RepositoriesSearchResult, *github.Response, error) {
		return gh.Search.Repositories(ctx, query, opts)
	})
	if err != nil {
		if IsEmptyResult(err) {
			return &SearchResult{}, nil
		}
		return nil, err
	}

	out := &SearchResult{
		Repositories: res.Repositories,
		Total:        res.GetTotal(),
	}
	if resp != nil && resp.NextPage != 0 {
		out.HasNext = true
		out.NextPage = resp.NextPage
	}
	return out, nil
}

func buildSearchQuery(keyword string, qualifiers map[string]string) string {
	query := keyword
	for k, v := range qualifiers {
		if query != "" {
			query += " "
		}
		query += k + ":" + v
	}
	return query
}

func clampPerPage(n int) int {
	const maxPerPage = 100
	if n <= 0 {
		return maxPerPage
	}
	if n > maxPerPage {
		return maxPerPage
	}
	return n
}

// ContentEntry is one entry returned by a directory listing, grounded on
// the original's GithubContent.
type ContentEntry struct {
	Path        string
	Type        string
	URL         string
	DownloadURL string
}

// IsFile reports whether this entry names a regular file.
func (e ContentEntry) IsFile() bool { return e.Type == "file" }

// ListDirectory lists one directory's immediate entries.
func (c *Client) ListDirectory(ctx context.Context, owner, repo, path string) ([]ContentEntry, error) {
	_, dirContents, err := callContents(ctx, c, owner, repo, path)
	if err != nil {
		if IsEmptyResult(err) {
			return nil, nil
		}
		return nil, err
	}

	entries := make([]ContentEntry, 0, len(dirContents))
	for _, e := range dirContents {
		entries = append(entries, ContentEntry{
			Path:        e.GetPath(),
			Type:        e.GetType(),
			URL:         e.GetURL(),
			DownloadURL: e.GetDownloadURL(),
		})
	}
	return entries, nil
}

func callContents(ctx context.Context, c *Client, owner, repo, path string) (*github.RepositoryContent, []*github.RepositoryContent, error) {
	type pair struct {
		file *github.RepositoryContent
		dir  []*github.RepositoryContent
	}
	res, _, err := call(ctx, c, ClassCore, func(ctx context.Context, gh *github.Client) (pair, *github.Response, error) {
		file, dir, resp, err := gh.Repositories.GetContents(ctx, owner, repo, path, nil)
		return pair{file: file, dir: dir}, resp, err
	})
	return res.file, res.dir, err
}

// FileContent fetches and decodes one file's content (spec §4.3 "content
// retrieval"), grounded on GithubContent.decoded_content. When the Contents
// API refuses the blob for being too large, it falls back to fetching
// downloadURL directly and drops the file silently if that also fails
// (spec §4.4 "oversized blob fallback"), grounded on the original's
// GithubClient.retrieve_content.
func (c *Client) FileContent(ctx context.Context, owner, repo, path, downloadURL string) (string, error) {
	file, _, err := callContents(ctx, c, owner, repo, path)
	if err != nil {
		if IsEmptyResult(err) {
			return "", nil
		}
		if Classify(err) == ClassBlobTooLarge {
			content, fallbackErr := c.fetchDownloadURL(ctx, downloadURL)
			if fallbackErr != nil {
				return "", nil
			}
			return content, nil
		}
		return "", err
	}
	if file == nil {
		return "", nil
	}
	if file.GetEncoding() == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(file.GetContent())
		if err != nil {
			return "", nil
		}
		return string(decoded), nil
	}
	return file.GetContent(), nil
}

// fetchDownloadURL fetches a blob's raw content directly, bypassing the
// Contents API's size-limited inline encoding.
func (c *Client) fetchDownloadURL(ctx context.Context, downloadURL string) (string, error) {
	if downloadURL == "" {
		return "", errDownloadURLUnavailable
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.gh.Client().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errDownloadURLUnavailable
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
