package ghclient

import (
	"context"
	"net/http"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v73/github"
	"golang.org/x/oauth2"
)

// Credential produces an authenticated *github.Client. It is the ambient
// generalization of the original's single (user, passwd) pair: one worker
// may authenticate with a personal access token, a GitHub App
// installation, or nothing at all (spec SPEC_FULL.md "Authentication
// modes").
type Credential interface {
	// Name identifies this credential for logging and worker naming.
	Name() string
	// NewClient returns a ready-to-use GitHub REST client.
	NewClient() (*github.Client, error)
}

// TokenCredential authenticates with a personal access token, mirroring
// the original's `auth = (user, passwd)` pair passed into GithubClient.
type TokenCredential struct {
	WorkerName string
	Token      string
}

func (c TokenCredential) Name() string { return c.WorkerName }

func (c TokenCredential) NewClient() (*github.Client, error) {
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.Token})
	tc := oauth2.NewClient(context.Background(), ts)
	return github.NewClient(tc), nil
}

// AppCredential authenticates as a GitHub App installation, using
// ghinstallation to mint and refresh installation tokens transparently.
type AppCredential struct {
	WorkerName     string
	AppID          int64
	InstallationID int64
	PrivateKeyPath string
}

func (c AppCredential) Name() string { return c.WorkerName }

func (c AppCredential) NewClient() (*github.Client, error) {
	tr, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, c.AppID, c.InstallationID, c.PrivateKeyPath)
	if err != nil {
		return nil, err
	}
	return github.NewClient(&http.Client{Transport: tr}), nil
}

// AnonymousCredential issues unauthenticated requests, subject to GitHub's
// much lower unauthenticated rate limit.
type AnonymousCredential struct {
	WorkerName string
}

func (c AnonymousCredential) Name() string { return c.WorkerName }

func (c AnonymousCredential) NewClient() (*github.Client, error) {
	return github.NewClient(nil), nil
}
