package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"

	"github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// GistSource fetches a document stored as a GitHub Gist, addressed by its
// opaque gist id. Public gists need no token.
type GistSource struct {
	name   string
	gistID string
	file   string // filename within the gist; empty picks the first by name
	gists  gistGetter
	client *http.Client
}

// gistGetter abstracts the one go-github call we make, enabling test mocks.
type gistGetter interface {
	Get(ctx context.Context, id string) (*github.Gist, *github.Response, error)
}

// NewGistSource creates a GistSource. token is optional and only needed for
// secret gists or higher rate limits.
func NewGistSource(name, gistID, file, token string) *GistSource {
	hc := &http.Client{Timeout: defaultFetchTimeout}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		hc = oauth2.NewClient(context.Background(), ts)
		hc.Timeout = defaultFetchTimeout
	}
	return &GistSource{
		name:   name,
		gistID: gistID,
		file:   file,
		gists:  github.NewClient(hc).Gists,
		client: &http.Client{Timeout: defaultFetchTimeout},
	}
}

// Name implements Source.
func (s *GistSource) Name() string { return s.name }

// Fetch implements Source.
func (s *GistSource) Fetch(ctx context.Context) ([]byte, error) {
	gist, _, err := s.gists.Get(ctx, s.gistID)
	if err != nil {
		return nil, fmt.Errorf("source: %s: gist %s: %w", s.name, s.gistID, err)
	}

	file, err := s.pickFile(gist)
	if err != nil {
		return nil, err
	}

	// Large gist files come back without inline content; fall back to the
	// raw URL.
	if file.Content != nil && *file.Content != "" {
		return []byte(*file.Content), nil
	}
	if file.RawURL != nil && *file.RawURL != "" {
		return s.fetchRaw(ctx, *file.RawURL)
	}
	return nil, fmt.Errorf("source: %s: gist %s: file has no content", s.name, s.gistID)
}

// pickFile selects the configured file, or the alphabetically first one.
func (s *GistSource) pickFile(gist *github.Gist) (github.GistFile, error) {
	if s.file != "" {
		f, ok := gist.Files[github.GistFilename(s.file)]
		if !ok {
			return github.GistFile{}, fmt.Errorf("source: %s: gist %s: no file %q", s.name, s.gistID, s.file)
		}
		return f, nil
	}

	names := make([]string, 0, len(gist.Files))
	for n := range gist.Files {
		names = append(names, string(n))
	}
	if len(names) == 0 {
		return github.GistFile{}, fmt.Errorf("source: %s: gist %s: empty gist", s.name, s.gistID)
	}
	sort.Strings(names)
	return gist.Files[github.GistFilename(names[0])], nil
}

func (s *GistSource) fetchRaw(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("source: %s: build raw request: %w", s.name, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: %s: fetch raw: %w", s.name, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source: %s: fetch raw: unexpected status %d", s.name, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("source: %s: read raw body: %w", s.name, err)
	}
	return body, nil
}
