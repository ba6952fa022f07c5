package source

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-github/v68/github"
)

// mockGists is a test double for the go-github gists service.
type mockGists struct {
	gist *github.Gist
	err  error
}

func (m *mockGists) Get(ctx context.Context, id string) (*github.Gist, *github.Response, error) {
	return m.gist, nil, m.err
}

func testGist(files map[string]string) *github.Gist {
	g := &github.Gist{Files: map[github.GistFilename]github.GistFile{}}
	for name, content := range files {
		g.Files[github.GistFilename(name)] = github.GistFile{
			Filename: github.Ptr(name),
			Content:  github.Ptr(content),
		}
	}
	return g
}

func TestGistSource_FetchNamedFile(t *testing.T) {
	src := NewGistSource("status", "abc123", "status.json", "")
	src.gists = &mockGists{gist: testGist(map[string]string{
		"status.json": `{"tasks":[]}`,
		"readme.md":   "docs",
	})}

	body, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != `{"tasks":[]}` {
		t.Errorf("body = %s", body)
	}
}

func TestGistSource_FirstFileByName(t *testing.T) {
	src := NewGistSource("status", "abc123", "", "")
	src.gists = &mockGists{gist: testGist(map[string]string{
		"b.json": "second",
		"a.json": "first",
	})}

	body, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "first" {
		t.Errorf("body = %q, want alphabetically first file", body)
	}
}

func TestGistSource_MissingFile(t *testing.T) {
	src := NewGistSource("status", "abc123", "status.json", "")
	src.gists = &mockGists{gist: testGist(map[string]string{"other.json": "{}"})}

	_, err := src.Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), `no file "status.json"`) {
		t.Errorf("error = %v, want missing file", err)
	}
}

func TestGistSource_EmptyGist(t *testing.T) {
	src := NewGistSource("status", "abc123", "", "")
	src.gists = &mockGists{gist: testGist(nil)}

	_, err := src.Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "empty gist") {
		t.Errorf("error = %v, want empty gist", err)
	}
}

func TestGistSource_APIError(t *testing.T) {
	src := NewGistSource("status", "abc123", "", "")
	src.gists = &mockGists{err: fmt.Errorf("boom")}

	_, err := src.Fetch(context.Background())
	if err == nil || !strings.Contains(err.Error(), "source: status: gist abc123:") {
		t.Errorf("error = %v, want wrapped gist error", err)
	}
}
