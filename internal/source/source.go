// Package source fetches the raw bytes of upstream JSON documents. Each
// upstream is identified by a fixed, pre-configured opaque identifier; the
// write side is owned externally and Crewdeck only ever reads.
package source

import (
	"context"
	"fmt"

	"github.com/zulandar/crewdeck/internal/config"
)

// Source fetches one upstream document.
type Source interface {
	// Name identifies the source for logging and cache keys.
	Name() string

	// Fetch retrieves the current document body. Implementations return an
	// error for non-success statuses, transport failures, and missing files;
	// they never retry.
	Fetch(ctx context.Context) ([]byte, error)
}

// New builds a Source from its config block. name is the logical source
// name ("status" or "activity").
func New(name string, cfg config.SourceConfig) (Source, error) {
	switch cfg.Provider {
	case config.ProviderHTTP:
		return NewHTTPSource(name, cfg.URL), nil
	case config.ProviderGist:
		return NewGistSource(name, cfg.GistID, cfg.GistFile, cfg.Token), nil
	case config.ProviderFile:
		return NewFileSource(name, cfg.Path), nil
	default:
		return nil, fmt.Errorf("source: unknown provider %q for %s", cfg.Provider, name)
	}
}
