package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

type Source string

const (
	SourceLoaded    Source = "loaded"
	SourceDefaulted Source = "defaulted"
)

// LoadResult tells callers whether the settings came from disk or were
// substituted by the compiled-in defaults, and why.
type LoadResult struct {
	Settings *Settings
	Source   Source
	// Reason is set when Source is SourceDefaulted.
	Reason error
}

func (r *LoadResult) Defaulted() bool {
	return r != nil && r.Source == SourceDefaulted
}

// Loader is what the conversation and completion layers depend on. Every
// call reads fresh settings.
type Loader interface {
	Load(ctx context.Context) (*LoadResult, error)
}

// Store reads settings from a single file.
type Store struct {
	mu   sync.Mutex
	path string
}

var _ Loader = (*Store)(nil)

func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("settings store path is required")
	}
	return &Store{path: path}, nil
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the settings file. When it is missing or unparseable, the
// defaults are written back and returned. Only a failure to write the
// defaults is returned as an error.
func (s *Store) Load(ctx context.Context) (*LoadResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := ReadFile(s.path)
	if err == nil {
		return &LoadResult{Settings: st, Source: SourceLoaded}, nil
	}

	log.Warn().Err(err).Str("path", s.path).Msg("Using default settings due to error in reading settings file")

	def := Default()
	if werr := WriteFile(s.path, def); werr != nil {
		log.Error().Err(werr).Str("path", s.path).Msg("Cannot write default settings")
		return nil, &ConfigFaultError{Path: s.path, Err: werr}
	}

	return &LoadResult{Settings: def.Clone(), Source: SourceDefaulted, Reason: err}, nil
}

// Reload is Load. It exists so that call sites read as an explicit re-fetch.
func (s *Store) Reload(ctx context.Context) (*LoadResult, error) {
	return s.Load(ctx)
}

// Static always returns the same settings. Useful for tests and embedding.
type Static struct {
	Settings *Settings
}

var _ Loader = Static{}

func (s Static) Load(context.Context) (*LoadResult, error) {
	if s.Settings == nil {
		return &LoadResult{Settings: Default(), Source: SourceDefaulted, Reason: fmt.Errorf("no static settings")}, nil
	}
	return &LoadResult{Settings: s.Settings.Clone(), Source: SourceLoaded}, nil
}
