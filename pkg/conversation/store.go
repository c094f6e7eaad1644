package conversation

import (
	"context"

	"github.com/go-go-golems/gptbot/pkg/helpers"
	"github.com/go-go-golems/gptbot/pkg/settings"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Store owns the conversation logs. Every mutation holds the per-id lock
// for the whole read-modify-write and persists the complete log before
// returning.
type Store struct {
	backend  Backend
	settings settings.Loader
	locks    *helpers.KeyedMutex
}

func NewStore(backend Backend, loader settings.Loader) *Store {
	return &Store{
		backend:  backend,
		settings: loader,
		locks:    helpers.NewKeyedMutex(),
	}
}

// GetOrCreate returns the persisted log for id. A missing or corrupt record
// is replaced by a freshly seeded log, which is persisted before it is
// returned. Other backend errors are returned as storage faults.
func (s *Store) GetOrCreate(ctx context.Context, id string) (*Log, error) {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return s.getOrCreateLocked(ctx, id)
}

// Append adds one message to the most recently persisted log for id.
func (s *Store) Append(ctx context.Context, id string, role Role, content string) (*Log, error) {
	msg := Message{Role: role, Content: content}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	l, err := s.getOrCreateLocked(ctx, id)
	if err != nil {
		return nil, err
	}
	l.Messages = append(l.Messages, msg)

	if err := s.backend.Save(ctx, id, l); err != nil {
		return nil, &StorageFaultError{ConversationID: id, Op: "append", Err: err}
	}

	log.Debug().Str("conversation", id).Str("role", string(role)).Int("messages", l.Len()).Msg("Appended message")
	return l.Clone(), nil
}

// Reset replaces the log for id with a single system message. An empty
// overridePrompt selects the current default prompt.
func (s *Store) Reset(ctx context.Context, id string, overridePrompt string) (*Log, error) {
	unlock, err := s.lock(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	prompt := overridePrompt
	if prompt == "" {
		prompt, err = s.defaultPrompt(ctx)
		if err != nil {
			return nil, err
		}
	}

	l := NewLog(prompt)
	if err := s.backend.Save(ctx, id, l); err != nil {
		return nil, &StorageFaultError{ConversationID: id, Op: "reset", Err: err}
	}

	log.Debug().Str("conversation", id).Bool("custom_prompt", overridePrompt != "").Msg("Reset conversation")
	return l.Clone(), nil
}

func (s *Store) Close() error {
	return s.backend.Close()
}

func (s *Store) getOrCreateLocked(ctx context.Context, id string) (*Log, error) {
	l, err := s.backend.Load(ctx, id)
	if err == nil {
		return l, nil
	}

	switch {
	case errors.Is(err, ErrNotFound):
		log.Debug().Str("conversation", id).Msg("Creating new conversation")
	case errors.Is(err, ErrCorrupt):
		log.Warn().Err(err).Str("conversation", id).Msg("Using default conversation due to error in reading history")
	default:
		// the record may still be intact, never overwrite it
		return nil, &StorageFaultError{ConversationID: id, Op: "load", Err: err}
	}

	prompt, err := s.defaultPrompt(ctx)
	if err != nil {
		return nil, err
	}
	l = NewLog(prompt)
	if err := s.backend.Save(ctx, id, l); err != nil {
		return nil, &StorageFaultError{ConversationID: id, Op: "create", Err: err}
	}
	return l, nil
}

func (s *Store) defaultPrompt(ctx context.Context) (string, error) {
	res, err := s.settings.Load(ctx)
	if err != nil {
		return "", err
	}
	return res.Settings.ChatBasePrompt, nil
}

func (s *Store) lock(ctx context.Context, id string) (func(), error) {
	if id == "" {
		return nil, &ValidationError{Field: "conversation", Reason: "empty conversation id"}
	}
	unlock, err := s.locks.Lock(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "waiting for conversation %q", id)
	}
	return unlock, nil
}
