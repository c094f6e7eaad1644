package settings

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// record mirrors Settings with pointers so that absent keys can be told
// apart from zero values.
type record struct {
	ChatModel       *string `yaml:"chat_model"`
	CompletionModel *string `yaml:"completion_model"`
	ChatBasePrompt  *string `yaml:"chat_base_prompt"`
	MaxTokens       *int    `yaml:"max_tokens"`
	ImageSize       *string `yaml:"image_size"`
}

var knownKeys = map[string]bool{
	"chat_model":       true,
	"completion_model": true,
	"chat_base_prompt": true,
	"max_tokens":       true,
	"image_size":       true,
}

// Decode parses a settings document. JSON documents are accepted since they
// are valid YAML. Missing required keys are errors, unknown keys are logged
// and ignored.
func Decode(b []byte) (*Settings, error) {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil, errors.New("settings document is empty")
	}

	var r record
	if err := yaml.Unmarshal(b, &r); err != nil {
		return nil, errors.Wrap(err, "could not parse settings")
	}
	warnUnknownKeys(b)

	switch {
	case r.ChatModel == nil:
		return nil, &MissingFieldError{Field: "chat_model"}
	case r.ChatBasePrompt == nil:
		return nil, &MissingFieldError{Field: "chat_base_prompt"}
	case r.MaxTokens == nil:
		return nil, &MissingFieldError{Field: "max_tokens"}
	case r.ImageSize == nil:
		return nil, &MissingFieldError{Field: "image_size"}
	}

	s := &Settings{
		ChatModel:       *r.ChatModel,
		CompletionModel: DefaultCompletionModel,
		ChatBasePrompt:  *r.ChatBasePrompt,
		MaxTokens:       *r.MaxTokens,
		ImageSize:       *r.ImageSize,
	}
	if r.CompletionModel != nil && *r.CompletionModel != "" {
		s.CompletionModel = *r.CompletionModel
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Encode serializes settings as indented JSON when asJSON is set, YAML
// otherwise.
func Encode(s *Settings, asJSON bool) ([]byte, error) {
	if asJSON {
		b, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(b, '\n'), nil
	}
	return yaml.Marshal(s)
}

func ReadFile(path string) (*Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(b)
}

// WriteFile replaces path with the encoded settings. The format follows the
// file extension.
func WriteFile(path string, s *Settings) error {
	b, err := Encode(s, isJSONPath(path))
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return replaceFile(path, b)
}

// replaceFile writes data to a uniquely named temporary file next to path,
// syncs it and renames it over path.
func replaceFile(path string, data []byte) error {
	tmpPath := path + "." + uuid.NewString() + ".tmp"
	f, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func warnUnknownKeys(b []byte) {
	var raw map[string]interface{}
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return
	}
	for k := range raw {
		if !knownKeys[k] {
			log.Warn().Str("key", k).Msg("Ignoring unknown settings key")
		}
	}
}

func isJSONPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
