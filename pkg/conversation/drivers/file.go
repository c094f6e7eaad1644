package drivers

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-go-golems/gptbot/pkg/conversation"
	"github.com/google/uuid"
)

const historyFileSuffix = "-history.json"

// FileBackend keeps one JSON document per conversation in a directory,
// named <id>-history.json.
type FileBackend struct {
	dir string
}

var _ conversation.Backend = (*FileBackend)(nil)

func NewFileBackend(dir string) (*FileBackend, error) {
	if dir == "" {
		return nil, fmt.Errorf("file backend: history directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileBackend{dir: dir}, nil
}

// Path maps a conversation id to its file. Ids are path-escaped so that any
// string stays inside the history directory and maps to exactly one file.
func (b *FileBackend) Path(id string) string {
	return filepath.Join(b.dir, url.PathEscape(id)+historyFileSuffix)
}

func (b *FileBackend) Load(ctx context.Context, id string) (*conversation.Log, error) {
	data, err := os.ReadFile(b.Path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, conversation.ErrNotFound
		}
		return nil, err
	}
	return conversation.DecodeLog(data)
}

// Save writes to a uniquely named temporary file, syncs it and renames it
// over the previous record.
func (b *FileBackend) Save(ctx context.Context, id string, l *conversation.Log) error {
	data, err := conversation.EncodeLog(l)
	if err != nil {
		return err
	}

	path := b.Path(id)
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

func (b *FileBackend) Close() error {
	return nil
}
