package drivers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-go-golems/gptbot/pkg/conversation"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const sqliteConversationsSchemaV1 = `
CREATE TABLE IF NOT EXISTS conversations (
    conversation_id TEXT PRIMARY KEY,
    payload_json TEXT NOT NULL,
    updated_at_ms INTEGER NOT NULL DEFAULT 0
);
`

// SQLiteBackend stores one JSON payload row per conversation.
type SQLiteBackend struct {
	db *sql.DB
}

var _ conversation.Backend = (*SQLiteBackend)(nil)

func NewSQLiteBackend(dsn string) (*SQLiteBackend, error) {
	if dsn == "" {
		return nil, fmt.Errorf("sqlite backend: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	b := &SQLiteBackend{db: db}
	if err := b.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return b, nil
}

func SQLiteDSNForFile(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("sqlite backend: empty path")
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path), nil
}

func (b *SQLiteBackend) migrate() error {
	if _, err := b.db.Exec(sqliteConversationsSchemaV1); err != nil {
		return errors.Wrap(err, "sqlite backend: migrate")
	}
	return nil
}

func (b *SQLiteBackend) Load(ctx context.Context, id string) (*conversation.Log, error) {
	var payload string
	err := b.db.QueryRowContext(ctx,
		`SELECT payload_json FROM conversations WHERE conversation_id = ?`, id,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, conversation.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return conversation.DecodeLog([]byte(payload))
}

func (b *SQLiteBackend) Save(ctx context.Context, id string, l *conversation.Log) error {
	payload, err := conversation.EncodeLog(l)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(
		ctx,
		`INSERT INTO conversations (conversation_id, payload_json, updated_at_ms)
VALUES (?, ?, ?)
ON CONFLICT(conversation_id) DO UPDATE SET payload_json = excluded.payload_json, updated_at_ms = excluded.updated_at_ms`,
		id,
		string(payload),
		time.Now().UnixMilli(),
	)
	return err
}

func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}
