package drivers

import (
	"context"
	"encoding/json"

	"github.com/go-go-golems/gptbot/pkg/conversation"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

const postgresConversationsSchema = `
CREATE TABLE IF NOT EXISTS gptbot_conversations (
    conversation_id TEXT PRIMARY KEY,
    payload JSONB NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// PostgresBackend stores one JSONB payload row per conversation.
type PostgresBackend struct {
	db *pgxpool.Pool
}

var _ conversation.Backend = (*PostgresBackend)(nil)

func NewPostgresBackend(ctx context.Context, databaseURL string) (*PostgresBackend, error) {
	if databaseURL == "" {
		return nil, errors.New("postgres backend: database url is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "postgres backend: connect")
	}
	if _, err := pool.Exec(ctx, postgresConversationsSchema); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "postgres backend: migrate")
	}
	return &PostgresBackend{db: pool}, nil
}

func (b *PostgresBackend) Load(ctx context.Context, id string) (*conversation.Log, error) {
	var payload []byte
	err := b.db.QueryRow(ctx,
		`SELECT payload FROM gptbot_conversations WHERE conversation_id = $1`, id,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, conversation.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return conversation.DecodeLog(payload)
}

func (b *PostgresBackend) Save(ctx context.Context, id string, l *conversation.Log) error {
	payload, err := conversation.EncodeLog(l)
	if err != nil {
		return err
	}
	_, err = b.db.Exec(ctx,
		`INSERT INTO gptbot_conversations (conversation_id, payload, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (conversation_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		id, json.RawMessage(payload),
	)
	return err
}

func (b *PostgresBackend) Close() error {
	b.db.Close()
	return nil
}
