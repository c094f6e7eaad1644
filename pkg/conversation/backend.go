package conversation

import "context"

// Backend persists whole logs, one record per conversation id. Save must
// replace the record as a unit: a reader never observes a partial write.
type Backend interface {
	// Load returns ErrNotFound if no record exists for id and an error
	// wrapping ErrCorrupt if the record cannot be decoded. Any other error
	// is a storage fault and leaves the record alone.
	Load(ctx context.Context, id string) (*Log, error)
	Save(ctx context.Context, id string, l *Log) error
	Close() error
}
