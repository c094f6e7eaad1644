package conversation

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// DecodeLog parses a persisted record. Any parse or invariant failure wraps
// ErrCorrupt.
func DecodeLog(b []byte) (*Log, error) {
	l := &Log{}
	if err := json.Unmarshal(b, l); err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "decode: %v", err)
	}
	if err := l.Validate(); err != nil {
		return nil, errors.Wrapf(ErrCorrupt, "%v", err)
	}
	return l, nil
}

// EncodeLog serializes a log as indented JSON.
func EncodeLog(l *Log) ([]byte, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	return json.MarshalIndent(l, "", "  ")
}
