package completion

import (
	"errors"
	"fmt"
)

var (
	ErrRemote    = errors.New("remote api error")
	ErrNoChoices = errors.New("response contained no choices")
	ErrEmptyText = errors.New("response choice is empty")
)

// RemoteError wraps every failure of a round trip to the completion API:
// transport errors, non-2xx statuses, undecodable bodies, timeouts and
// responses without a usable choice.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	if e == nil {
		return ErrRemote.Error()
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Is(target error) bool { return target == ErrRemote }

func (e *RemoteError) Unwrap() error { return e.Err }
