package conversation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"system", "user", "assistant"} {
		r, err := ParseRole(s)
		require.NoError(t, err)
		require.Equal(t, s, r.String())
	}
	for _, s := range []string{"", "System", "tool", "function"} {
		_, err := ParseRole(s)
		require.ErrorIs(t, err, ErrValidation, s)
	}
}

func TestRole_MarshalRejectsUnknown(t *testing.T) {
	_, err := json.Marshal(Message{Role: "bot", Content: "x"})
	require.Error(t, err)
}

func TestDecodeLog_RejectsUnknownRole(t *testing.T) {
	_, err := DecodeLog([]byte(`{"messages":[{"role":"system","content":"s"},{"role":"bot","content":"x"}]}`))
	require.ErrorIs(t, err, ErrCorrupt)
}

func TestLog_CloneIsIndependent(t *testing.T) {
	l := NewLog("seed")
	c := l.Clone()
	c.Messages[0].Content = "changed"
	c.Messages = append(c.Messages, Message{Role: RoleUser, Content: "x"})
	require.Equal(t, "seed", l.Messages[0].Content)
	require.Equal(t, 1, l.Len())
}
