package conversation

import (
	"encoding/json"
)

// Role is the author of a message. Only the three OpenAI chat roles exist.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if err := r.Validate(); err != nil {
		return "", err
	}
	return r, nil
}

func (r Role) Validate() error {
	switch r {
	case RoleSystem, RoleUser, RoleAssistant:
		return nil
	}
	return &ValidationError{Field: "role", Reason: "unknown role " + quote(string(r))}
}

func (r Role) String() string { return string(r) }

func (r Role) MarshalJSON() ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(string(r))
}

func (r *Role) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseRole(s)
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Validate checks the role, and that only system messages are empty.
func (m Message) Validate() error {
	if err := m.Role.Validate(); err != nil {
		return err
	}
	if m.Content == "" && m.Role != RoleSystem {
		return &ValidationError{Field: "content", Reason: "empty " + string(m.Role) + " message"}
	}
	return nil
}

// Log is the transcript of one conversation, in the exact order it is sent
// to the completion API. It is also the persisted record.
type Log struct {
	Messages []Message `json:"messages"`
}

// NewLog returns a log seeded with a single system message.
func NewLog(systemPrompt string) *Log {
	return &Log{Messages: []Message{{Role: RoleSystem, Content: systemPrompt}}}
}

func (l *Log) Len() int {
	if l == nil {
		return 0
	}
	return len(l.Messages)
}

func (l *Log) Last() (Message, bool) {
	if l.Len() == 0 {
		return Message{}, false
	}
	return l.Messages[len(l.Messages)-1], true
}

func (l *Log) Clone() *Log {
	if l == nil {
		return nil
	}
	msgs := make([]Message, len(l.Messages))
	copy(msgs, l.Messages)
	return &Log{Messages: msgs}
}

// Validate checks the structural invariants of a persisted log: it starts
// with a system message and every role is known.
func (l *Log) Validate() error {
	if l.Len() == 0 {
		return &ValidationError{Field: "messages", Reason: "log is empty"}
	}
	if l.Messages[0].Role != RoleSystem {
		return &ValidationError{Field: "messages", Reason: "first message is not a system message"}
	}
	for _, m := range l.Messages {
		if err := m.Role.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
