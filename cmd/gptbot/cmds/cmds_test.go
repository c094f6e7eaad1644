package cmds

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-go-golems/gptbot/pkg/bot"
	"github.com/go-go-golems/gptbot/pkg/completion"
	"github.com/go-go-golems/gptbot/pkg/conversation"
	"github.com/go-go-golems/gptbot/pkg/conversation/drivers"
	"github.com/go-go-golems/gptbot/pkg/settings"
	go_openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/require"
)

func TestNewBackend(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	viper.Set("history-dir", filepath.Join(dir, "history"))
	viper.Set("sqlite-path", filepath.Join(dir, "gptbot.db"))
	t.Cleanup(viper.Reset)

	for _, name := range []string{"", "file", "sqlite", "memory"} {
		b, err := NewBackend(ctx, name)
		require.NoError(t, err, name)

		l := conversation.NewLog("prompt")
		require.NoError(t, b.Save(ctx, "42", l), name)
		got, err := b.Load(ctx, "42")
		require.NoError(t, err, name)
		require.Equal(t, l, got, name)
		require.NoError(t, b.Close(), name)
	}

	_, err := NewBackend(ctx, "carrier-pigeon")
	require.Error(t, err)
}

type echoAPI struct {
	missingTokenAPI
}

func (echoAPI) CreateChatCompletion(ctx context.Context, req go_openai.ChatCompletionRequest) (go_openai.ChatCompletionResponse, error) {
	last := req.Messages[len(req.Messages)-1]
	return go_openai.ChatCompletionResponse{
		Choices: []go_openai.ChatCompletionChoice{{
			Message: go_openai.ChatCompletionMessage{Role: "assistant", Content: "echo: " + last.Content},
		}},
	}, nil
}

func newReplResponder(t *testing.T) (*bot.Responder, *conversation.Store) {
	loader := settings.Static{Settings: settings.Default()}
	store := conversation.NewStore(drivers.NewInMemoryBackend(), loader)
	client := completion.NewClient(echoAPI{}, store, loader)
	return bot.NewResponder(client), store
}

func TestRepl(t *testing.T) {
	ctx := context.Background()
	responder, store := newReplResponder(t)

	in := strings.NewReader("hello\n\n/chat again\n/testapi\n/quit\nnot reached\n")
	var out bytes.Buffer
	require.NoError(t, Repl(ctx, responder, "42", NewScannerReader(in), &out, nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Equal(t, []string{
		"echo: hello",
		"echo: again",
		"Error during API setup: list models: " + errMissingToken.Error(),
	}, lines)

	l, err := store.GetOrCreate(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, 5, l.Len())
}

func TestRepl_RendersReplies(t *testing.T) {
	responder, _ := newReplResponder(t)

	var out bytes.Buffer
	render := func(text string) (string, error) { return "<" + text + ">", nil }
	require.NoError(t, Repl(context.Background(), responder, "7", NewScannerReader(strings.NewReader("hi")), &out, render))
	require.Equal(t, "<echo: hi>\n", out.String())
}
