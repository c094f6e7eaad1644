package settings

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadFile_Valid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `
	{
		"chat_model": "gpt-3.5-turbo",
		"chat_base_prompt": "Test prompt",
		"max_tokens": 1024,
		"image_size": "512x512"
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	s, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "Test prompt", s.ChatBasePrompt)
	require.Equal(t, "gpt-3.5-turbo", s.ChatModel)
	require.Equal(t, DefaultCompletionModel, s.CompletionModel)
}

func TestReadFile_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "chat_model: gpt-4o\ncompletion_model: davinci-002\nchat_base_prompt: Be brief\nmax_tokens: 256\nimage_size: 256x256\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	s, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, &Settings{
		ChatModel:       "gpt-4o",
		CompletionModel: "davinci-002",
		ChatBasePrompt:  "Be brief",
		MaxTokens:       256,
		ImageSize:       "256x256",
	}, s)
}

func TestWriteFile_RoundTrip(t *testing.T) {
	for _, name := range []string{"config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			in := &Settings{
				ChatModel:       "gpt-3.5-turbo",
				CompletionModel: "davinci-002",
				ChatBasePrompt:  "Test write",
				MaxTokens:       1024,
				ImageSize:       "512x512",
			}
			require.NoError(t, WriteFile(path, in))

			out, err := ReadFile(path)
			require.NoError(t, err)
			require.Equal(t, in, out)

			entries, err := os.ReadDir(filepath.Dir(path))
			require.NoError(t, err)
			require.Len(t, entries, 1, "no temporary files may be left behind")
		})
	}
}

func TestWriteFile_IgnoresStaleTemporaryFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	// a leftover from an interrupted write under the old fixed name
	require.NoError(t, os.Mkdir(path+".tmp", 0o755))

	require.NoError(t, WriteFile(path, Default()))
	out, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, Default(), out)
}

func TestReadFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("invalid json content"), 0o644))

	_, err := ReadFile(path)
	require.Error(t, err)
}

func TestReadFile_IncompleteStructure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"chat_model": "gpt-3.5-turbo", "max_tokens": 1024, "image_size": "512x512"}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := ReadFile(path)
	require.ErrorIs(t, err, ErrMissingField)
	var mf *MissingFieldError
	require.ErrorAs(t, err, &mf)
	require.Equal(t, "chat_base_prompt", mf.Field)
}

func TestStore_LoadKeepsFileWithUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"chat_model": "m", "chat_base_prompt": "p", "max_tokens": 1, "image_size": "s", "temperature": 2}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	s, err := NewStore(path)
	require.NoError(t, err)
	res, err := s.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, SourceLoaded, res.Source)
	require.Equal(t, "m", res.Settings.ChatModel)
	require.Equal(t, "p", res.Settings.ChatBasePrompt)
	require.Equal(t, 1, res.Settings.MaxTokens)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, data, string(onDisk))
}

func TestStore_LoadMissingWritesDefaults(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	s, err := NewStore(path)
	require.NoError(t, err)

	res, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, res.Defaulted())
	require.Error(t, res.Reason)
	require.Equal(t, Default(), res.Settings)

	onDisk, err := ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, Default(), onDisk)

	res, err = s.Reload(ctx)
	require.NoError(t, err)
	require.Equal(t, SourceLoaded, res.Source)
	require.NoError(t, res.Reason)
}

func TestStore_LoadCorruptIsReplaced(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := NewStore(path)
	require.NoError(t, err)
	res, err := s.Load(ctx)
	require.NoError(t, err)
	require.True(t, res.Defaulted())

	res, err = s.Load(ctx)
	require.NoError(t, err)
	require.False(t, res.Defaulted())
	require.Equal(t, DefaultChatBasePrompt, res.Settings.ChatBasePrompt)
}

func TestStore_LoadConfigFault(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	s, err := NewStore(filepath.Join(blocker, "config.json"))
	require.NoError(t, err)

	_, err = s.Load(context.Background())
	require.ErrorIs(t, err, ErrConfigFault)
}

func TestStore_ReturnsIndependentCopies(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(filepath.Join(t.TempDir(), "config.json"))
	require.NoError(t, err)

	a, err := s.Load(ctx)
	require.NoError(t, err)
	a.Settings.ChatBasePrompt = "mutated"

	b, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, DefaultChatBasePrompt, b.Settings.ChatBasePrompt)
}

func TestNewStore_RequiresPath(t *testing.T) {
	_, err := NewStore("")
	require.Error(t, err)
}
