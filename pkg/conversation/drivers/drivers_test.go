package drivers

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-go-golems/gptbot/pkg/conversation"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// testBackendContract checks what every backend must do: report missing
// records, round-trip logs exactly and replace records as a whole.
func testBackendContract(t *testing.T, b conversation.Backend) {
	t.Helper()
	ctx := context.Background()
	id := "contract-" + uuid.NewString()

	_, err := b.Load(ctx, id)
	require.ErrorIs(t, err, conversation.ErrNotFound)

	in := &conversation.Log{Messages: []conversation.Message{
		{Role: conversation.RoleSystem, Content: "You are terse."},
		{Role: conversation.RoleUser, Content: "Hello \"there\"\nsecond line"},
		{Role: conversation.RoleAssistant, Content: "Hi! ✨"},
		{Role: conversation.RoleUser, Content: "again"},
	}}
	require.NoError(t, b.Save(ctx, id, in))

	out, err := b.Load(ctx, id)
	require.NoError(t, err)
	require.Equal(t, in, out)

	replaced := conversation.NewLog("fresh")
	require.NoError(t, b.Save(ctx, id, replaced))
	out, err = b.Load(ctx, id)
	require.NoError(t, err)
	require.Equal(t, replaced, out)

	other, err := b.Load(ctx, id+"-other")
	require.ErrorIs(t, err, conversation.ErrNotFound)
	require.Nil(t, other)
}

func TestFileBackend_Contract(t *testing.T) {
	b, err := NewFileBackend(filepath.Join(t.TempDir(), "chat-history"))
	require.NoError(t, err)
	testBackendContract(t, b)
}

func TestFileBackend_PathLayout(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	require.Equal(t, filepath.Join(dir, "-1001234-history.json"), b.Path("-1001234"))
	require.Equal(t, filepath.Join(dir, "..%2F..%2Fetc-history.json"), b.Path("../../etc"))
	require.NotEqual(t, b.Path("a/b"), b.Path("a%2Fb"))
}

func TestFileBackend_WritesPrettyRecordWithoutLeftovers(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b, err := NewFileBackend(dir)
	require.NoError(t, err)

	require.NoError(t, b.Save(ctx, "42", conversation.NewLog("seed")))

	data, err := os.ReadFile(b.Path("42"))
	require.NoError(t, err)
	require.Equal(t, "{\n  \"messages\": [\n    {\n      \"role\": \"system\",\n      \"content\": \"seed\"\n    }\n  ]\n}", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestFileBackend_CorruptRecord(t *testing.T) {
	ctx := context.Background()
	b, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(b.Path("42"), []byte(`{"messages":[{"role":"wizard","content":"x"}]}`), 0o644))
	_, err = b.Load(ctx, "42")
	require.ErrorIs(t, err, conversation.ErrCorrupt)

	require.NoError(t, os.WriteFile(b.Path("42"), []byte(`{"messages":`), 0o644))
	_, err = b.Load(ctx, "42")
	require.ErrorIs(t, err, conversation.ErrCorrupt)
}

func TestInMemoryBackend_Contract(t *testing.T) {
	testBackendContract(t, NewInMemoryBackend())
}

func TestInMemoryBackend_IsolatesCallers(t *testing.T) {
	ctx := context.Background()
	b := NewInMemoryBackend()
	l := conversation.NewLog("seed")
	require.NoError(t, b.Save(ctx, "a", l))
	l.Messages[0].Content = "mutated"

	out, err := b.Load(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, "seed", out.Messages[0].Content)
}

func TestSQLiteBackend_Contract(t *testing.T) {
	dsn, err := SQLiteDSNForFile(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	b, err := NewSQLiteBackend(dsn)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	testBackendContract(t, b)
}

func TestSQLiteBackend_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dsn, err := SQLiteDSNForFile(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)

	b, err := NewSQLiteBackend(dsn)
	require.NoError(t, err)
	l := conversation.NewLog("seed")
	l.Messages = append(l.Messages, conversation.Message{Role: conversation.RoleUser, Content: "hi"})
	require.NoError(t, b.Save(ctx, "42", l))
	require.NoError(t, b.Close())

	reopened, err := NewSQLiteBackend(dsn)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	out, err := reopened.Load(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, l, out)
}

func TestSQLiteDSNForFile_RequiresPath(t *testing.T) {
	_, err := SQLiteDSNForFile("")
	require.Error(t, err)
}

func TestRedisBackend_Contract(t *testing.T) {
	addr := os.Getenv("GPTBOT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GPTBOT_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	b, err := NewRedisBackend(client,
		WithRedisKeyPrefix("gptbot-test:"+uuid.NewString()+":"),
		WithRedisTTL(time.Minute),
	)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	testBackendContract(t, b)
}

func TestNewRedisBackend_RequiresClient(t *testing.T) {
	_, err := NewRedisBackend(nil)
	require.Error(t, err)
}

func TestPostgresBackend_Contract(t *testing.T) {
	url := os.Getenv("GPTBOT_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("GPTBOT_TEST_DATABASE_URL not set")
	}
	b, err := NewPostgresBackend(context.Background(), url)
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	testBackendContract(t, b)
}
