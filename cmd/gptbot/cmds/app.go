package cmds

import (
	"context"
	"net/http"
	"time"

	"github.com/go-go-golems/gptbot/pkg/bot"
	"github.com/go-go-golems/gptbot/pkg/completion"
	"github.com/go-go-golems/gptbot/pkg/conversation"
	"github.com/go-go-golems/gptbot/pkg/conversation/drivers"
	"github.com/go-go-golems/gptbot/pkg/settings"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/time/rate"
)

// AddFlags registers the persistent flags shared by every subcommand.
func AddFlags(pf *pflag.FlagSet) {
	pf.String("openai-uri", "", "Base URL of the OpenAI compatible API (env OPEN_AI_URI)")
	pf.String("openai-token", "", "API token (env OPEN_AI_TOKEN)")
	pf.String("settings-file", "config.json", "Bot settings file, created with defaults when missing")
	pf.String("history-backend", "file", "Conversation storage (file, sqlite, redis, postgres, memory)")
	pf.String("history-dir", "chat-history", "Directory of the file history backend")
	pf.String("sqlite-path", "gptbot.db", "Database file of the sqlite history backend")
	pf.String("redis-addr", "localhost:6379", "Address of the redis history backend")
	pf.String("redis-password", "", "Password of the redis history backend")
	pf.Int("redis-db", 0, "Database number of the redis history backend")
	pf.Duration("redis-ttl", 0, "Expiry of redis conversations, 0 keeps them forever")
	pf.String("database-url", "", "Connection string of the postgres history backend")
	pf.Duration("timeout", completion.DefaultTimeout, "Timeout of a single API request")
	pf.Float64("rate-limit", 0, "Maximum API requests per second, 0 disables the limit")
	pf.Int("rate-burst", 1, "Requests allowed in a burst above --rate-limit")
}

// App bundles the components a subcommand works with.
type App struct {
	Settings  *settings.Store
	Store     *conversation.Store
	Client    *completion.Client
	Responder *bot.Responder
}

func NewApp(ctx context.Context) (*App, error) {
	settingsStore, err := settings.NewStore(viper.GetString("settings-file"))
	if err != nil {
		return nil, err
	}

	// a settings file that can neither be read nor rewritten stops the process
	if _, err := settingsStore.Load(ctx); err != nil {
		return nil, err
	}

	backend, err := NewBackend(ctx, viper.GetString("history-backend"))
	if err != nil {
		return nil, err
	}

	api, err := newAPI()
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	options := []completion.Option{completion.WithTimeout(viper.GetDuration("timeout"))}
	if limit := viper.GetFloat64("rate-limit"); limit > 0 {
		options = append(options, completion.WithRateLimiter(rate.NewLimiter(rate.Limit(limit), viper.GetInt("rate-burst"))))
	}

	store := conversation.NewStore(backend, settingsStore)
	client := completion.NewClient(api, store, settingsStore, options...)

	return &App{
		Settings:  settingsStore,
		Store:     store,
		Client:    client,
		Responder: bot.NewResponder(client),
	}, nil
}

func (a *App) Close() error {
	return a.Store.Close()
}

// NewBackend opens the conversation storage selected by name.
func NewBackend(ctx context.Context, name string) (conversation.Backend, error) {
	log.Debug().Str("backend", name).Msg("Opening conversation storage")

	switch name {
	case "", "file":
		return drivers.NewFileBackend(viper.GetString("history-dir"))
	case "sqlite":
		dsn, err := drivers.SQLiteDSNForFile(viper.GetString("sqlite-path"))
		if err != nil {
			return nil, err
		}
		return drivers.NewSQLiteBackend(dsn)
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     viper.GetString("redis-addr"),
			Password: viper.GetString("redis-password"),
			DB:       viper.GetInt("redis-db"),
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, errors.Wrap(err, "connect to redis")
		}
		return drivers.NewRedisBackend(client, drivers.WithRedisTTL(viper.GetDuration("redis-ttl")))
	case "postgres":
		return drivers.NewPostgresBackend(ctx, viper.GetString("database-url"))
	case "memory":
		return drivers.NewInMemoryBackend(), nil
	default:
		return nil, errors.Errorf("unknown history backend %q", name)
	}
}

func newAPI() (completion.API, error) {
	token := viper.GetString("openai-token")
	if token == "" {
		// storage only commands keep working without credentials
		log.Debug().Msg("No API token configured")
		return missingTokenAPI{}, nil
	}
	httpClient := &http.Client{Timeout: viper.GetDuration("timeout") + 5*time.Second}
	return completion.MakeClient(viper.GetString("openai-uri"), token, httpClient)
}

var errMissingToken = errors.New("no API token configured, set OPEN_AI_TOKEN or --openai-token")

type missingTokenAPI struct{}

var _ completion.API = missingTokenAPI{}

func (missingTokenAPI) ListModels(context.Context) (go_openai.ModelsList, error) {
	return go_openai.ModelsList{}, errMissingToken
}

func (missingTokenAPI) CreateChatCompletion(context.Context, go_openai.ChatCompletionRequest) (go_openai.ChatCompletionResponse, error) {
	return go_openai.ChatCompletionResponse{}, errMissingToken
}

func (missingTokenAPI) CreateCompletion(context.Context, go_openai.CompletionRequest) (go_openai.CompletionResponse, error) {
	return go_openai.CompletionResponse{}, errMissingToken
}

func (missingTokenAPI) CreateImage(context.Context, go_openai.ImageRequest) (go_openai.ImageResponse, error) {
	return go_openai.ImageResponse{}, errMissingToken
}
