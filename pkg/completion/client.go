package completion

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-go-golems/gptbot/pkg/conversation"
	"github.com/go-go-golems/gptbot/pkg/helpers"
	"github.com/go-go-golems/gptbot/pkg/settings"
	"github.com/mb0/glob"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	go_openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const DefaultTimeout = 60 * time.Second

// Usage messages returned instead of an error when a prompt is missing.
const (
	UsageChat  = "Prompt is empty, usage: '/chat [PROMPT HERE]'"
	UsageText  = "Prompt is empty, usage: '/text [PROMPT HERE]'"
	UsageImage = "Prompt is empty, usage: '/image [PROMPT HERE]'"
)

const (
	PurgedWithCustomPrompt  = "Chat history purged with custom prompt."
	PurgedWithDefaultPrompt = "Chat history purged with default prompt."
)

// Client relays prompts to the completion API and keeps the conversation
// logs in step with what was sent and received.
type Client struct {
	api      API
	store    *conversation.Store
	settings settings.Loader
	timeout  time.Duration
	limiter  *rate.Limiter
	// turns serializes whole converse/reset operations per conversation.
	turns *helpers.KeyedMutex
}

type Option func(*Client)

// WithTimeout bounds every request to the API. Zero disables the bound.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithRateLimiter makes every API request wait for a token of limiter.
func WithRateLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

func NewClient(api API, store *conversation.Store, loader settings.Loader, options ...Option) *Client {
	c := &Client{
		api:      api,
		store:    store,
		settings: loader,
		timeout:  DefaultTimeout,
		turns:    helpers.NewKeyedMutex(),
	}
	for _, o := range options {
		o(c)
	}
	return c
}

// TestConnection lists the available models to check the endpoint and the
// credentials.
func (c *Client) TestConnection(ctx context.Context) (string, error) {
	log.Info().Msg("Test connection started")

	models, err := c.models(ctx)
	if err != nil {
		return "", err
	}

	output := fmt.Sprintf("Connection opened with %d models found!", len(models))
	log.Debug().Str("output", output).Msg("Connection test output")
	return output, nil
}

// ListModels returns the sorted ids of the available models matching the
// glob pattern. An empty pattern matches everything.
func (c *Client) ListModels(ctx context.Context, pattern string) ([]string, error) {
	models, err := c.models(ctx)
	if err != nil {
		return nil, err
	}

	ret := []string{}
	for _, m := range models {
		if pattern != "" {
			matching, err := glob.Match(pattern, m.ID)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid pattern %q", pattern)
			}
			if !matching {
				continue
			}
		}
		ret = append(ret, m.ID)
	}
	sort.Strings(ret)
	return ret, nil
}

func (c *Client) models(ctx context.Context) ([]go_openai.Model, error) {
	if err := c.throttle(ctx, "list models"); err != nil {
		return nil, err
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	list, err := c.api.ListModels(ctx)
	if err != nil {
		return nil, &RemoteError{Op: "list models", Err: err}
	}
	return list.Models, nil
}

// Converse appends prompt to the conversation, sends the whole transcript
// and appends the first returned choice. If the request fails the user turn
// stays in the log and no assistant turn is added.
func (c *Client) Converse(ctx context.Context, conversationID string, prompt string) (string, error) {
	logger := log.With().Str("conversation", conversationID).Logger()
	logger.Info().Msg("Chat gen started")
	logger.Debug().Str("prompt", prompt).Msg("Chat prompt")
	if prompt == "" {
		logger.Info().Msg("No prompt, stopping")
		return UsageChat, nil
	}

	st, err := c.loadSettings(ctx)
	if err != nil {
		return "", err
	}

	unlock, err := c.turns.Lock(ctx, conversationID)
	if err != nil {
		return "", errors.Wrapf(err, "waiting for conversation %q", conversationID)
	}
	defer unlock()

	if err := c.throttle(ctx, "chat completion"); err != nil {
		return "", err
	}

	history, err := c.store.Append(ctx, conversationID, conversation.RoleUser, prompt)
	if err != nil {
		return "", err
	}

	req := go_openai.ChatCompletionRequest{
		Model:     st.ChatModel,
		Messages:  toOpenAIMessages(history.Messages),
		MaxTokens: st.MaxTokens,
	}

	reqCtx, cancel := c.withTimeout(ctx)
	resp, err := c.api.CreateChatCompletion(reqCtx, req)
	cancel()
	if err != nil {
		logger.Error().Err(err).Msg("Chat request failed")
		return "", &RemoteError{Op: "chat completion", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &RemoteError{Op: "chat completion", Err: ErrNoChoices}
	}
	output := resp.Choices[0].Message.Content
	if output == "" {
		return "", &RemoteError{Op: "chat completion", Err: ErrEmptyText}
	}

	if _, err := c.store.Append(ctx, conversationID, conversation.RoleAssistant, output); err != nil {
		return "", err
	}

	logger.Debug().Str("output", output).Int("messages", history.Len()+1).Msg("Chat output")
	return output, nil
}

// ResetConversation purges the log. It never contacts the API.
func (c *Client) ResetConversation(ctx context.Context, conversationID string, overridePrompt string) (string, error) {
	log.Info().Str("conversation", conversationID).Msg("Chat purge started")
	log.Debug().Str("conversation", conversationID).Str("prompt", overridePrompt).Msg("Chat purge prompt")

	unlock, err := c.turns.Lock(ctx, conversationID)
	if err != nil {
		return "", errors.Wrapf(err, "waiting for conversation %q", conversationID)
	}
	defer unlock()

	if _, err := c.store.Reset(ctx, conversationID, overridePrompt); err != nil {
		return "", err
	}
	if overridePrompt != "" {
		return PurgedWithCustomPrompt, nil
	}
	return PurgedWithDefaultPrompt, nil
}

// GenerateText runs a single completion without touching any conversation.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	log.Info().Msg("Completion gen started")
	log.Debug().Str("prompt", prompt).Msg("Completion prompt")
	if prompt == "" {
		log.Info().Msg("No prompt, stopping")
		return UsageText, nil
	}

	st, err := c.loadSettings(ctx)
	if err != nil {
		return "", err
	}

	if err := c.throttle(ctx, "completion"); err != nil {
		return "", err
	}
	reqCtx, cancel := c.withTimeout(ctx)
	defer cancel()
	resp, err := c.api.CreateCompletion(reqCtx, go_openai.CompletionRequest{
		Model:     st.CompletionModel,
		Prompt:    prompt,
		MaxTokens: st.MaxTokens,
	})
	if err != nil {
		return "", &RemoteError{Op: "completion", Err: err}
	}
	if len(resp.Choices) == 0 {
		return "", &RemoteError{Op: "completion", Err: ErrNoChoices}
	}

	output := resp.Choices[0].Text
	if output == "" {
		return "", &RemoteError{Op: "completion", Err: ErrEmptyText}
	}
	log.Debug().Str("output", output).Msg("Completion output")
	return output, nil
}

// GenerateImage requests one image and returns its URL.
func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	log.Info().Msg("Image gen started")
	log.Debug().Str("prompt", prompt).Msg("Image prompt")
	if prompt == "" {
		return UsageImage, nil
	}

	st, err := c.loadSettings(ctx)
	if err != nil {
		return "", err
	}

	if err := c.throttle(ctx, "image generation"); err != nil {
		return "", err
	}
	reqCtx, cancel := c.withTimeout(ctx)
	defer cancel()
	resp, err := c.api.CreateImage(reqCtx, go_openai.ImageRequest{
		Prompt: prompt,
		N:      1,
		Size:   st.ImageSize,
	})
	if err != nil {
		return "", &RemoteError{Op: "image generation", Err: err}
	}
	if len(resp.Data) == 0 {
		return "", &RemoteError{Op: "image generation", Err: ErrNoChoices}
	}
	if resp.Data[0].URL == "" {
		return "", &RemoteError{Op: "image generation", Err: ErrEmptyText}
	}

	return resp.Data[0].URL, nil
}

func (c *Client) loadSettings(ctx context.Context) (*settings.Settings, error) {
	res, err := c.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	return res.Settings, nil
}

func (c *Client) throttle(ctx context.Context, op string) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return &RemoteError{Op: op, Err: err}
	}
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func toOpenAIMessages(msgs []conversation.Message) []go_openai.ChatCompletionMessage {
	ret := make([]go_openai.ChatCompletionMessage, 0, len(msgs))
	for _, m := range msgs {
		ret = append(ret, go_openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	return ret
}
