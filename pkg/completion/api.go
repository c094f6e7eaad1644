package completion

import (
	"context"
	"net/http"

	"github.com/pkg/errors"
	go_openai "github.com/sashabaranov/go-openai"
)

// API is the subset of the OpenAI client used by Client. *go_openai.Client
// implements it.
type API interface {
	ListModels(ctx context.Context) (go_openai.ModelsList, error)
	CreateChatCompletion(ctx context.Context, request go_openai.ChatCompletionRequest) (go_openai.ChatCompletionResponse, error)
	CreateCompletion(ctx context.Context, request go_openai.CompletionRequest) (go_openai.CompletionResponse, error)
	CreateImage(ctx context.Context, request go_openai.ImageRequest) (go_openai.ImageResponse, error)
}

var _ API = (*go_openai.Client)(nil)

// MakeClient builds an OpenAI client for baseURL authenticated with token.
// An empty baseURL keeps the library default. httpClient may be nil.
func MakeClient(baseURL string, token string, httpClient *http.Client) (*go_openai.Client, error) {
	if token == "" {
		return nil, errors.New("no API token")
	}
	config := go_openai.DefaultConfig(token)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	if httpClient != nil {
		config.HTTPClient = httpClient
	}
	return go_openai.NewClientWithConfig(config), nil
}
