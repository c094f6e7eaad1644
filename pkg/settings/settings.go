package settings

import (
	"fmt"

	"github.com/huandu/go-clone"
)

const (
	DefaultChatModel       = "gpt-4"
	DefaultCompletionModel = "gpt-3.5-turbo-instruct"
	DefaultChatBasePrompt  = "You are an assistant that is built into a Telegram bot. Only respond with plaintext and if you are writing code begin with CODE-START and end with CODE-END."
	DefaultMaxTokens       = 1024
	DefaultImageSize       = "512x512"
)

// Settings are the global bot settings shared by every conversation.
type Settings struct {
	// ChatModel is used for /chat/completions requests.
	ChatModel string `yaml:"chat_model" json:"chat_model"`
	// CompletionModel is used for the legacy /completions endpoint.
	CompletionModel string `yaml:"completion_model,omitempty" json:"completion_model,omitempty"`
	// ChatBasePrompt seeds new and purged conversations.
	ChatBasePrompt string `yaml:"chat_base_prompt" json:"chat_base_prompt"`
	MaxTokens      int    `yaml:"max_tokens" json:"max_tokens"`
	// ImageSize is passed verbatim to /images/generations, e.g. 512x512.
	ImageSize string `yaml:"image_size" json:"image_size"`
}

// Default returns the compiled-in settings.
func Default() *Settings {
	return &Settings{
		ChatModel:       DefaultChatModel,
		CompletionModel: DefaultCompletionModel,
		ChatBasePrompt:  DefaultChatBasePrompt,
		MaxTokens:       DefaultMaxTokens,
		ImageSize:       DefaultImageSize,
	}
}

func (s *Settings) Clone() *Settings {
	return clone.Clone(s).(*Settings)
}

func (s *Settings) Validate() error {
	if s == nil {
		return fmt.Errorf("settings are nil")
	}
	if s.ChatModel == "" {
		return &MissingFieldError{Field: "chat_model"}
	}
	if s.ChatBasePrompt == "" {
		return &MissingFieldError{Field: "chat_base_prompt"}
	}
	if s.ImageSize == "" {
		return &MissingFieldError{Field: "image_size"}
	}
	if s.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive, got %d", s.MaxTokens)
	}
	return nil
}
