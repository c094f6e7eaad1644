package bot

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-go-golems/gptbot/pkg/completion"
	"github.com/rs/zerolog/log"
)

const DefaultSourceURL = "https://github.com/go-go-golems/gptbot"

// Reply is what a transport sends back for one command. ImageURL is set
// when the transport should send a picture, with Text as its caption.
type Reply struct {
	Text     string
	ImageURL string
}

// Command describes one slash command.
type Command struct {
	Name        string
	Description string
}

var Commands = []Command{
	{Name: "help", Description: "Display this text."},
	{Name: "source", Description: "Display a link to my source code."},
	{Name: "testapi", Description: "Test API connection by fetching a list of models from OpenAI"},
	{Name: "chat", Description: "Chat with Chat-GPT, chats are persistent for each group/DM"},
	{Name: "chatpurge", Description: "Reset Chat-GPT's conversation. Optionally include a system prompt."},
	{Name: "text", Description: "Send a prompt to the text completion model"},
	{Name: "image", Description: "Send a prompt to generate an image"},
}

// Responder turns the completion client's results and errors into the
// short strings shown to users.
type Responder struct {
	client    *completion.Client
	sourceURL string
}

type ResponderOption func(*Responder)

func WithSourceURL(u string) ResponderOption {
	return func(r *Responder) {
		r.sourceURL = u
	}
}

func NewResponder(client *completion.Client, options ...ResponderOption) *Responder {
	r := &Responder{
		client:    client,
		sourceURL: DefaultSourceURL,
	}
	for _, o := range options {
		o(r)
	}
	return r
}

func (r *Responder) Help() Reply {
	var sb strings.Builder
	sb.WriteString("These commands are supported:\n")
	for _, c := range Commands {
		fmt.Fprintf(&sb, "/%s - %s\n", c.Name, c.Description)
	}
	return Reply{Text: strings.TrimRight(sb.String(), "\n")}
}

func (r *Responder) Source() Reply {
	return Reply{Text: "My source code can be found at: " + r.sourceURL}
}

func (r *Responder) TestAPI(ctx context.Context) Reply {
	out, err := r.client.TestConnection(ctx)
	if err != nil {
		return Reply{Text: fmt.Sprintf("Error during API setup: %v", err)}
	}
	return Reply{Text: out}
}

func (r *Responder) Chat(ctx context.Context, conversationID string, prompt string) Reply {
	out, err := r.client.Converse(ctx, conversationID, prompt)
	return apiReply(out, err)
}

func (r *Responder) ChatPurge(ctx context.Context, conversationID string, prompt string) Reply {
	out, err := r.client.ResetConversation(ctx, conversationID, prompt)
	return apiReply(out, err)
}

func (r *Responder) Text(ctx context.Context, prompt string) Reply {
	out, err := r.client.GenerateText(ctx, prompt)
	return apiReply(out, err)
}

// Image replies with a picture when the API returned a URL, and with the
// usage or error text otherwise.
func (r *Responder) Image(ctx context.Context, prompt string) Reply {
	out, err := r.client.GenerateImage(ctx, prompt)
	if err != nil {
		return apiReply(out, err)
	}
	if u, perr := url.Parse(out); perr == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return Reply{Text: prompt, ImageURL: out}
	}
	return Reply{Text: out}
}

// Dispatch parses a "/command args" line and runs it for conversationID.
// Lines without a leading slash are treated as /chat.
func (r *Responder) Dispatch(ctx context.Context, conversationID string, line string) Reply {
	name, args := ParseCommand(line)
	log.Debug().Str("conversation", conversationID).Str("command", name).Msg("Dispatching command")

	switch name {
	case "help":
		return r.Help()
	case "source":
		return r.Source()
	case "testapi":
		return r.TestAPI(ctx)
	case "chat":
		return r.Chat(ctx, conversationID, args)
	case "chatpurge":
		return r.ChatPurge(ctx, conversationID, args)
	case "text":
		return r.Text(ctx, args)
	case "image":
		return r.Image(ctx, args)
	default:
		return Reply{Text: fmt.Sprintf("Unknown command /%s, try /help", name)}
	}
}

// ParseCommand splits "/Name@bot rest" into ("name", "rest").
func ParseCommand(line string) (string, string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return "chat", line
	}
	line = line[1:]
	name, args, _ := strings.Cut(line, " ")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name), strings.TrimSpace(args)
}

func apiReply(out string, err error) Reply {
	if err != nil {
		log.Error().Err(err).Msg("API call failed")
		return Reply{Text: fmt.Sprintf("Error during API call: %v", err)}
	}
	return Reply{Text: out}
}
