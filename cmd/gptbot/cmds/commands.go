package cmds

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-go-golems/gptbot/pkg/bot"
	"github.com/spf13/cobra"
)

// runWithApp opens the App for the duration of one command.
func runWithApp(cmd *cobra.Command, f func(ctx context.Context, app *App) error) error {
	ctx := cmd.Context()
	app, err := NewApp(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Close()
	}()
	return f(ctx, app)
}

func printReply(cmd *cobra.Command, reply bot.Reply) {
	out := cmd.OutOrStdout()
	if reply.ImageURL != "" {
		_, _ = fmt.Fprintln(out, reply.ImageURL)
		return
	}
	_, _ = fmt.Fprintln(out, reply.Text)
}

func NewChatCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <conversation> <prompt...>",
		Short: "Send a prompt to a persistent conversation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				printReply(cmd, app.Responder.Chat(ctx, args[0], strings.Join(args[1:], " ")))
				return nil
			})
		},
	}
}

func NewPurgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "purge <conversation> [prompt...]",
		Short: "Reset a conversation, optionally with a custom system prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				printReply(cmd, app.Responder.ChatPurge(ctx, args[0], strings.Join(args[1:], " ")))
				return nil
			})
		},
	}
}

func NewTextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "text <prompt...>",
		Short: "Send a single prompt to the text completion model",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				printReply(cmd, app.Responder.Text(ctx, strings.Join(args, " ")))
				return nil
			})
		},
	}
}

func NewImageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "image <prompt...>",
		Short: "Generate an image and print its URL",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				printReply(cmd, app.Responder.Image(ctx, strings.Join(args, " ")))
				return nil
			})
		},
	}
}

func NewTestAPICommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test-api",
		Short: "Check the API connection by listing the available models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWithApp(cmd, func(ctx context.Context, app *App) error {
				printReply(cmd, app.Responder.TestAPI(ctx))
				return nil
			})
		},
	}
}

func NewModelsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the models offered by the API",
		Args:  cobra.NoArgs,
	}
	match := cmd.Flags().String("match", "", "Only list models matching this glob")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, app *App) error {
			models, err := app.Client.ListModels(ctx, *match)
			if err != nil {
				return err
			}
			for _, m := range models {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), m)
			}
			return nil
		})
	}
	return cmd
}

func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <conversation>",
		Short: "Print the message log of a conversation",
		Args:  cobra.ExactArgs(1),
	}
	asJSON := cmd.Flags().Bool("json", false, "Print the stored record instead of a transcript")
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, app *App) error {
			l, err := app.Store.GetOrCreate(ctx, args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if *asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(l)
			}
			for _, m := range l.Messages {
				_, _ = fmt.Fprintf(out, "[%s] %s\n", m.Role, m.Content)
			}
			return nil
		})
	}
	return cmd
}
