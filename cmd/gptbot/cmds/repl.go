package cmds

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/go-go-golems/gptbot/pkg/bot"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const replPrompt = "gptbot> "

// Renderer styles a reply before it is printed.
type Renderer func(text string) (string, error)

func GlamourRenderer(text string) (string, error) {
	return glamour.Render(text, "dark")
}

// LineReader yields one input line per call and io.EOF at the end.
type LineReader interface {
	ReadLine() (string, error)
}

type scannerReader struct {
	scanner *bufio.Scanner
}

func NewScannerReader(in io.Reader) LineReader {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &scannerReader{scanner: scanner}
}

func (s *scannerReader) ReadLine() (string, error) {
	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// linerReader adds line editing and input history on a terminal.
type linerReader struct {
	state *liner.State
}

func newLinerReader() *linerReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	return &linerReader{state: state}
}

func (l *linerReader) ReadLine() (string, error) {
	line, err := l.state.Prompt(replPrompt)
	if err == liner.ErrPromptAborted {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		l.state.AppendHistory(line)
	}
	return line, nil
}

func (l *linerReader) Close() error {
	return l.state.Close()
}

// Repl reads one command per line and prints the replies to out, the way
// a chat transport would for a single conversation. Lines without a leading
// slash are chat prompts.
func Repl(ctx context.Context, responder *bot.Responder, conversationID string, in LineReader, out io.Writer, render Renderer) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := in.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}

		reply := responder.Dispatch(ctx, conversationID, line)
		text := reply.Text
		if reply.ImageURL != "" {
			text = reply.ImageURL
		} else if render != nil {
			styled, err := render(text)
			if err != nil {
				log.Warn().Err(err).Msg("Could not render reply")
			} else {
				text = styled
			}
		}
		if _, err := fmt.Fprintln(out, text); err != nil {
			return err
		}
	}
}

func NewReplCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Talk to the bot line by line on the terminal",
		Args:  cobra.NoArgs,
	}
	conversationID := cmd.Flags().String("conversation", "", "Conversation to continue (required)")
	render := cmd.Flags().Bool("render", false, "Render replies as markdown when stdout is a terminal")
	_ = cmd.MarkFlagRequired("conversation")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runWithApp(cmd, func(ctx context.Context, app *App) error {
			var renderer Renderer
			if *render && isatty.IsTerminal(os.Stdout.Fd()) {
				renderer = GlamourRenderer
			}

			var in LineReader
			if isatty.IsTerminal(os.Stdin.Fd()) {
				lr := newLinerReader()
				defer func() {
					_ = lr.Close()
				}()
				in = lr
			} else {
				in = NewScannerReader(cmd.InOrStdin())
			}

			return Repl(ctx, app.Responder, *conversationID, in, cmd.OutOrStdout(), renderer)
		})
	}
	return cmd
}
