package cmds

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogSettings configures the process wide zerolog logger.
type LogSettings struct {
	Level string
	// Format is json or text. Empty picks text on a terminal.
	Format     string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	WithCaller bool
}

func AddLogFlags(pf *pflag.FlagSet) {
	pf.String("log-level", "info", "Log level (trace, debug, info, warn, error, fatal)")
	pf.String("log-format", "", "Log format (json, text); text when stderr is a terminal")
	pf.String("log-file", "", "Also write JSON logs to this file, rotated by size")
	pf.Int("log-max-size", 10, "Size in megabytes at which the log file is rotated")
	pf.Int("log-max-backups", 3, "Rotated log files to keep")
	pf.Int("log-max-age", 28, "Days to keep rotated log files")
	pf.Bool("with-caller", false, "Log caller")
	pf.Bool("verbose", false, "Shorthand for --log-level debug")
}

func LogSettingsFromViper() LogSettings {
	level := viper.GetString("log-level")
	if viper.GetBool("verbose") && level != "trace" {
		level = "debug"
	}
	return LogSettings{
		Level:      level,
		Format:     viper.GetString("log-format"),
		File:       viper.GetString("log-file"),
		MaxSizeMB:  viper.GetInt("log-max-size"),
		MaxBackups: viper.GetInt("log-max-backups"),
		MaxAgeDays: viper.GetInt("log-max-age"),
		WithCaller: viper.GetBool("with-caller"),
	}
}

// SetupLogging replaces the global logger. On error the previous logger is
// left in place.
func SetupLogging(s LogSettings, stderr io.Writer) error {
	level := zerolog.InfoLevel
	if s.Level != "" {
		parsed, err := zerolog.ParseLevel(s.Level)
		if err != nil {
			return errors.Wrapf(err, "invalid log level %q", s.Level)
		}
		level = parsed
	}

	var console io.Writer
	switch s.Format {
	case "":
		console = stderr
		if f, ok := stderr.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
			console = zerolog.ConsoleWriter{Out: stderr}
		}
	case "text":
		console = zerolog.ConsoleWriter{Out: stderr, NoColor: true}
	case "json":
		console = stderr
	default:
		return errors.Errorf("invalid log format %q", s.Format)
	}

	writers := []io.Writer{console}
	if s.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   s.File,
			MaxSize:    s.MaxSizeMB,
			MaxBackups: s.MaxBackups,
			MaxAge:     s.MaxAgeDays,
		})
	}

	c := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp()
	if s.WithCaller {
		c = c.Caller()
	}
	log.Logger = c.Logger()
	zerolog.SetGlobalLevel(level)
	return nil
}
