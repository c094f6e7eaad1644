package main

import (
	"os"
	"strings"

	"github.com/go-go-golems/gptbot/cmd/gptbot/cmds"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "gptbot",
	Short: "gptbot relays chat commands to an OpenAI compatible API",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// flags are parsed now, they override the config file settings
		return initLogger()
	},
	SilenceUsage: true,
}

func initLogger() error {
	return cmds.SetupLogging(cmds.LogSettingsFromViper(), os.Stderr)
}

func initConfig(configPath string) error {
	viper.SetEnvPrefix("gptbot")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("gptbot")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.gptbot")
		viper.AddConfigPath("/etc/gptbot")

		xdgConfigPath, err := os.UserConfigDir()
		if err == nil {
			viper.AddConfigPath(xdgConfigPath + "/gptbot")
		}
	}

	// running without a config file is fine
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// unprefixed names kept for existing deployments
	if err := viper.BindEnv("openai-uri", "GPTBOT_OPENAI_URI", "OPEN_AI_URI"); err != nil {
		return err
	}
	if err := viper.BindEnv("openai-token", "GPTBOT_OPENAI_TOKEN", "OPEN_AI_TOKEN"); err != nil {
		return err
	}

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return err
	}

	// config file and env only, flags are applied in PersistentPreRunE
	if err := initLogger(); err != nil {
		return err
	}

	log.Debug().
		Str("config", viper.ConfigFileUsed()).
		Msg("Loaded configuration")

	return nil
}

func main() {
	// --config has to be known before cobra parses the flags
	configPath := ""
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			configPath = os.Args[i+1]
		} else if strings.HasPrefix(arg, "--config=") {
			configPath = strings.TrimPrefix(arg, "--config=")
		}
	}
	if err := initConfig(configPath); err != nil {
		log.Fatal().Err(err).Msg("Could not load configuration")
	}

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to the gptbot configuration file")
	cmds.AddLogFlags(pf)
	cmds.AddFlags(pf)

	rootCmd.AddCommand(
		cmds.NewChatCommand(),
		cmds.NewPurgeCommand(),
		cmds.NewTextCommand(),
		cmds.NewImageCommand(),
		cmds.NewTestAPICommand(),
		cmds.NewModelsCommand(),
		cmds.NewHistoryCommand(),
		cmds.NewReplCommand(),
		cmds.NewConfigCommand(),
	)
}
