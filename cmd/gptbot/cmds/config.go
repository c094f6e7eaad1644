package cmds

import (
	"fmt"

	"github.com/go-go-golems/gptbot/pkg/settings"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the bot settings file",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective bot settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := settings.NewStore(viper.GetString("settings-file"))
			if err != nil {
				return err
			}
			res, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}
			b, err := settings.Encode(res.Settings, false)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "# %s (%s)\n", store.Path(), res.Source)
			if res.Defaulted() {
				_, _ = fmt.Fprintf(out, "# defaults written: %s\n", res.Reason)
			}
			_, err = out.Write(b)
			return err
		},
	}

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a settings file with the default values",
		Args:  cobra.NoArgs,
	}
	force := initCmd.Flags().Bool("force", false, "Overwrite an existing settings file")
	initCmd.RunE = func(cmd *cobra.Command, args []string) error {
		path := viper.GetString("settings-file")
		if !*force {
			if _, err := settings.ReadFile(path); err == nil {
				return errors.Errorf("%s already holds valid settings, use --force to overwrite", path)
			}
		}
		if err := settings.WriteFile(path, settings.Default()); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote default settings to %s\n", path)
		return nil
	}

	cmd.AddCommand(show, initCmd)
	return cmd
}
