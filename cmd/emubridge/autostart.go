package main

import (
	"fmt"

	"emubridge/internal/autostart"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newAutostartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Manage launching the host on login",
	}

	var capture bool
	enable := &cobra.Command{
		Use:   "enable",
		Short: "Install the login entry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := autostart.Enable("", capture); err != nil {
				return err
			}
			log.Info().Str("component", "autostart").Bool("capture", capture).Msg("Enabled")
			return nil
		},
	}
	enable.Flags().BoolVar(&capture, "capture", false, "capture the pointer right after login")

	cmd.AddCommand(enable)
	cmd.AddCommand(&cobra.Command{
		Use:   "disable",
		Short: "Remove the login entry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := autostart.Disable(); err != nil {
				return err
			}
			log.Info().Str("component", "autostart").Msg("Disabled")
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Print whether the login entry is installed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			state := "disabled"
			if autostart.IsEnabled() {
				state = "enabled"
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), state)
			return err
		},
	})
	return cmd
}
