package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"emubridge/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgPath  string
	logLevel string
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "emubridge",
		Short:         "Input capture bridge for emulators",
		Long:          `Captures the pointer and keyboard and forwards translated events to an emulator core.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogging(logLevel)
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default is the per-user config directory)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newCoreCmd())
	rootCmd.AddCommand(newDevicesCmd())
	rootCmd.AddCommand(newKeysCmd())
	rootCmd.AddCommand(newCtlCmd())
	rootCmd.AddCommand(newWindowCmd())
	rootCmd.AddCommand(newAutostartCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the root command and exits non-zero on failure
func Execute() {
	rootCmd := newRootCmd()
	rootCmd.SetContext(context.Background())

	if err := rootCmd.Execute(); err != nil {
		msg := err.Error()
		if !strings.HasSuffix(msg, "\n") {
			msg += "\n"
		}
		fmt.Fprint(os.Stderr, "Error: "+msg)
		os.Exit(1)
	}
}

func setupLogging(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	return nil
}

func loadConfig() (*config.Manager, error) {
	mgr, err := config.NewManager(cfgPath)
	if err != nil {
		return nil, err
	}
	if err := mgr.Load(); err != nil {
		return nil, err
	}
	log.Debug().Str("component", "config").Str("path", mgr.Path()).Msg("Configuration ready")
	return mgr, nil
}
