package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emubridge/internal/emucore"
	"emubridge/internal/network"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newCoreCmd() *cobra.Command {
	var (
		hostAddr string
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "core",
		Short: "Receive translated events from a host and poll them like an emulator",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgMgr, err := loadConfig()
			if err != nil {
				return err
			}
			cfg := cfgMgr.Get()
			if hostAddr == "" {
				hostAddr = cfg.Network.HostAddr
			}
			if hostAddr == "" {
				return fmt.Errorf("no host address, set network.host_addr or --host")
			}
			return runCore(cmd.Context(), hostAddr, interval)
		},
	}
	cmd.Flags().StringVar(&hostAddr, "host", "", "host UDP address (ip:port)")
	cmd.Flags().DurationVar(&interval, "poll", 16*time.Millisecond, "emulated frame interval")
	return cmd
}

func runCore(ctx context.Context, hostAddr string, interval time.Duration) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	acc := emucore.NewAccumulator(emucore.DefaultQueueSize)
	receiver := network.NewUDPReceiver(hostAddr, acc)
	if !receiver.Probe() {
		log.Warn().Str("component", "udp").Str("host", hostAddr).Msg("Host did not answer, continuing anyway")
	}
	if err := receiver.Start(); err != nil {
		return fmt.Errorf("start udp receiver: %w", err)
	}
	defer receiver.Stop()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			dropped, unmapped := acc.Stats()
			log.Info().Str("component", "core").Int("dropped", dropped).Int("unmapped", unmapped).Msg("Core stopped")
			return nil

		case <-ticker.C:
			state := acc.Poll()
			if state.DX != 0 || state.DY != 0 || state.Wheel != 0 {
				log.Debug().Str("component", "core").
					Float32("dx", state.DX).Float32("dy", state.DY).Float32("wheel", state.Wheel).
					Int("buttons", state.Buttons).Msg("Mouse")
			}
			if codes := acc.DrainScanCodes(); codes != nil {
				log.Debug().Str("component", "core").Hex("scan", codes).Msg("Keyboard")
			}
		}
	}
}
