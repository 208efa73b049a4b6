package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"emubridge/internal/config"
	"emubridge/internal/device"
	"emubridge/internal/input"
	"emubridge/internal/tray"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var capture bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture local input and forward it to emulator cores",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgMgr, err := loadConfig()
			if err != nil {
				return err
			}
			if err := requireHost("run", cfgMgr.Get()); err != nil {
				return err
			}
			return runHost(cmd.Context(), cfgMgr, capture)
		},
	}
	cmd.Flags().BoolVar(&capture, "capture", false, "capture the pointer as soon as the devices are open")
	return cmd
}

// resolveDevices picks the mouse (required) and keyboard (optional) to grab
func resolveDevices(cfg config.DevicesConfig) (mouse, kbd device.Device, err error) {
	devices, scanErr := device.Scan()
	if scanErr != nil {
		log.Warn().Str("component", "device").Err(scanErr).Msg("Device scan failed")
	}

	mouse, err = device.Pick(devices, device.TypeMouse, cfg.Mouse)
	if err != nil {
		return device.Device{}, device.Device{}, fmt.Errorf("%w: %v", input.ErrNoDevice, err)
	}

	kbd, err = device.Pick(devices, device.TypeKeyboard, cfg.Keyboard)
	if err != nil {
		log.Warn().Str("component", "device").Err(err).Msg("No keyboard, forwarding mouse only")
		kbd = device.Device{}
	}
	return mouse, kbd, nil
}

func runHost(ctx context.Context, cfgMgr *config.Manager, capture bool) error {
	cfg := cfgMgr.Get()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	mouse, kbd, err := resolveDevices(cfg.Devices)
	if err != nil {
		return err
	}

	trap := input.NewTrap(kbd.Path, mouse.Path)
	if err := trap.Open(); err != nil {
		return err
	}
	defer trap.Stop()

	s, err := newSession(cfgMgr, trap)
	if err != nil {
		return err
	}
	defer s.close()

	if cfg.UI.Tray {
		t := tray.New("emubridge", "emubridge input capture")
		captureItem := t.AddCheckItem("Capture mouse", false, func() { s.toggle("tray") })
		var middleItem int
		middleItem = t.AddCheckItem("Release with middle click", cfg.Capture.MiddleButtonRelease, func() {
			on := !t.Checked(middleItem)
			if err := s.setMiddleButtonRelease(on); err != nil {
				log.Error().Str("component", "tray").Err(err).Msg("Could not save setting")
				return
			}
			t.SetItemChecked(middleItem, on)
		})
		t.AddSeparator()
		t.AddMenuItem("Quit", stop)
		s.observe(func(captured bool) { t.SetItemChecked(captureItem, captured) })

		go func() {
			<-ctx.Done()
			t.Stop()
		}()
		if err := startTrap(s, trap, mouse, cfg, capture); err != nil {
			return err
		}
		// systray wants the calling goroutine
		t.Run()
		return nil
	}

	if err := startTrap(s, trap, mouse, cfg, capture); err != nil {
		return err
	}
	<-ctx.Done()
	return nil
}

// startTrap hooks device loss to release, starts reading and optionally
// captures right away
func startTrap(s *session, trap *input.Trap, mouse device.Device, cfg config.Config, capture bool) error {
	trap.OnDeviceLost(func(path string, err error) {
		s.release("device lost: " + path)
	})

	if cfg.Devices.Watch {
		watchMouse(s, mouse)
	}

	if err := trap.Start(s.bridge); err != nil {
		return err
	}

	if capture || cfg.Capture.OnStart {
		if err := s.bridge.CaptureMouse(); err != nil {
			return err
		}
	}

	log.Info().Str("component", "bridge").Str("mouse", mouse.Path).Str("release", cfg.Capture.ReleaseHotkey).Msg("Bridge running")
	return nil
}

// watchMouse releases capture when the grabbed mouse is unplugged. The
// monitor lives as long as the process.
func watchMouse(s *session, mouse device.Device) {
	monitor, err := device.NewMonitor(device.ByIDDir)
	if err != nil {
		log.Warn().Str("component", "device").Err(err).Msg("Hotplug monitor unavailable")
		return
	}
	monitor.OnChange(func(ev device.Event) {
		if ev.Type == device.Removed && ev.Device.Path == mouse.Path {
			s.release("mouse unplugged")
		}
	})
	if err := monitor.Start(); err != nil {
		log.Warn().Str("component", "device").Err(err).Msg("Hotplug monitor failed to start")
		monitor.Close()
		return
	}
	log.Debug().Str("component", "device").Int("devices", len(monitor.Devices())).Msg("Watching for unplug")
}
