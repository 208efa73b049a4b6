package main

import (
	"fmt"
	"sync"

	"emubridge/internal/api"
	"emubridge/internal/config"
	"emubridge/internal/hotkey"
	"emubridge/internal/input"
	"emubridge/internal/network"

	"github.com/rs/zerolog/log"
)

// session is the forwarding side shared by every host: the bridge, the UDP
// sender behind the hotkey tap and the optional control API.
type session struct {
	cfgMgr *config.Manager
	sender *network.UDPSender
	hk     *hotkey.Manager
	bridge *input.Bridge
	api    *api.Server

	mu        sync.Mutex
	observers []func(bool)
}

// requireHost rejects configurations meant for the core side
func requireHost(cmd string, cfg config.Config) error {
	if cfg.Network.Role != config.RoleHost {
		return fmt.Errorf("%s needs network.role %q, config has %q", cmd, config.RoleHost, cfg.Network.Role)
	}
	return nil
}

// newSession starts the sender and API for host and registers the release
// hotkeys. Hotkeys are re-registered whenever the configuration changes.
func newSession(cfgMgr *config.Manager, host input.Host) (*session, error) {
	cfg := cfgMgr.Get()

	s := &session{
		cfgMgr: cfgMgr,
		sender: network.NewUDPSender(cfg.Network.UDPPort),
		hk:     hotkey.NewManager(),
	}
	if err := s.sender.Start(); err != nil {
		return nil, fmt.Errorf("start udp sender: %w", err)
	}
	log.Info().Str("component", "udp").Stringer("addr", s.sender.Addr()).Msg("Waiting for cores")

	sink := hotkey.NewTap(input.MultiSink{s.sender, input.LogSink{}}, s.hk)
	s.bridge = input.New(host, sink)

	if err := s.watchConfig(); err != nil {
		s.sender.Stop()
		return nil, err
	}

	s.observe(func(captured bool) {
		if !captured {
			// keys held at release never see their key up
			s.hk.Reset()
			return
		}
		if !s.sender.HasCores() {
			log.Warn().Str("component", "udp").Msg("Captured with no core registered, input is dropped until one registers")
		} else {
			log.Info().Str("component", "udp").Int("cores", s.sender.CoreCount()).Msg("Forwarding to cores")
		}
	})

	if cfg.Network.APIEnabled {
		s.api = api.NewServer(s.bridge, cfg.Network.APIToken)
		s.observe(s.api.BroadcastState)

		if ip, err := network.GetLocalIP(); err == nil {
			log.Info().Str("component", "api").Str("addr", fmt.Sprintf("%s:%d", ip, cfg.Network.APIPort)).Msg("API reachable")
		}
		go func() {
			if err := s.api.Start(cfg.Network.APIPort); err != nil {
				log.Error().Str("component", "api").Err(err).Msg("API server stopped")
			}
		}()
	}

	s.bridge.SetOnCaptureChange(func(captured bool) {
		s.mu.Lock()
		observers := append([]func(bool){}, s.observers...)
		s.mu.Unlock()
		for _, fn := range observers {
			fn(captured)
		}
	})

	if cfg.Network.CoreAddr != "" && !s.sender.HasCores() {
		log.Info().Str("component", "udp").Str("core", cfg.Network.CoreAddr).Msg("Waiting for core registration")
	}
	return s, nil
}

// watchConfig registers the configured hotkeys and re-registers them on
// every configuration change
func (s *session) watchConfig() error {
	if err := s.applyHotkeys(s.cfgMgr.Get().Capture); err != nil {
		return err
	}
	s.cfgMgr.RegisterChangeCallback(func() {
		if err := s.applyHotkeys(s.cfgMgr.Get().Capture); err != nil {
			log.Error().Str("component", "hotkey").Err(err).Msg("Keeping previous hotkeys")
		}
	})
	return nil
}

// applyHotkeys replaces the registered release combos. The new set is
// validated before the old one is cleared.
func (s *session) applyHotkeys(c config.CaptureConfig) error {
	combos := []string{c.ReleaseHotkey}
	if c.MiddleButtonRelease {
		combos = append(combos, hotkey.MouseName(3))
	}

	check := hotkey.NewManager()
	for _, combo := range combos {
		if _, err := check.Register(combo, func() {}); err != nil {
			return err
		}
	}

	s.hk.Clear()
	for _, combo := range combos {
		reason := "hotkey " + combo
		if _, err := s.hk.Register(combo, func() { s.release(reason) }); err != nil {
			return err
		}
	}
	return nil
}

// observe adds a capture-change observer
func (s *session) observe(fn func(bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// toggle captures when released and releases when captured
func (s *session) toggle(reason string) {
	if s.bridge.Captured() {
		s.release(reason)
		return
	}
	if err := s.bridge.CaptureMouse(); err != nil {
		log.Warn().Str("component", "bridge").Str("reason", reason).Err(err).Msg("Capture failed")
	}
}

func (s *session) release(reason string) {
	if !s.bridge.Captured() {
		return
	}
	log.Info().Str("component", "bridge").Str("reason", reason).Msg("Releasing capture")
	if err := s.bridge.UncaptureMouse(); err != nil {
		log.Warn().Str("component", "bridge").Err(err).Msg("Release reported an error")
	}
}

// setMiddleButtonRelease persists the option; hotkeys follow through the
// change callback
func (s *session) setMiddleButtonRelease(on bool) error {
	cfg := s.cfgMgr.Get()
	cfg.Capture.MiddleButtonRelease = on
	if err := s.cfgMgr.Set(cfg); err != nil {
		return err
	}
	return s.cfgMgr.Save()
}

func (s *session) close() {
	s.release("shutdown")
	if s.api != nil {
		s.api.Close()
	}
	s.sender.Stop()
}
