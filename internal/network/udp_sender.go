// Package network carries translated input events between the capturing host
// and emulator cores.
package network

import (
	"net"
	"sync"
	"sync/atomic"
	"time"

	"emubridge/internal/input"
	"emubridge/internal/protocol"

	"github.com/rs/zerolog/log"
)

const (
	coreTimeout     = 30 * time.Second
	cleanupInterval = 10 * time.Second
)

// UDPSender is the host-side sink that forwards translated events to every
// registered emulator core as binary UDP packets.
type UDPSender struct {
	conn    *net.UDPConn
	port    int
	cores   map[string]*udpCore
	coresMu sync.RWMutex
	seq     uint32 // atomic, monotonically increasing
	done    chan struct{}
}

type udpCore struct {
	addr     *net.UDPAddr
	lastSeen time.Time
}

var _ input.Sink = (*UDPSender)(nil)

// NewUDPSender creates a new UDP sender for the host. Port 0 picks a free port.
func NewUDPSender(port int) *UDPSender {
	return &UDPSender{
		port:  port,
		cores: make(map[string]*udpCore),
		done:  make(chan struct{}),
	}
}

// Start binds the UDP socket and begins listening for core registrations.
func (s *UDPSender) Start() error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: s.port})
	if err != nil {
		return err
	}
	s.conn = conn

	// 1 MB write buffer for burst writes
	_ = conn.SetWriteBuffer(1 << 20)
	// 64 KB read buffer for register/heartbeat
	_ = conn.SetReadBuffer(1 << 16)

	log.Info().Str("component", "udp").Str("addr", conn.LocalAddr().String()).Msg("UDP sender listening")

	go s.readLoop()
	go s.cleanupLoop()

	return nil
}

// Addr returns the bound local address, or nil before Start.
func (s *UDPSender) Addr() *net.UDPAddr {
	if s.conn == nil {
		return nil
	}
	return s.conn.LocalAddr().(*net.UDPAddr)
}

// readLoop listens for register and heartbeat packets from cores.
func (s *UDPSender) readLoop() {
	buf := make([]byte, 64)
	for {
		n, remoteAddr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-s.done:
				return
			default:
				continue
			}
		}

		pkt, err := protocol.DecodeUDPPacket(buf[:n])
		if err != nil {
			continue
		}

		switch pkt.Type {
		case protocol.UDPPacketRegister:
			s.touch(remoteAddr, "register")

			// Reply with Ack so the core can confirm UDP connectivity
			ack := &protocol.UDPPacket{
				Type:      protocol.UDPPacketAck,
				Timestamp: time.Now().UnixMilli(),
			}
			_, _ = s.conn.WriteToUDP(protocol.EncodeUDPPacket(ack), remoteAddr)

		case protocol.UDPPacketHeartbeat:
			s.touch(remoteAddr, "heartbeat")
		}
	}
}

func (s *UDPSender) touch(addr *net.UDPAddr, via string) {
	key := addr.String()
	s.coresMu.Lock()
	defer s.coresMu.Unlock()
	if _, exists := s.cores[key]; !exists {
		log.Info().Str("component", "udp").Str("core", key).Str("via", via).Msg("Core registered")
	}
	s.cores[key] = &udpCore{addr: addr, lastSeen: time.Now()}
}

// cleanupLoop removes cores that haven't sent a heartbeat recently.
func (s *UDPSender) cleanupLoop() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.coresMu.Lock()
			for key, core := range s.cores {
				if time.Since(core.lastSeen) > coreTimeout {
					log.Info().Str("component", "udp").Str("core", key).Msg("Removing stale core")
					delete(s.cores, key)
				}
			}
			s.coresMu.Unlock()
		case <-s.done:
			return
		}
	}
}

// OnKey forwards a key transition. Sent three times since UDP may drop it
// and a lost release leaves a key stuck.
func (s *UDPSender) OnKey(code int, down bool) {
	s.send(input.KeyState{Code: code, Down: down}, 3)
}

// OnMouseMove forwards relative motion once; a lost delta is not worth
// retransmitting.
func (s *UDPSender) OnMouseMove(dx, dy, wheel float32) {
	s.send(input.MouseMove{DX: dx, DY: dy, Wheel: wheel}, 1)
}

// OnMouseButton forwards a button transition three times.
func (s *UDPSender) OnMouseButton(pressed bool, mask int) {
	s.send(input.MouseButton{Pressed: pressed, Mask: mask}, 3)
}

func (s *UDPSender) send(ev input.Event, redundancy int) {
	if s.conn == nil {
		return
	}
	pkt := protocol.PacketFromEvent(ev)
	pkt.Seq = atomic.AddUint32(&s.seq, 1)
	pkt.Timestamp = time.Now().UnixMilli()
	s.broadcast(protocol.EncodeUDPPacket(pkt), redundancy)
}

// broadcast sends data to all registered cores.
func (s *UDPSender) broadcast(data []byte, redundancy int) {
	s.coresMu.RLock()
	defer s.coresMu.RUnlock()

	for _, core := range s.cores {
		for i := 0; i < redundancy; i++ {
			_, _ = s.conn.WriteToUDP(data, core.addr)
		}
	}
}

// HasCores returns true if at least one core is registered.
func (s *UDPSender) HasCores() bool {
	s.coresMu.RLock()
	defer s.coresMu.RUnlock()
	return len(s.cores) > 0
}

// CoreCount returns the number of registered cores.
func (s *UDPSender) CoreCount() int {
	s.coresMu.RLock()
	defer s.coresMu.RUnlock()
	return len(s.cores)
}

// Stop shuts down the UDP sender.
func (s *UDPSender) Stop() {
	close(s.done)
	if s.conn != nil {
		s.conn.Close()
	}
}
