package network

import (
	"net"
	"time"

	"emubridge/internal/input"
	"emubridge/internal/protocol"

	"github.com/rs/zerolog/log"
)

const heartbeatInterval = 5 * time.Second

// UDPReceiver is the core-side UDP listener that replays translated events
// from the host into a local Sink.
type UDPReceiver struct {
	hostAddr string // host address in "ip:port" format
	sink     input.Sink
	conn     *net.UDPConn
	done     chan struct{}

	// dedup ring buffer for redundant packets
	dedup seqDedup
}

// seqDedup tracks recently seen sequence numbers to discard redundant packets.
// Uses a fixed-size ring buffer, no allocation, O(1) lookup.
type seqDedup struct {
	ring [512]uint32
	pos  int
	seen map[uint32]struct{}
}

func newSeqDedup() seqDedup {
	return seqDedup{seen: make(map[uint32]struct{}, 512)}
}

func (d *seqDedup) isDuplicate(seq uint32) bool {
	if _, ok := d.seen[seq]; ok {
		return true
	}
	// Evict oldest entry
	old := d.ring[d.pos]
	if old != 0 {
		delete(d.seen, old)
	}
	d.ring[d.pos] = seq
	d.seen[seq] = struct{}{}
	d.pos = (d.pos + 1) % len(d.ring)
	return false
}

// NewUDPReceiver creates a receiver that feeds events from hostAddr to sink.
func NewUDPReceiver(hostAddr string, sink input.Sink) *UDPReceiver {
	return &UDPReceiver{
		hostAddr: hostAddr,
		sink:     sink,
		done:     make(chan struct{}),
		dedup:    newSeqDedup(),
	}
}

// Probe tests whether UDP connectivity to the host is available.
// It sends register packets and waits for an Ack response.
// Returns true if the host replied within the timeout, false otherwise.
func (r *UDPReceiver) Probe() bool {
	hostUDP, err := net.ResolveUDPAddr("udp", r.hostAddr)
	if err != nil {
		log.Warn().Str("component", "udp").Err(err).Msg("Probe: failed to resolve host")
		return false
	}

	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: 0})
	if err != nil {
		log.Warn().Str("component", "udp").Err(err).Msg("Probe: failed to bind")
		return false
	}
	defer conn.Close()

	// Try up to 3 times with 500ms timeout each (total max ~1.5s)
	buf := make([]byte, 64)
	for attempt := 0; attempt < 3; attempt++ {
		pkt := &protocol.UDPPacket{
			Type:      protocol.UDPPacketRegister,
			Timestamp: time.Now().UnixMilli(),
		}
		_, _ = conn.WriteToUDP(protocol.EncodeUDPPacket(pkt), hostUDP)

		_ = conn.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, _, err := conn.ReadFromUDP(buf)
		if err != nil {
			continue
		}
		resp, err := protocol.DecodeUDPPacket(buf[:n])
		if err != nil {
			continue
		}
		if resp.Type == protocol.UDPPacketAck {
			log.Info().Str("component", "udp").Int("attempt", attempt+1).Msg("Probe: host replied, UDP path is open")
			return true
		}
	}

	log.Warn().Str("component", "udp").Msg("Probe: no Ack received after 3 attempts, UDP path blocked")
	return false
}

// Start opens a UDP socket, registers with the host, and begins receiving.
func (r *UDPReceiver) Start() error {
	hostUDP, err := net.ResolveUDPAddr("udp", r.hostAddr)
	if err != nil {
		return err
	}

	// Bind to any available local port
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: 0})
	if err != nil {
		return err
	}
	r.conn = conn

	// Large read buffer for burst receives
	_ = conn.SetReadBuffer(1 << 20)

	log.Info().Str("component", "udp").Str("local", conn.LocalAddr().String()).Str("host", r.hostAddr).Msg("UDP receiver listening")

	r.sendControl(protocol.UDPPacketRegister, hostUDP)

	go r.heartbeatLoop(hostUDP)
	go r.readLoop()

	return nil
}

// heartbeatLoop sends periodic heartbeat packets to keep the registration alive.
func (r *UDPReceiver) heartbeatLoop(hostAddr *net.UDPAddr) {
	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.sendControl(protocol.UDPPacketHeartbeat, hostAddr)
		case <-r.done:
			return
		}
	}
}

// sendControl sends a register or heartbeat packet (header-only, no payload).
func (r *UDPReceiver) sendControl(pktType uint8, addr *net.UDPAddr) {
	pkt := &protocol.UDPPacket{
		Type:      pktType,
		Timestamp: time.Now().UnixMilli(),
	}
	_, _ = r.conn.WriteToUDP(protocol.EncodeUDPPacket(pkt), addr)
}

// readLoop reads and dispatches incoming binary input packets.
func (r *UDPReceiver) readLoop() {
	buf := make([]byte, 64)
	for {
		n, _, err := r.conn.ReadFromUDP(buf)
		if err != nil {
			select {
			case <-r.done:
				return
			default:
				continue
			}
		}

		pkt, err := protocol.DecodeUDPPacket(buf[:n])
		if err != nil {
			log.Debug().Str("component", "udp").Err(err).Msg("Dropping malformed packet")
			continue
		}

		ev, ok := pkt.Event()
		if !ok {
			continue
		}

		// Redundant copies share a sequence number
		if r.dedup.isDuplicate(pkt.Seq) {
			continue
		}

		input.Dispatch(r.sink, ev)
	}
}

// Stop shuts down the UDP receiver.
func (r *UDPReceiver) Stop() {
	close(r.done)
	if r.conn != nil {
		r.conn.Close()
	}
}
