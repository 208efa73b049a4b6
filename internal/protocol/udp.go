package protocol

import (
	"encoding/binary"
	"math"

	"emubridge/internal/input"
)

// UDP Packet types
const (
	UDPPacketMouseMove   uint8 = 0x01
	UDPPacketMouseButton uint8 = 0x02
	UDPPacketKeyEvent    uint8 = 0x04
	UDPPacketRegister    uint8 = 0x10
	UDPPacketHeartbeat   uint8 = 0x11
	UDPPacketAck         uint8 = 0x12 // Host -> Core: confirms UDP path is open
)

// Header: [type(1)] [seq(4)] [timestamp(8)] = 13 bytes
const UDPHeaderSize = 13

// UDPPacket is a translated input event encoded for low-latency UDP transport
// between the capturing host and the emulator core.
//
// Wire format per type (big endian, floats as IEEE 754 bits):
//
//	MouseMove   (0x01): header + dx(f32) + dy(f32) + wheel(f32)   = 25 bytes
//	MouseButton (0x02): header + pressed(uint8) + mask(uint32)    = 18 bytes
//	KeyEvent    (0x04): header + keyCode(uint16) + pressed(uint8) = 16 bytes
//	Register    (0x10): header only                               = 13 bytes
//	Heartbeat   (0x11): header only                               = 13 bytes
//	Ack         (0x12): header only                               = 13 bytes
type UDPPacket struct {
	Type      uint8
	Seq       uint32
	Timestamp int64
	DeltaX    float32 // mouse move
	DeltaY    float32 // mouse move
	Wheel     float32 // mouse move
	Pressed   bool    // mouse button / key
	Mask      uint32  // mouse button state after the transition
	KeyCode   uint16  // key
}

func payloadSize(t uint8) int {
	switch t {
	case UDPPacketMouseMove:
		return 12
	case UDPPacketMouseButton:
		return 5
	case UDPPacketKeyEvent:
		return 3
	default:
		return 0
	}
}

// EncodeUDPPacket serializes a UDPPacket to wire format.
func EncodeUDPPacket(pkt *UDPPacket) []byte {
	buf := make([]byte, UDPHeaderSize+payloadSize(pkt.Type))
	buf[0] = pkt.Type
	binary.BigEndian.PutUint32(buf[1:5], pkt.Seq)
	binary.BigEndian.PutUint64(buf[5:13], uint64(pkt.Timestamp))

	payload := buf[UDPHeaderSize:]
	switch pkt.Type {
	case UDPPacketMouseMove:
		binary.BigEndian.PutUint32(payload[0:4], math.Float32bits(pkt.DeltaX))
		binary.BigEndian.PutUint32(payload[4:8], math.Float32bits(pkt.DeltaY))
		binary.BigEndian.PutUint32(payload[8:12], math.Float32bits(pkt.Wheel))
	case UDPPacketMouseButton:
		payload[0] = boolByte(pkt.Pressed)
		binary.BigEndian.PutUint32(payload[1:5], pkt.Mask)
	case UDPPacketKeyEvent:
		binary.BigEndian.PutUint16(payload[0:2], pkt.KeyCode)
		payload[2] = boolByte(pkt.Pressed)
	}

	return buf
}

// DecodeUDPPacket deserializes wire bytes into a UDPPacket.
func DecodeUDPPacket(data []byte) (*UDPPacket, error) {
	if len(data) < UDPHeaderSize {
		return nil, ErrShortPacket
	}

	pkt := &UDPPacket{
		Type:      data[0],
		Seq:       binary.BigEndian.Uint32(data[1:5]),
		Timestamp: int64(binary.BigEndian.Uint64(data[5:13])),
	}

	switch pkt.Type {
	case UDPPacketMouseMove, UDPPacketMouseButton, UDPPacketKeyEvent,
		UDPPacketRegister, UDPPacketHeartbeat, UDPPacketAck:
	default:
		return nil, ErrUnknownPacket
	}

	payload := data[UDPHeaderSize:]
	if len(payload) < payloadSize(pkt.Type) {
		return nil, ErrShortPacket
	}

	switch pkt.Type {
	case UDPPacketMouseMove:
		pkt.DeltaX = math.Float32frombits(binary.BigEndian.Uint32(payload[0:4]))
		pkt.DeltaY = math.Float32frombits(binary.BigEndian.Uint32(payload[4:8]))
		pkt.Wheel = math.Float32frombits(binary.BigEndian.Uint32(payload[8:12]))
	case UDPPacketMouseButton:
		pkt.Pressed = payload[0] == 1
		pkt.Mask = binary.BigEndian.Uint32(payload[1:5])
	case UDPPacketKeyEvent:
		pkt.KeyCode = binary.BigEndian.Uint16(payload[0:2])
		pkt.Pressed = payload[2] == 1
	}

	return pkt, nil
}

// PacketFromEvent builds the packet carrying a translated event. Seq and
// Timestamp are left for the sender to fill.
func PacketFromEvent(ev input.Event) *UDPPacket {
	switch e := ev.(type) {
	case input.KeyState:
		return &UDPPacket{Type: UDPPacketKeyEvent, KeyCode: uint16(e.Code), Pressed: e.Down}
	case input.MouseMove:
		return &UDPPacket{Type: UDPPacketMouseMove, DeltaX: e.DX, DeltaY: e.DY, Wheel: e.Wheel}
	case input.MouseButton:
		return &UDPPacket{Type: UDPPacketMouseButton, Pressed: e.Pressed, Mask: uint32(e.Mask)}
	default:
		return nil
	}
}

// Event returns the translated event carried by pkt. Control packets carry
// none.
func (pkt *UDPPacket) Event() (input.Event, bool) {
	switch pkt.Type {
	case UDPPacketKeyEvent:
		return input.KeyState{Code: int(pkt.KeyCode), Down: pkt.Pressed}, true
	case UDPPacketMouseMove:
		return input.MouseMove{DX: pkt.DeltaX, DY: pkt.DeltaY, Wheel: pkt.Wheel}, true
	case UDPPacketMouseButton:
		return input.MouseButton{Pressed: pkt.Pressed, Mask: int(pkt.Mask)}, true
	default:
		return nil, false
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
