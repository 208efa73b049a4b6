package protocol

import (
	"testing"

	"emubridge/internal/input"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPacketSizes(t *testing.T) {
	cases := map[uint8]int{
		UDPPacketMouseMove:   25,
		UDPPacketMouseButton: 18,
		UDPPacketKeyEvent:    16,
		UDPPacketRegister:    13,
		UDPPacketHeartbeat:   13,
		UDPPacketAck:         13,
	}
	for typ, size := range cases {
		assert.Len(t, EncodeUDPPacket(&UDPPacket{Type: typ}), size, "type %#x", typ)
	}
}

func TestEventsSurviveTheWire(t *testing.T) {
	events := []input.Event{
		input.KeyState{Code: 4, Down: true},
		input.KeyState{Code: 123, Down: false},
		input.MouseMove{DX: 3.5, DY: -2, Wheel: 1},
		input.MouseMove{DX: -0.25},
		input.MouseButton{Pressed: true, Mask: input.ButtonPrimary | input.ButtonTertiary},
		input.MouseButton{Pressed: false, Mask: 0},
	}

	for i, ev := range events {
		pkt := PacketFromEvent(ev)
		require.NotNil(t, pkt)
		pkt.Seq = uint32(i + 1)
		pkt.Timestamp = 1700000000000

		decoded, err := DecodeUDPPacket(EncodeUDPPacket(pkt))
		require.NoError(t, err)
		assert.Equal(t, pkt.Seq, decoded.Seq)
		assert.Equal(t, pkt.Timestamp, decoded.Timestamp)

		got, ok := decoded.Event()
		require.True(t, ok)
		assert.Equal(t, ev, got)
	}
}

func TestControlPacketsCarryNoEvent(t *testing.T) {
	decoded, err := DecodeUDPPacket(EncodeUDPPacket(&UDPPacket{Type: UDPPacketAck, Seq: 9}))
	require.NoError(t, err)

	_, ok := decoded.Event()
	assert.False(t, ok)
	assert.Equal(t, uint32(9), decoded.Seq)
}

func TestDecodeErrors(t *testing.T) {
	_, err := DecodeUDPPacket([]byte{UDPPacketMouseMove, 0, 0})
	assert.ErrorIs(t, err, ErrShortPacket)

	move := EncodeUDPPacket(&UDPPacket{Type: UDPPacketMouseMove})
	_, err = DecodeUDPPacket(move[:len(move)-1])
	assert.ErrorIs(t, err, ErrShortPacket)

	unknown := EncodeUDPPacket(&UDPPacket{Type: 0x7f})
	_, err = DecodeUDPPacket(unknown)
	assert.ErrorIs(t, err, ErrUnknownPacket)
}
