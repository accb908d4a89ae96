package canbus

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/brutella/can"
)

const (
	// Motor RPM COB-ID bases, combined with the node id by bitwise OR.
	// The same 8-byte layout is used for outgoing requests and for
	// measured replies.
	MotorRPMRequestBase uint32 = 0x300
	MotorRPMReplyBase   uint32 = 0x280

	// MotorRPMLength is the fixed size of an encoded motor RPM payload.
	MotorRPMLength = 8
)

// MotorChannel identifies one of the four motor channels.
type MotorChannel int

const (
	MotorChannelA MotorChannel = iota
	MotorChannelB
	MotorChannelC
	MotorChannelD
	MotorChannelCount
)

func (ch MotorChannel) String() string {
	switch ch {
	case MotorChannelA:
		return "a"
	case MotorChannelB:
		return "b"
	case MotorChannelC:
		return "c"
	case MotorChannelD:
		return "d"
	default:
		return "?"
	}
}

// MotorRPMMessage carries one RPM reading per motor channel. Stamp records
// the local construction time for staleness checks and is not encoded.
type MotorRPMMessage struct {
	A, B, C, D int16
	Stamp      time.Time
}

// NewMotorRPMMessage builds a stamped message.
func NewMotorRPMMessage(a, b, c, d int16) *MotorRPMMessage {
	return &MotorRPMMessage{A: a, B: b, C: c, D: d, Stamp: time.Now()}
}

// Encode returns the 8-byte wire representation: four i16 values (LE),
// channels A to D in order.
func (m *MotorRPMMessage) Encode() []byte {
	buf := make([]byte, MotorRPMLength)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(m.A))
	binary.LittleEndian.PutUint16(buf[2:4], uint16(m.B))
	binary.LittleEndian.PutUint16(buf[4:6], uint16(m.C))
	binary.LittleEndian.PutUint16(buf[6:8], uint16(m.D))
	return buf
}

// DecodeMotorRPM parses an 8-byte motor RPM payload and stamps the message
// with the local receive time.
func DecodeMotorRPM(data []byte) (*MotorRPMMessage, error) {
	if len(data) != MotorRPMLength {
		return nil, fmt.Errorf("motor RPM packet is %d bytes, want %d: %w",
			len(data), MotorRPMLength, ErrMalformedPacket)
	}

	return &MotorRPMMessage{
		A:     int16(binary.LittleEndian.Uint16(data[0:2])),
		B:     int16(binary.LittleEndian.Uint16(data[2:4])),
		C:     int16(binary.LittleEndian.Uint16(data[4:6])),
		D:     int16(binary.LittleEndian.Uint16(data[6:8])),
		Stamp: time.Now(),
	}, nil
}

// RPM returns the reading for a single channel.
func (m *MotorRPMMessage) RPM(ch MotorChannel) int16 {
	switch ch {
	case MotorChannelA:
		return m.A
	case MotorChannelB:
		return m.B
	case MotorChannelC:
		return m.C
	case MotorChannelD:
		return m.D
	default:
		return 0
	}
}

func (m *MotorRPMMessage) String() string {
	return fmt.Sprintf("motor RPMs | A %d B %d C %d D %d", m.A, m.B, m.C, m.D)
}

// NewMotorRPMFrame builds a ready-to-send CAN frame carrying four motor RPM
// values, addressed as a request or reply for the given node.
func NewMotorRPMFrame(request bool, nodeID uint32, a, b, c, d int16) can.Frame {
	base := MotorRPMReplyBase
	if request {
		base = MotorRPMRequestBase
	}
	return packFrame(base|nodeID, NewMotorRPMMessage(a, b, c, d).Encode())
}
