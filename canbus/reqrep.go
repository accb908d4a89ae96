package canbus

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/brutella/can"
)

const (
	// Request/reply COB-ID bases, combined with the node id by bitwise OR.
	ReqRepRequestBase uint32 = 0x600
	ReqRepReplyBase   uint32 = 0x580

	// ReqRepLength is the fixed size of an encoded request/reply payload:
	// operation byte + value id (2) + pad + value payload (4).
	ReqRepLength = 8

	// DefaultNodeID addresses the vehicle dashboard/supervisor node.
	DefaultNodeID uint32 = 0x0E
)

// Operation is the requested action on a value id.
type Operation uint8

const (
	OpNop   Operation = 0
	OpRead  Operation = 1
	OpWrite Operation = 2
	OpStore Operation = 3
)

func (op Operation) String() string {
	switch op {
	case OpNop:
		return "nop"
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	case OpStore:
		return "store"
	default:
		return fmt.Sprintf("op-%d", uint8(op))
	}
}

// successBit is the high bit of the operation byte, stolen for the reply
// success flag. Operations must therefore fit in the low 7 bits.
const successBit = 0x80

func packOpByte(op Operation, success bool) (byte, error) {
	if op >= successBit {
		return 0, fmt.Errorf("operation %d does not fit in 7 bits: %w",
			uint8(op), ErrInvalidOperation)
	}
	b := byte(op)
	if success {
		b |= successBit
	}
	return b, nil
}

func unpackOpByte(b byte) (Operation, bool) {
	return Operation(b &^ successBit), b&successBit != 0
}

// ReqRepMessage is a supervisor request or reply for a single named value.
// The payload is always exactly 4 bytes; Success is meaningful on replies
// only. Stamp records the local construction time and is not encoded.
type ReqRepMessage struct {
	Op      Operation
	ValueID ValueID
	Success bool
	Payload [4]byte
	Stamp   time.Time
}

// NewReqRepMessage builds a stamped message. The payload is copied; a nil
// payload yields 4 zero bytes.
func NewReqRepMessage(op Operation, id ValueID, success bool, payload []byte) *ReqRepMessage {
	m := &ReqRepMessage{
		Op:      op,
		ValueID: id,
		Success: success,
		Stamp:   time.Now(),
	}
	copy(m.Payload[:], payload)
	return m
}

// Encode returns the 8-byte wire representation:
// byte 0 = operation | success<<7, bytes 1-2 = value id (LE), byte 3 = pad,
// bytes 4-7 = value payload.
func (m *ReqRepMessage) Encode() ([]byte, error) {
	opByte, err := packOpByte(m.Op, m.Success)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, ReqRepLength)
	buf[0] = opByte
	binary.LittleEndian.PutUint16(buf[1:3], uint16(m.ValueID))
	copy(buf[4:], m.Payload[:])
	return buf, nil
}

// DecodeReqRep parses an 8-byte request/reply payload and stamps the message
// with the local receive time.
func DecodeReqRep(data []byte) (*ReqRepMessage, error) {
	if len(data) != ReqRepLength {
		return nil, fmt.Errorf("request/reply packet is %d bytes, want %d: %w",
			len(data), ReqRepLength, ErrMalformedPacket)
	}

	op, success := unpackOpByte(data[0])
	m := &ReqRepMessage{
		Op:      op,
		ValueID: ValueID(binary.LittleEndian.Uint16(data[1:3])),
		Success: success,
		Stamp:   time.Now(),
	}
	copy(m.Payload[:], data[4:])
	return m, nil
}

func (m *ReqRepMessage) String() string {
	return fmt.Sprintf("supervisor %s %s success %v payload %x",
		m.Op, m.ValueID, m.Success, m.Payload)
}

// NewReqRepFrame builds a ready-to-send CAN frame for a supervisor request
// (request base) or reply (reply base), OR-ing the node id into the frame id.
func NewReqRepFrame(request bool, op Operation, id ValueID, nodeID uint32, payload []byte) (can.Frame, error) {
	data, err := NewReqRepMessage(op, id, false, payload).Encode()
	if err != nil {
		return can.Frame{}, err
	}

	base := ReqRepReplyBase
	if request {
		base = ReqRepRequestBase
	}
	return packFrame(base|nodeID, data), nil
}

// packFrame creates a CAN frame with the given ID and data.
func packFrame(id uint32, data []byte) can.Frame {
	var frameData [8]byte
	copy(frameData[:], data)
	return can.Frame{
		ID:     id,
		Length: uint8(len(data)),
		Flags:  0,
		Data:   frameData,
	}
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
