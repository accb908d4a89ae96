package canbus

import "errors"

var (
	// ErrUnregisteredValueID indicates a value id with no wire format entry.
	// Callers must treat the value as unsupported rather than guess a format.
	ErrUnregisteredValueID = errors.New("unregistered value id")
	// ErrInvalidPayloadLength indicates a value payload that is not exactly 4 bytes.
	ErrInvalidPayloadLength = errors.New("invalid payload length")
	// ErrMalformedPacket indicates a frame payload of unexpected length.
	ErrMalformedPacket = errors.New("malformed packet")
	// ErrInvalidOperation indicates an operation code that does not fit in 7 bits.
	ErrInvalidOperation = errors.New("invalid operation")
)
