package canbus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMotorRPM_RoundTrip(t *testing.T) {
	tests := []struct {
		name       string
		a, b, c, d int16
	}{
		{"zero", 0, 0, 0, 0},
		{"forward", 1200, 1180, 1210, 1195},
		{"mixed signs", -500, 500, -1, 1},
		{"extremes", -32768, 32767, -32768, 32767},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := NewMotorRPMMessage(tt.a, tt.b, tt.c, tt.d).Encode()
			require.Len(t, data, MotorRPMLength)

			decoded, err := DecodeMotorRPM(data)
			require.NoError(t, err)
			require.Equal(t, tt.a, decoded.A)
			require.Equal(t, tt.b, decoded.B)
			require.Equal(t, tt.c, decoded.C)
			require.Equal(t, tt.d, decoded.D)
		})
	}
}

func TestMotorRPM_Layout(t *testing.T) {
	// channel A first, values little-endian
	data := NewMotorRPMMessage(0x0102, 0x0304, 0x0506, 0x0708).Encode()
	require.Equal(t, []byte{0x02, 0x01, 0x04, 0x03, 0x06, 0x05, 0x08, 0x07}, data)
}

func TestDecodeMotorRPM_Malformed(t *testing.T) {
	for _, n := range []int{0, 7, 9} {
		_, err := DecodeMotorRPM(make([]byte, n))
		require.ErrorIs(t, err, ErrMalformedPacket, "length %d", n)
	}
}

func TestDecodeMotorRPM_Stamped(t *testing.T) {
	m, err := DecodeMotorRPM(make([]byte, MotorRPMLength))
	require.NoError(t, err)
	require.False(t, m.Stamp.IsZero())
}

func TestMotorRPM_ChannelAccess(t *testing.T) {
	m := NewMotorRPMMessage(1, 2, 3, 4)
	require.Equal(t, int16(1), m.RPM(MotorChannelA))
	require.Equal(t, int16(2), m.RPM(MotorChannelB))
	require.Equal(t, int16(3), m.RPM(MotorChannelC))
	require.Equal(t, int16(4), m.RPM(MotorChannelD))
	require.Equal(t, int16(0), m.RPM(MotorChannel(7)))
}

func TestNewMotorRPMFrame(t *testing.T) {
	frame := NewMotorRPMFrame(true, 0x0E, 100, 200, -300, 400)
	require.Equal(t, MotorRPMRequestBase|0x0E, frame.ID)
	require.Equal(t, uint8(MotorRPMLength), frame.Length)

	decoded, err := DecodeMotorRPM(frame.Data[:frame.Length])
	require.NoError(t, err)
	require.Equal(t, int16(-300), decoded.C)

	frame = NewMotorRPMFrame(false, 0x0E, 0, 0, 0, 0)
	require.Equal(t, MotorRPMReplyBase|0x0E, frame.ID)
}
