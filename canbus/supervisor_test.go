package canbus

import (
	"testing"

	"github.com/brutella/can"
	"github.com/stretchr/testify/require"
)

// testLogger implements Logger for testing
type testLogger struct{}

func (l *testLogger) Printf(format string, v ...interface{}) {}
func (l *testLogger) Debug(format string, v ...interface{})  {}
func (l *testLogger) Info(format string, v ...interface{})   {}
func (l *testLogger) Warn(format string, v ...interface{})   {}
func (l *testLogger) Error(format string, v ...interface{})  {}
func (l *testLogger) DebugCAN(direction string, id uint32, data []byte, length uint8) {
}

func makeCANFrame(id uint32, data []byte) can.Frame {
	f := can.Frame{
		ID:     id,
		Length: uint8(len(data)),
	}
	copy(f.Data[:], data)
	return f
}

func newTestSupervisor() *Supervisor {
	return NewSupervisor(SupervisorConfig{
		Logger: &testLogger{},
		NodeID: 0x0E,
	})
}

func makeReplyFrame(t *testing.T, nodeID uint32, op Operation, id ValueID, success bool, payload []byte) can.Frame {
	t.Helper()
	data, err := NewReqRepMessage(op, id, success, payload).Encode()
	require.NoError(t, err)
	return makeCANFrame(ReqRepReplyBase|nodeID, data)
}

func TestSupervisor_ReadReplyCachesValue(t *testing.T) {
	s := newTestSupervisor()

	frame := makeReplyFrame(t, 0x0E, OpRead, ValueMaxSpeedLevel, true, UnsignedValue(1500).Encode())
	require.NoError(t, s.HandleFrame(frame))

	value, ok := s.GetValue(ValueMaxSpeedLevel)
	require.True(t, ok)
	require.Equal(t, uint16(1500), value.Unsigned())
}

func TestSupervisor_WriteReplyCachesValue(t *testing.T) {
	s := newTestSupervisor()

	frame := makeReplyFrame(t, 0x0E, OpWrite, ValueMaxTurnRate, true, FloatValue(0.75).Encode())
	require.NoError(t, s.HandleFrame(frame))

	value, ok := s.GetValue(ValueMaxTurnRate)
	require.True(t, ok)
	require.Equal(t, float32(0.75), value.Float())
}

func TestSupervisor_RejectedReply(t *testing.T) {
	s := newTestSupervisor()

	var rejectedOp Operation
	var rejectedID ValueID
	rejections := 0
	s.SetRejectCallback(func(op Operation, id ValueID) {
		rejections++
		rejectedOp = op
		rejectedID = id
	})

	frame := makeReplyFrame(t, 0x0E, OpWrite, ValueMaxSpeedLevel, false, nil)
	require.NoError(t, s.HandleFrame(frame))

	require.Equal(t, 1, rejections)
	require.Equal(t, OpWrite, rejectedOp)
	require.Equal(t, ValueMaxSpeedLevel, rejectedID)

	_, ok := s.GetValue(ValueMaxSpeedLevel)
	require.False(t, ok, "rejected replies must not cache a value")
}

func TestSupervisor_StoreReply(t *testing.T) {
	s := newTestSupervisor()

	frame := makeReplyFrame(t, 0x0E, OpStore, ValueWheelRadius, true, nil)
	require.NoError(t, s.HandleFrame(frame))

	_, ok := s.GetValue(ValueWheelRadius)
	require.False(t, ok, "store acks carry no value")
}

func TestSupervisor_IgnoresForeignFrames(t *testing.T) {
	s := newTestSupervisor()

	// wrong node id
	frame := makeReplyFrame(t, 0x0D, OpRead, ValueMaxSpeedLevel, true, UnsignedValue(10).Encode())
	require.NoError(t, s.HandleFrame(frame))

	// telemetry frame id
	require.NoError(t, s.HandleFrame(makeCANFrame(MotorRPMReplyBase|0x0E, make([]byte, 8))))

	require.Empty(t, s.Values())
}

func TestSupervisor_MalformedReply(t *testing.T) {
	s := newTestSupervisor()

	frame := makeCANFrame(ReqRepReplyBase|0x0E, make([]byte, 5))
	err := s.HandleFrame(frame)
	require.ErrorIs(t, err, ErrMalformedPacket)
}

func TestSupervisor_ReplyWithUnregisteredValue(t *testing.T) {
	s := newTestSupervisor()

	frame := makeReplyFrame(t, 0x0E, OpRead, ValueMotor15On, true, make([]byte, 4))
	err := s.HandleFrame(frame)
	require.ErrorIs(t, err, ErrUnregisteredValueID)
}

func TestSupervisor_RequestValidation(t *testing.T) {
	s := newTestSupervisor()

	// unregistered ids are refused before anything touches the bus
	require.ErrorIs(t, s.ReadValue(ValueMotor14On), ErrUnregisteredValueID)
	require.ErrorIs(t, s.StoreValue(ValueMotor14On), ErrUnregisteredValueID)
	require.ErrorIs(t, s.WriteValue(ValueMotor14On, BoolValue(true)), ErrUnregisteredValueID)

	// format mismatches are refused as well
	err := s.WriteValue(ValueMaxSpeedLevel, FloatValue(1.0))
	require.Error(t, err)
	require.Contains(t, err.Error(), "format")
}

func TestSupervisor_Values(t *testing.T) {
	s := newTestSupervisor()

	require.NoError(t, s.HandleFrame(makeReplyFrame(t, 0x0E, OpRead, ValueMaxSpeedLevel, true, UnsignedValue(3).Encode())))
	require.NoError(t, s.HandleFrame(makeReplyFrame(t, 0x0E, OpRead, ValueFlipJoystick, true, BoolValue(true).Encode())))

	values := s.Values()
	require.Len(t, values, 2)

	// mutating the copy must not affect the cache
	delete(values, ValueMaxSpeedLevel)
	_, ok := s.GetValue(ValueMaxSpeedLevel)
	require.True(t, ok)
}

func TestSupervisor_NilLogger(t *testing.T) {
	s := NewSupervisor(SupervisorConfig{NodeID: 0x0E})

	require.NotPanics(t, func() {
		// rejected, successful and store replies all hit log sites
		require.NoError(t, s.HandleFrame(makeReplyFrame(t, 0x0E, OpWrite, ValueMaxSpeedLevel, false, nil)))
		require.NoError(t, s.HandleFrame(makeReplyFrame(t, 0x0E, OpRead, ValueMaxSpeedLevel, true, UnsignedValue(5).Encode())))
		require.NoError(t, s.HandleFrame(makeReplyFrame(t, 0x0E, OpStore, ValueMaxSpeedLevel, true, nil)))
	})

	value, ok := s.GetValue(ValueMaxSpeedLevel)
	require.True(t, ok)
	require.Equal(t, uint16(5), value.Unsigned())
}

func TestSupervisor_DataFreshAfterReply(t *testing.T) {
	s := newTestSupervisor()

	require.NoError(t, s.HandleFrame(makeReplyFrame(t, 0x0E, OpRead, ValueMaxSpeedLevel, true, UnsignedValue(1).Encode())))
	require.False(t, s.IsDataStale())
}
