package canbus

import (
	"sync"
	"time"

	"github.com/brutella/can"
)

const (
	// Window size for RPM averaging
	RPMWindowSize = 3

	// Timeout for stale motor telemetry
	MotorDataTimeout = 2 * time.Second
)

// RPMBuffer implements a moving average over recent RPM readings.
type RPMBuffer struct {
	data  [RPMWindowSize]int16
	head  uint8
	count uint8
	sum   int32
}

func (buf *RPMBuffer) Reset() {
	buf.count = 0
	buf.head = 0
	buf.sum = 0
	for i := range buf.data {
		buf.data[i] = 0
	}
}

func (buf *RPMBuffer) MovingAverage(rpm int16) float64 {
	var lastData int16
	if buf.count >= RPMWindowSize {
		buf.count = RPMWindowSize
		lastData = buf.data[buf.head]
	} else {
		buf.count++
	}

	buf.data[buf.head] = rpm
	buf.sum = (buf.sum - int32(lastData)) + int32(rpm)
	average := float64(buf.sum) / float64(buf.count)
	buf.head = (buf.head + 1) % RPMWindowSize

	return average
}

// MotorTelemetryConfig contains configuration for the telemetry client.
type MotorTelemetryConfig struct {
	Logger Logger
	Bus    *can.Bus
	NodeID uint32
}

// MotorTelemetry tracks the measured RPMs of the four motor channels and
// issues RPM request frames toward the node.
type MotorTelemetry struct {
	mu            sync.RWMutex
	logger        Logger
	bus           *can.Bus
	nodeID        uint32
	rpm           [MotorChannelCount]int16
	avgBuffer     [MotorChannelCount]RPMBuffer
	avgRPM        [MotorChannelCount]float64
	lastFrameTime time.Time
}

// NewMotorTelemetry creates a telemetry client for the given node.
func NewMotorTelemetry(config MotorTelemetryConfig) *MotorTelemetry {
	return &MotorTelemetry{
		logger:        config.Logger,
		bus:           config.Bus,
		nodeID:        config.NodeID,
		lastFrameTime: time.Now(),
	}
}

// SendRPMRequest publishes a motor RPM request frame carrying the desired
// RPM per channel.
func (m *MotorTelemetry) SendRPMRequest(a, b, c, d int16) error {
	frame := NewMotorRPMFrame(true, m.nodeID, a, b, c, d)

	DebugCANFrame(m.logger, "TX", frame.ID, frame.Data, frame.Length)

	return m.bus.Publish(frame)
}

// HandleFrame processes incoming CAN frames, picking out measured RPM
// replies from the configured node. Other frames are ignored.
func (m *MotorTelemetry) HandleFrame(frame can.Frame) error {
	if frame.ID != MotorRPMReplyBase|m.nodeID {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastFrameTime = time.Now()

	DebugCANFrame(m.logger, "RX", frame.ID, frame.Data, frame.Length)

	msg, err := DecodeMotorRPM(frame.Data[:frame.Length])
	if err != nil {
		return err
	}

	for ch := MotorChannelA; ch < MotorChannelCount; ch++ {
		rpm := msg.RPM(ch)
		m.rpm[ch] = rpm
		m.avgRPM[ch] = m.avgBuffer[ch].MovingAverage(rpm)
	}

	return nil
}

// GetRPM returns the last measured RPM for a single channel.
func (m *MotorTelemetry) GetRPM(ch MotorChannel) int16 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if ch < 0 || ch >= MotorChannelCount {
		return 0
	}
	return m.rpm[ch]
}

// GetRPMs returns the last measured RPMs for all channels.
func (m *MotorTelemetry) GetRPMs() [MotorChannelCount]int16 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.rpm
}

// GetAverageRPM returns the windowed average RPM for a single channel.
func (m *MotorTelemetry) GetAverageRPM(ch MotorChannel) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if ch < 0 || ch >= MotorChannelCount {
		return 0
	}
	return m.avgRPM[ch]
}

// IsDataStale returns true if no measured RPM frames have been received
// within the timeout period.
func (m *MotorTelemetry) IsDataStale() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return time.Since(m.lastFrameTime) > MotorDataTimeout
}
