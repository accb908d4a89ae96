package canbus

import (
	"fmt"
	"sync"
	"time"

	"github.com/brutella/can"
	"golang.org/x/time/rate"
)

const (
	// Timeout for stale supervisor data (if no replies received in this
	// time, the cached values are considered stale)
	SupervisorDataTimeout = 2 * time.Second

	// Default pacing for outgoing supervisor requests on the bus
	DefaultRequestRate  rate.Limit = 50
	DefaultRequestBurst            = 10
)

// SupervisorConfig contains configuration for the supervisor client.
type SupervisorConfig struct {
	Logger       Logger
	Bus          *can.Bus
	NodeID       uint32
	RequestRate  rate.Limit
	RequestBurst int
}

// Supervisor reads, writes and stores named values on a remote node via the
// request/reply protocol, caching the replied values locally.
type Supervisor struct {
	mu             sync.RWMutex
	logger         Logger
	bus            *can.Bus
	nodeID         uint32
	limiter        *rate.Limiter
	values         map[ValueID]Value
	lastFrameTime  time.Time
	rejectCallback func(Operation, ValueID)
}

// NewSupervisor creates a supervisor client for the given node.
func NewSupervisor(config SupervisorConfig) *Supervisor {
	requestRate := config.RequestRate
	if requestRate == 0 {
		requestRate = DefaultRequestRate
	}
	burst := config.RequestBurst
	if burst == 0 {
		burst = DefaultRequestBurst
	}

	return &Supervisor{
		logger:        config.Logger,
		bus:           config.Bus,
		nodeID:        config.NodeID,
		limiter:       rate.NewLimiter(requestRate, burst),
		values:        make(map[ValueID]Value),
		lastFrameTime: time.Now(),
	}
}

// SetRejectCallback registers a callback invoked when the node replies with
// the success flag cleared.
func (s *Supervisor) SetRejectCallback(callback func(Operation, ValueID)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rejectCallback = callback
}

// ReadValue requests the current value of a registered id from the node.
func (s *Supervisor) ReadValue(id ValueID) error {
	if _, err := FormatFor(id); err != nil {
		return err
	}
	return s.send(OpRead, id, nil)
}

// WriteValue sends a new value for a registered id to the node. The value's
// format must match the registry entry for the id.
func (s *Supervisor) WriteValue(id ValueID, value Value) error {
	format, err := FormatFor(id)
	if err != nil {
		return err
	}
	if value.Format() != format {
		return fmt.Errorf("value %s wants format %s, got %s", id, format, value.Format())
	}
	return s.send(OpWrite, id, value.Encode())
}

// StoreValue asks the node to persist the current value of a registered id.
func (s *Supervisor) StoreValue(id ValueID) error {
	if _, err := FormatFor(id); err != nil {
		return err
	}
	return s.send(OpStore, id, nil)
}

func (s *Supervisor) send(op Operation, id ValueID, payload []byte) error {
	if !s.limiter.Allow() {
		return fmt.Errorf("request rate limit exceeded for %s of %s", op, id)
	}

	frame, err := NewReqRepFrame(true, op, id, s.nodeID, payload)
	if err != nil {
		return err
	}

	DebugCANFrame(s.logger, "TX", frame.ID, frame.Data, frame.Length)

	return s.bus.Publish(frame)
}

// HandleFrame processes incoming CAN frames, picking out supervisor replies
// addressed from the configured node. Other frames are ignored.
func (s *Supervisor) HandleFrame(frame can.Frame) error {
	if frame.ID != ReqRepReplyBase|s.nodeID {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastFrameTime = time.Now()

	DebugCANFrame(s.logger, "RX", frame.ID, frame.Data, frame.Length)

	msg, err := DecodeReqRep(frame.Data[:frame.Length])
	if err != nil {
		return err
	}

	if !msg.Success {
		if s.logger != nil {
			s.logger.Warn("Supervisor %s of %s rejected by node 0x%02X",
				msg.Op, msg.ValueID, s.nodeID)
		}
		if s.rejectCallback != nil {
			s.rejectCallback(msg.Op, msg.ValueID)
		}
		return nil
	}

	switch msg.Op {
	case OpRead, OpWrite:
		value, err := DecodeValue(msg.ValueID, msg.Payload[:])
		if err != nil {
			return err
		}
		s.values[msg.ValueID] = value
		if s.logger != nil {
			s.logger.Debug("Supervisor %s reply: %s = %s", msg.Op, msg.ValueID, value)
		}
	case OpStore:
		if s.logger != nil {
			s.logger.Debug("Supervisor store of %s acknowledged", msg.ValueID)
		}
	}

	return nil
}

// GetValue returns the last value replied by the node for the given id.
func (s *Supervisor) GetValue(id ValueID) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.values[id]
	return value, ok
}

// Values returns a copy of all cached values.
func (s *Supervisor) Values() map[ValueID]Value {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values := make(map[ValueID]Value, len(s.values))
	for id, value := range s.values {
		values[id] = value
	}
	return values
}

// IsDataStale returns true if no replies have been received within the
// timeout period.
func (s *Supervisor) IsDataStale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return time.Since(s.lastFrameTime) > SupervisorDataTimeout
}
