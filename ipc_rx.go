package main

import (
	"context"
	"strconv"
	"strings"

	"supervisor-service/canbus"

	"github.com/go-redis/redis/v8"
)

const requestChannel = "supervisor:requests"

type IPCRx struct {
	log        *LeveledLogger
	redis      *redis.Client
	supervisor *canbus.Supervisor
	ctx        context.Context
	cancel     context.CancelFunc

	requestSubscription *redis.PubSub
}

func NewIPCRx(logger *LeveledLogger, redis *redis.Client, supervisor *canbus.Supervisor) *IPCRx {
	ctx, cancel := context.WithCancel(context.Background())

	rx := &IPCRx{
		log:        logger,
		redis:      redis,
		supervisor: supervisor,
		ctx:        ctx,
		cancel:     cancel,
	}

	rx.requestSubscription = rx.redis.Subscribe(rx.ctx, requestChannel)
	go rx.handleRequestSubscription()

	return rx
}

func (rx *IPCRx) handleRequestSubscription() {
	rx.log.Info("Starting supervisor request subscription handler")

	for {
		msg, err := rx.requestSubscription.Receive(rx.ctx)
		if err != nil {
			if err == context.Canceled {
				return
			}
			// Check for closed client - panic to trigger systemd restart
			if err.Error() == "redis: client is closed" {
				rx.log.Error("Redis connection lost on request subscription - restarting service")
				panic("Redis disconnected")
			}
			rx.log.Error("Request subscription error: %v", err)
			continue
		}

		switch m := msg.(type) {
		case *redis.Message:
			rx.log.Debug("Request received: channel=%s, payload=%s", m.Channel, m.Payload)
			rx.handleRequest(m.Payload)

		case *redis.Subscription:
			rx.log.Debug("Request subscription event: %s %s", m.Channel, m.Kind)
		}
	}
}

// handleRequest parses and dispatches a request of the form
// "read <name>", "store <name>" or "write <name> <value>".
func (rx *IPCRx) handleRequest(payload string) {
	fields := strings.Fields(payload)
	if len(fields) < 2 {
		rx.log.Warn("Malformed request: %q", payload)
		return
	}

	id, ok := canbus.ValueIDByName(fields[1])
	if !ok {
		rx.log.Warn("Unknown value name in request: %q", fields[1])
		return
	}

	switch fields[0] {
	case "read":
		if err := rx.supervisor.ReadValue(id); err != nil {
			rx.log.Error("Failed to read %s: %v", id, err)
		}

	case "store":
		if err := rx.supervisor.StoreValue(id); err != nil {
			rx.log.Error("Failed to store %s: %v", id, err)
		}

	case "write":
		if len(fields) != 3 {
			rx.log.Warn("Malformed write request: %q", payload)
			return
		}
		value, err := rx.parseValue(id, fields[2])
		if err != nil {
			rx.log.Warn("Bad value %q for %s: %v", fields[2], id, err)
			return
		}
		if err := rx.supervisor.WriteValue(id, value); err != nil {
			rx.log.Error("Failed to write %s: %v", id, err)
		}

	default:
		rx.log.Warn("Unknown request operation: %q", fields[0])
	}
}

// parseValue converts a request argument into a typed supervisor value
// according to the registered wire format of the target id.
func (rx *IPCRx) parseValue(id canbus.ValueID, raw string) (canbus.Value, error) {
	format, err := canbus.FormatFor(id)
	if err != nil {
		return canbus.Value{}, err
	}

	switch format {
	case canbus.FormatSignedShort:
		v, err := strconv.ParseInt(raw, 10, 16)
		if err != nil {
			return canbus.Value{}, err
		}
		return canbus.ShortValue(int16(v)), nil

	case canbus.FormatUnsignedShort:
		v, err := strconv.ParseUint(raw, 10, 16)
		if err != nil {
			return canbus.Value{}, err
		}
		return canbus.UnsignedValue(uint16(v)), nil

	case canbus.FormatFloat:
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return canbus.Value{}, err
		}
		return canbus.FloatValue(float32(v)), nil

	default:
		switch raw {
		case "on", "true", "1":
			return canbus.BoolValue(true), nil
		case "off", "false", "0":
			return canbus.BoolValue(false), nil
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return canbus.Value{}, err
		}
		return canbus.BoolValue(v), nil
	}
}

func (rx *IPCRx) Destroy() {
	if rx.cancel != nil {
		rx.cancel()
	}

	if rx.requestSubscription != nil {
		rx.requestSubscription.Close()
	}
}
