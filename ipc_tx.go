package main

import (
	"context"
	"fmt"
	"sync"

	"supervisor-service/canbus"

	"github.com/go-redis/redis/v8"
)

const (
	motorStatusKey      = "motor-telemetry"
	supervisorValuesKey = "supervisor:values"
)

type IPCTx struct {
	log   *LeveledLogger
	redis *redis.Client
	mu    sync.Mutex
	ctx   context.Context
}

func NewIPCTx(logger *LeveledLogger, redis *redis.Client) *IPCTx {
	return &IPCTx{
		log:   logger,
		redis: redis,
		ctx:   context.Background(),
	}
}

func (tx *IPCTx) Destroy() {}

func (tx *IPCTx) SendMotorStatus(data RedisMotorStatus) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	pipe := tx.redis.Pipeline()

	pipe.HSet(tx.ctx, motorStatusKey, map[string]interface{}{
		"rpm:a":     data.RPMA,
		"rpm:b":     data.RPMB,
		"rpm:c":     data.RPMC,
		"rpm:d":     data.RPMD,
		"rpm:avg:a": data.AvgA,
		"rpm:avg:b": data.AvgB,
		"rpm:avg:c": data.AvgC,
		"rpm:avg:d": data.AvgD,
	})

	// Notify subscribers about new RPM readings
	pipe.Publish(tx.ctx, "motor-telemetry rpm", nil)

	_, err := pipe.Exec(tx.ctx)
	if err != nil {
		return fmt.Errorf("failed to send motor status: %v", err)
	}

	return nil
}

func (tx *IPCTx) SendValue(id canbus.ValueID, value canbus.Value) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	pipe := tx.redis.Pipeline()

	pipe.HSet(tx.ctx, supervisorValuesKey, id.String(), redisValue(value))
	pipe.Publish(tx.ctx, "supervisor value", id.String())

	_, err := pipe.Exec(tx.ctx)
	if err != nil {
		return fmt.Errorf("failed to send value %s: %v", id, err)
	}

	return nil
}

func (tx *IPCTx) SendTelemetryHealth(data RedisTelemetryHealth) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	onOff := map[bool]string{true: "stale", false: "fresh"}

	pipe := tx.redis.Pipeline()

	pipe.HSet(tx.ctx, motorStatusKey, "health", onOff[data.MotorStale])
	pipe.HSet(tx.ctx, supervisorValuesKey, "health", onOff[data.SupervisorStale])

	_, err := pipe.Exec(tx.ctx)
	if err != nil {
		return fmt.Errorf("failed to send telemetry health: %v", err)
	}

	return nil
}

// redisValue converts a supervisor value into its Redis field representation
func redisValue(value canbus.Value) interface{} {
	switch value.Format() {
	case canbus.FormatSignedShort:
		return int(value.Short())
	case canbus.FormatUnsignedShort:
		return int(value.Unsigned())
	case canbus.FormatFloat:
		return value.Float()
	case canbus.FormatBool:
		return map[bool]string{true: "on", false: "off"}[value.Bool()]
	default:
		return value.String()
	}
}
