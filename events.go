package main

import (
	"context"
	"sync"

	"supervisor-service/canbus"

	"github.com/go-redis/redis/v8"
)

const (
	eventGroupName           = "supervisor"
	eventStaleSetKey         = "supervisor:stale"
	eventStream              = "events:canbus"
	eventStreamMaxLen        = 1000
	eventNotificationChannel = "supervisor"
)

// Events reports protocol-level incidents (stale data sources, rejected
// supervisor operations) to Redis for consumption by the dashboard stack.
type Events struct {
	log         *LeveledLogger
	redis       *redis.Client
	mu          sync.RWMutex
	staleStates map[string]bool
	ctx         context.Context
}

func NewEvents(logger *LeveledLogger, redis *redis.Client) *Events {
	return &Events{
		log:         logger,
		redis:       redis,
		staleStates: make(map[string]bool),
		ctx:         context.Background(),
	}
}

func (e *Events) Destroy() {}

// SetStalePresence records a staleness transition for a data source. Only
// transitions are reported; repeated states are ignored.
func (e *Events) SetStalePresence(source string, stale bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	wasStale := e.staleStates[source]
	if wasStale == stale {
		return
	}

	e.staleStates[source] = stale

	if stale {
		e.log.Printf("Data source stale: %s", source)
		e.reportStale(source)
	} else {
		e.log.Printf("Data source recovered: %s", source)
		e.reportFresh(source)
	}
}

// ReportRejected records a supervisor operation the node refused.
func (e *Events) ReportRejected(op canbus.Operation, id canbus.ValueID) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.log.Printf("Supervisor operation rejected: %s %s", op, id)

	pipe := e.redis.Pipeline()

	pipe.XAdd(e.ctx, &redis.XAddArgs{
		Stream: eventStream,
		MaxLen: eventStreamMaxLen,
		Values: map[string]interface{}{
			"group":     eventGroupName,
			"event":     "rejected",
			"operation": op.String(),
			"value":     id.String(),
		},
	})

	pipe.Publish(e.ctx, eventNotificationChannel, "rejected")

	if _, err := pipe.Exec(e.ctx); err != nil {
		e.log.Printf("Failed to report rejected operation: %v", err)
	}
}

func (e *Events) reportStale(source string) {
	pipe := e.redis.Pipeline()

	pipe.SAdd(e.ctx, eventStaleSetKey, source)

	pipe.XAdd(e.ctx, &redis.XAddArgs{
		Stream: eventStream,
		MaxLen: eventStreamMaxLen,
		Values: map[string]interface{}{
			"group":  eventGroupName,
			"event":  "stale",
			"source": source,
		},
	})

	pipe.Publish(e.ctx, eventNotificationChannel, "stale")

	if _, err := pipe.Exec(e.ctx); err != nil {
		e.log.Printf("Failed to report stale source: %v", err)
	}
}

func (e *Events) reportFresh(source string) {
	pipe := e.redis.Pipeline()

	pipe.SRem(e.ctx, eventStaleSetKey, source)

	pipe.XAdd(e.ctx, &redis.XAddArgs{
		Stream: eventStream,
		MaxLen: eventStreamMaxLen,
		Values: map[string]interface{}{
			"group":  eventGroupName,
			"event":  "fresh",
			"source": source,
		},
	})

	pipe.Publish(e.ctx, eventNotificationChannel, "fresh")

	if _, err := pipe.Exec(e.ctx); err != nil {
		e.log.Printf("Failed to report fresh source: %v", err)
	}
}
