package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"supervisor-service/canbus"

	"github.com/brutella/can"
	"github.com/go-redis/redis/v8"
)

// Granularity at which the telemetry loop polls its timer.
const telemetryLoopTick = 10 * time.Millisecond

type SupervisorApp struct {
	log        *LeveledLogger
	redis      *redis.Client
	ipcRx      *IPCRx
	ipcTx      *IPCTx
	events     *Events
	supervisor *canbus.Supervisor
	motors     *canbus.MotorTelemetry
	mu         sync.Mutex
	ctx        context.Context
	cancel     context.CancelFunc
	lastRPM    [canbus.MotorChannelCount]int16
	lastValues map[canbus.ValueID]canbus.Value
}

func NewSupervisorApp(opts *Options) (*SupervisorApp, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &SupervisorApp{
		log: NewLeveledLogger(
			log.New(log.Writer(), fmt.Sprintf("%s: ", ProjectName), log.LstdFlags),
			opts.LogLevel),
		ctx:        ctx,
		cancel:     cancel,
		lastValues: make(map[canbus.ValueID]canbus.Value),
	}

	// Initialize Redis client with timeouts
	app.redis = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", opts.RedisServerAddr, opts.RedisServerPort),
		Password:     "",
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	// Test Redis connection with timeout
	connectCtx, connectCancel := context.WithTimeout(ctx, 5*time.Second)
	defer connectCancel()

	app.log.Printf("Connecting to Redis at %s:%d...", opts.RedisServerAddr, opts.RedisServerPort)

	if err := app.redis.Ping(connectCtx).Err(); err != nil {
		app.log.Printf("Failed to connect to Redis: %v", err)
		return nil, fmt.Errorf("failed to connect to Redis: %v", err)
	}
	app.log.Printf("Successfully connected to Redis")

	app.ipcTx = NewIPCTx(app.log, app.redis)
	app.log.Printf("IPC TX component initialized")

	app.events = NewEvents(app.log, app.redis)
	app.log.Printf("Events component initialized")

	// Start health check goroutine
	go app.redisHealthCheck()

	// Initialize CAN bus
	bus, err := can.NewBusForInterfaceWithName(opts.CANDevice)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize CAN bus: %v", err)
	}

	app.supervisor = canbus.NewSupervisor(canbus.SupervisorConfig{
		Logger: app.log,
		Bus:    bus,
		NodeID: opts.NodeID,
	})
	app.log.Printf("Supervisor client initialized for node 0x%02X", opts.NodeID)

	app.motors = canbus.NewMotorTelemetry(canbus.MotorTelemetryConfig{
		Logger: app.log,
		Bus:    bus,
		NodeID: opts.NodeID,
	})
	app.log.Printf("Motor telemetry client initialized")

	app.supervisor.SetRejectCallback(app.events.ReportRejected)

	// Create frame handler for CAN messages
	handler := &frameHandler{app: app}
	bus.Subscribe(handler)

	// Start CAN message publishing
	go func() {
		if err := bus.ConnectAndPublish(); err != nil {
			app.log.Printf("CAN bus publish error: %v", err)
		}
	}()

	app.ipcRx = NewIPCRx(app.log, app.redis, app.supervisor)
	app.log.Printf("IPC RX component initialized")

	app.requestInitialValues()

	go app.telemetryLoop(opts.TelemetryPeriod)

	return app, nil
}

// requestInitialValues asks the node for every registered value so the
// Redis surface starts from the node's actual configuration.
func (app *SupervisorApp) requestInitialValues() {
	for _, id := range canbus.RegisteredValueIDs() {
		if err := app.supervisor.ReadValue(id); err != nil {
			app.log.Warn("Initial read of %s failed: %v", id, err)
		}
	}
}

// telemetryLoop periodically requests motor RPMs and refreshes the health
// state, paced by the catch-up timer so missed periods never accumulate.
func (app *SupervisorApp) telemetryLoop(period time.Duration) {
	timer := canbus.NewTimer(period, app.log)

	for {
		select {
		case <-app.ctx.Done():
			return
		default:
		}

		if timer.Check() {
			if err := app.motors.SendRPMRequest(0, 0, 0, 0); err != nil {
				app.log.Error("Failed to request motor RPMs: %v", err)
			}

			app.events.SetStalePresence("motor-telemetry", app.motors.IsDataStale())
			app.events.SetStalePresence("supervisor", app.supervisor.IsDataStale())

			health := RedisTelemetryHealth{
				MotorStale:      app.motors.IsDataStale(),
				SupervisorStale: app.supervisor.IsDataStale(),
			}
			if err := app.ipcTx.SendTelemetryHealth(health); err != nil {
				app.log.Error("Failed to send telemetry health: %v", err)
			}
		}

		time.Sleep(telemetryLoopTick)
	}
}

// Frame handler for CAN messages
type frameHandler struct {
	app *SupervisorApp
}

func (h *frameHandler) Handle(frame can.Frame) {
	if err := h.app.supervisor.HandleFrame(frame); err != nil {
		h.app.log.Printf("Error handling supervisor frame: %v", err)
		return
	}

	if err := h.app.motors.HandleFrame(frame); err != nil {
		h.app.log.Printf("Error handling motor telemetry frame: %v", err)
		return
	}

	// Update Redis with latest state
	h.app.updateRedisState()
}

// Update Redis with current supervisor and telemetry state
func (app *SupervisorApp) updateRedisState() {
	app.mu.Lock()
	defer app.mu.Unlock()

	// Only update motor status when a reading changed
	rpms := app.motors.GetRPMs()
	if rpms != app.lastRPM {
		status := RedisMotorStatus{
			RPMA: rpms[canbus.MotorChannelA],
			RPMB: rpms[canbus.MotorChannelB],
			RPMC: rpms[canbus.MotorChannelC],
			RPMD: rpms[canbus.MotorChannelD],
			AvgA: app.motors.GetAverageRPM(canbus.MotorChannelA),
			AvgB: app.motors.GetAverageRPM(canbus.MotorChannelB),
			AvgC: app.motors.GetAverageRPM(canbus.MotorChannelC),
			AvgD: app.motors.GetAverageRPM(canbus.MotorChannelD),
		}

		if err := app.ipcTx.SendMotorStatus(status); err != nil {
			app.log.Printf("Failed to send motor status: %v", err)
		} else {
			app.lastRPM = rpms
		}
	}

	// Push supervisor values that changed since the last update
	for id, value := range app.supervisor.Values() {
		if last, ok := app.lastValues[id]; ok && last == value {
			continue
		}

		if err := app.ipcTx.SendValue(id, value); err != nil {
			app.log.Printf("Failed to send value %s: %v", id, err)
			continue
		}
		app.lastValues[id] = value
	}
}

func (app *SupervisorApp) redisHealthCheck() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(app.ctx, 2*time.Second)
			if err := app.redis.Ping(ctx).Err(); err != nil {
				app.log.Printf("Redis health check failed: %v", err)
			}
			cancel()
		}
	}
}

func (app *SupervisorApp) Destroy() {
	app.mu.Lock()
	defer app.mu.Unlock()

	app.log.Printf("Shutting down supervisor application...")

	if app.cancel != nil {
		app.cancel()
	}

	if app.ipcRx != nil {
		app.ipcRx.Destroy()
		app.log.Printf("IPC RX shutdown complete")
	}

	if app.events != nil {
		app.events.Destroy()
		app.log.Printf("Events shutdown complete")
	}

	if app.ipcTx != nil {
		app.ipcTx.Destroy()
		app.log.Printf("IPC TX shutdown complete")
	}

	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			app.log.Printf("Error closing Redis connection: %v", err)
		} else {
			app.log.Printf("Redis connection closed")
		}
	}

	app.log.Printf("Supervisor application shutdown complete")
}
