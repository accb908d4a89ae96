package main

// Redis message types for supervisor status updates
type RedisMotorStatus struct {
	RPMA int16
	RPMB int16
	RPMC int16
	RPMD int16
	AvgA float64
	AvgB float64
	AvgC float64
	AvgD float64
}

type RedisTelemetryHealth struct {
	MotorStale      bool
	SupervisorStale bool
}
