package instrument

import "sync/atomic"

// Metrics tracks session health counters. All fields are safe for
// concurrent access; read them through Snapshot.
type Metrics struct {
	// Lifecycle
	ConnectAttempts    atomic.Int64
	SuccessfulConnects atomic.Int64
	ConnectFailures    atomic.Int64
	Disconnects        atomic.Int64
	LastConnectTime    atomic.Int64 // unix seconds

	// Exchanges
	CommandsSent    atomic.Int64 // exchanges that reached the transport
	CommandErrors   atomic.Int64 // exchanges that failed on i/o
	ParseErrors     atomic.Int64 // replies that failed conversion
	BytesWritten    atomic.Int64
	BytesRead       atomic.Int64
	LastCommandTime atomic.Int64 // unix seconds
}

// Snapshot is a point-in-time copy of the counters, safe to hold and
// serialize.
type Snapshot struct {
	ConnectAttempts    int64 `json:"connect_attempts"`
	SuccessfulConnects int64 `json:"successful_connects"`
	ConnectFailures    int64 `json:"connect_failures"`
	Disconnects        int64 `json:"disconnects"`
	LastConnectTime    int64 `json:"last_connect_time"`

	CommandsSent    int64 `json:"commands_sent"`
	CommandErrors   int64 `json:"command_errors"`
	ParseErrors     int64 `json:"parse_errors"`
	BytesWritten    int64 `json:"bytes_written"`
	BytesRead       int64 `json:"bytes_read"`
	LastCommandTime int64 `json:"last_command_time"`
}

// Snapshot copies the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		ConnectAttempts:    m.ConnectAttempts.Load(),
		SuccessfulConnects: m.SuccessfulConnects.Load(),
		ConnectFailures:    m.ConnectFailures.Load(),
		Disconnects:        m.Disconnects.Load(),
		LastConnectTime:    m.LastConnectTime.Load(),

		CommandsSent:    m.CommandsSent.Load(),
		CommandErrors:   m.CommandErrors.Load(),
		ParseErrors:     m.ParseErrors.Load(),
		BytesWritten:    m.BytesWritten.Load(),
		BytesRead:       m.BytesRead.Load(),
		LastCommandTime: m.LastCommandTime.Load(),
	}
}

// CommandSuccessRate returns the fraction of exchanges that completed,
// in percent. A session that has sent nothing reports 100.
func (s Snapshot) CommandSuccessRate() float64 {
	if s.CommandsSent == 0 {
		return 100.0
	}
	ok := s.CommandsSent - s.CommandErrors
	return float64(ok) / float64(s.CommandsSent) * 100
}

// ConnectSuccessRate returns the fraction of connect attempts that
// succeeded, in percent. No attempts reports 100.
func (s Snapshot) ConnectSuccessRate() float64 {
	if s.ConnectAttempts == 0 {
		return 100.0
	}
	return float64(s.SuccessfulConnects) / float64(s.ConnectAttempts) * 100
}

// HealthStatus summarizes link quality from a snapshot.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
	HealthStatusDown      HealthStatus = "down"
)

// Health grades the snapshot. connected is the session's current
// IsConnected state; counters alone cannot tell a closed link from a
// quiet one.
func (s Snapshot) Health(connected bool) HealthStatus {
	if !connected {
		return HealthStatusDown
	}
	rate := s.CommandSuccessRate()
	switch {
	case rate < 50.0:
		return HealthStatusUnhealthy
	case rate < 90.0:
		return HealthStatusDegraded
	default:
		return HealthStatusHealthy
	}
}
