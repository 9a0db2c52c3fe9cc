package instrument

import "testing"

func TestMetricsTrackSessionActivity(t *testing.T) {
	mt := newMockTransport()
	mt.reply(CmdIdentify, "THG-312 FW 2.4")
	mt.reply("RA", "23.30,49.39,21.72,53.45")
	useTransport(t, mt)

	sess := newTestSession(t)
	if res := sess.Connect("mock"); !res.OK {
		t.Fatalf("Connect failed: %s", res.Message)
	}
	if _, err := sess.Measurements(); err != nil {
		t.Fatalf("Measurements error: %v", err)
	}
	if _, err := sess.SendCommand("XX"); err == nil { // times out
		t.Fatal("expected timeout")
	}
	sess.Disconnect()

	snap := sess.MetricsSnapshot()
	if snap.ConnectAttempts != 1 || snap.SuccessfulConnects != 1 {
		t.Fatalf("unexpected connect counters: %+v", snap)
	}
	if snap.Disconnects != 1 {
		t.Fatalf("expected 1 disconnect, got %d", snap.Disconnects)
	}
	// identify + RA + XX all reached the transport
	if snap.CommandsSent != 3 {
		t.Fatalf("expected 3 commands sent, got %d", snap.CommandsSent)
	}
	if snap.CommandErrors != 1 {
		t.Fatalf("expected 1 command error, got %d", snap.CommandErrors)
	}
	if snap.BytesWritten == 0 || snap.BytesRead == 0 {
		t.Fatalf("expected byte counters to move: %+v", snap)
	}
	if snap.LastConnectTime == 0 {
		t.Fatal("expected LastConnectTime to be stamped")
	}
}

func TestMetricsCountConnectFailure(t *testing.T) {
	prev := openTransport
	openTransport = func(endpoint string, cfg Config) (Transport, error) {
		return nil, errTestOpen
	}
	t.Cleanup(func() { openTransport = prev })

	sess := newTestSession(t)
	if res := sess.Connect("mock"); res.OK {
		t.Fatal("expected Connect to fail")
	}

	snap := sess.MetricsSnapshot()
	if snap.ConnectAttempts != 1 || snap.ConnectFailures != 1 || snap.SuccessfulConnects != 0 {
		t.Fatalf("unexpected counters: %+v", snap)
	}
}

func TestMetricsCountParseErrors(t *testing.T) {
	mt := newMockTransport()
	mt.reply("T1", "t: abc C")
	sess := connectedSession(t, mt)

	if _, err := sess.Temperature1(); err == nil {
		t.Fatal("expected parse error")
	}

	snap := sess.MetricsSnapshot()
	if snap.ParseErrors != 1 {
		t.Fatalf("expected 1 parse error, got %d", snap.ParseErrors)
	}
	// the exchange itself succeeded
	if snap.CommandErrors != 0 {
		t.Fatalf("expected 0 command errors, got %d", snap.CommandErrors)
	}
}

func TestSnapshotRates(t *testing.T) {
	var s Snapshot
	if got := s.CommandSuccessRate(); got != 100.0 {
		t.Fatalf("idle session should report 100%%, got %v", got)
	}
	if got := s.ConnectSuccessRate(); got != 100.0 {
		t.Fatalf("idle session should report 100%%, got %v", got)
	}

	s = Snapshot{CommandsSent: 10, CommandErrors: 3, ConnectAttempts: 4, SuccessfulConnects: 2}
	if got := s.CommandSuccessRate(); got != 70.0 {
		t.Fatalf("expected 70%%, got %v", got)
	}
	if got := s.ConnectSuccessRate(); got != 50.0 {
		t.Fatalf("expected 50%%, got %v", got)
	}
}

func TestSnapshotHealth(t *testing.T) {
	tests := []struct {
		name      string
		snap      Snapshot
		connected bool
		want      HealthStatus
	}{
		{"disconnected", Snapshot{}, false, HealthStatusDown},
		{"idle connected", Snapshot{}, true, HealthStatusHealthy},
		{"clean traffic", Snapshot{CommandsSent: 100, CommandErrors: 2}, true, HealthStatusHealthy},
		{"lossy link", Snapshot{CommandsSent: 100, CommandErrors: 30}, true, HealthStatusDegraded},
		{"dead link", Snapshot{CommandsSent: 100, CommandErrors: 80}, true, HealthStatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.snap.Health(tt.connected); got != tt.want {
				t.Fatalf("Health(%v) = %q, want %q", tt.connected, got, tt.want)
			}
		})
	}
}

var errTestOpen = errTest("open refused")

type errTest string

func (e errTest) Error() string { return string(e) }

// Snapshot must be a copy, not a view.
func TestSnapshotIsDetached(t *testing.T) {
	mt := newMockTransport()
	sess := connectedSession(t, mt)

	before := sess.MetricsSnapshot()
	if res := sess.Connect("mock"); !res.OK {
		t.Fatalf("reconnect failed: %s", res.Message)
	}
	after := sess.MetricsSnapshot()

	if before.ConnectAttempts != 1 {
		t.Fatalf("detached snapshot changed: %+v", before)
	}
	if after.ConnectAttempts != 2 {
		t.Fatalf("expected 2 attempts, got %d", after.ConnectAttempts)
	}
}
