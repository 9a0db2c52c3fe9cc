package poll

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	instrument "github.com/Suchanan01-bit/Cal--sub001"
	"github.com/Suchanan01-bit/Cal--sub001/telemetry"
)

type fakeSource struct {
	calls atomic.Int64
	err   error
}

func (f *fakeSource) Measurements() (instrument.Measurement, error) {
	f.calls.Add(1)
	if f.err != nil {
		return instrument.Measurement{}, f.err
	}
	t1 := 23.3
	rh := 49.4
	return instrument.Measurement{Taken: time.Now(), Temperature1: &t1, Humidity: &rh}, nil
}

func (f *fakeSource) Endpoint() string { return "/dev/ttyUSB0" }

type chanPublisher struct {
	samples chan telemetry.Sample
	err     error
}

func newChanPublisher() *chanPublisher {
	return &chanPublisher{samples: make(chan telemetry.Sample, 64)}
}

func (p *chanPublisher) Publish(_ context.Context, s telemetry.Sample) error {
	p.samples <- s
	return p.err
}

func (p *chanPublisher) Close() error { return nil }

func waitSample(t *testing.T, pub *chanPublisher) telemetry.Sample {
	t.Helper()
	select {
	case s := <-pub.samples:
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("no sample within 2s")
		return telemetry.Sample{}
	}
}

func TestPollerDeliversSamples(t *testing.T) {
	src := &fakeSource{}
	pub := newChanPublisher()

	p := New(src, pub, 5*time.Millisecond, zerolog.Nop())
	p.Start()
	defer p.Stop()

	s := waitSample(t, pub)
	assert.Equal(t, "/dev/ttyUSB0", s.Endpoint)
	require.NotNil(t, s.Temperature1)
	assert.InDelta(t, 23.3, *s.Temperature1, 1e-9)
	require.NotNil(t, s.Humidity)
	assert.InDelta(t, 49.4, *s.Humidity, 1e-9)

	// The loop keeps ticking after a delivery.
	waitSample(t, pub)
}

func TestPollerSkipsPublishOnSourceError(t *testing.T) {
	src := &fakeSource{err: errors.New("instrument: not connected")}
	pub := newChanPublisher()

	p := New(src, pub, 5*time.Millisecond, zerolog.Nop())
	p.Start()
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for src.calls.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("source polled %d times within 2s, want at least 3", src.calls.Load())
		}
		time.Sleep(time.Millisecond)
	}
	assert.Empty(t, pub.samples)
}

func TestPollerSurvivesPublishError(t *testing.T) {
	src := &fakeSource{}
	pub := newChanPublisher()
	pub.err = errors.New("sink down")

	p := New(src, pub, 5*time.Millisecond, zerolog.Nop())
	p.Start()
	defer p.Stop()

	// A failing sink must not stop the loop.
	waitSample(t, pub)
	waitSample(t, pub)
	waitSample(t, pub)
}

func TestPollerStopTerminates(t *testing.T) {
	src := &fakeSource{}
	p := New(src, newChanPublisher(), 5*time.Millisecond, zerolog.Nop())
	p.Start()

	done := make(chan struct{})
	go func() {
		p.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return within 5s")
	}

	n := src.calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, src.calls.Load(), "source polled after Stop")
}

func TestNewDefaults(t *testing.T) {
	p := New(&fakeSource{}, nil, 0, zerolog.Nop())
	assert.Equal(t, time.Minute, p.ival)
	assert.NotNil(t, p.pub)
}
