// Package poll drives periodic measurements against an instrument
// session. The session never polls on its own; this package is the
// caller-side timer loop.
package poll

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/temoto/alive/v2"

	instrument "github.com/Suchanan01-bit/Cal--sub001"
	"github.com/Suchanan01-bit/Cal--sub001/monitor"
	"github.com/Suchanan01-bit/Cal--sub001/telemetry"
)

// publishTimeout bounds a single sink delivery.
const publishTimeout = 10 * time.Second

// Source is what a Poller reads from. *instrument.Session satisfies
// it, as does any wrapper that adds reconnect-on-demand.
type Source interface {
	Measurements() (instrument.Measurement, error)
	Endpoint() string
}

// Poller reads a Source on a fixed cadence and hands samples to a
// Publisher. A failed poll is logged and counted, never retried early;
// the next tick tries again.
type Poller struct {
	src   Source
	pub   telemetry.Publisher
	ival  time.Duration
	alive *alive.Alive
	log   zerolog.Logger
}

// New builds a poller. A nil publisher is replaced by the stub; a
// non-positive interval falls back to one minute.
func New(src Source, pub telemetry.Publisher, interval time.Duration, log zerolog.Logger) *Poller {
	if pub == nil {
		pub = telemetry.NewStub()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Poller{
		src:   src,
		pub:   pub,
		ival:  interval,
		alive: alive.NewAlive(),
		log:   log,
	}
}

// Start launches the loop and returns immediately.
func (p *Poller) Start() {
	p.alive.Add(1)
	go p.loop()
}

func (p *Poller) loop() {
	defer p.alive.Done()

	t := time.NewTicker(p.ival)
	defer t.Stop()

	for {
		select {
		case <-p.alive.StopChan():
			return
		case <-t.C:
			p.pollOnce()
		}
	}
}

func (p *Poller) pollOnce() {
	m, err := p.src.Measurements()
	if err != nil {
		monitor.PollErrors.Inc()
		p.log.Warn().Err(err).Msg("poll failed")
		return
	}
	monitor.PollsTotal.Inc()

	s := telemetry.Sample{Endpoint: p.src.Endpoint(), Measurement: m}
	monitor.ObserveSample(s)

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.pub.Publish(ctx, s); err != nil {
		monitor.PublishErrors.Inc()
		p.log.Warn().Err(err).Msg("publish failed")
	}
}

// Stop ends the loop and waits for the in-flight poll to finish.
func (p *Poller) Stop() {
	p.alive.Stop()
	p.alive.Wait()
}
