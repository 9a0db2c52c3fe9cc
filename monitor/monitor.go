// Package monitor exposes Prometheus metrics for the polling daemon.
package monitor

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	instrument "github.com/Suchanan01-bit/Cal--sub001"
	"github.com/Suchanan01-bit/Cal--sub001/telemetry"
)

var (
	// PollsTotal counts polls that produced a sample.
	PollsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hygro_polls_total",
		Help: "Polls that produced a sample.",
	})

	// PollErrors counts polls that failed before producing a sample.
	PollErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hygro_poll_errors_total",
		Help: "Polls that failed before producing a sample.",
	})

	// PublishErrors counts samples that could not be delivered.
	PublishErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hygro_publish_errors_total",
		Help: "Samples that could not be delivered to a sink.",
	})

	// ChannelValue holds the most recent value per instrument channel.
	ChannelValue = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hygro_channel_value",
		Help: "Most recent value per instrument channel.",
	}, []string{"endpoint", "channel"})
)

// ObserveSample updates the per-channel gauges. Absent channels leave
// their gauge untouched.
func ObserveSample(s telemetry.Sample) {
	set := func(channel string, v *float64) {
		if v != nil {
			ChannelValue.WithLabelValues(s.Endpoint, channel).Set(*v)
		}
	}
	set("temperature1", s.Temperature1)
	set("humidity", s.Humidity)
	set("temperature2", s.Temperature2)
	set("dewpoint", s.Dewpoint)
}

// SessionStats is the slice of the session API the collector reads.
// *instrument.Session satisfies it.
type SessionStats interface {
	MetricsSnapshot() instrument.Snapshot
	IsConnected() bool
}

// SessionCollector exports the session counters on scrape, so the
// scraped values are always current without a mirroring loop.
type SessionCollector struct {
	stats SessionStats

	connected       *prometheus.Desc
	connectAttempts *prometheus.Desc
	connectFailures *prometheus.Desc
	commandsSent    *prometheus.Desc
	commandErrors   *prometheus.Desc
	parseErrors     *prometheus.Desc
	bytesWritten    *prometheus.Desc
	bytesRead       *prometheus.Desc
}

// NewSessionCollector builds a collector over stats.
func NewSessionCollector(stats SessionStats) *SessionCollector {
	return &SessionCollector{
		stats: stats,
		connected: prometheus.NewDesc("hygro_session_connected",
			"Whether the session currently holds a live transport.", nil, nil),
		connectAttempts: prometheus.NewDesc("hygro_session_connect_attempts_total",
			"Connect attempts.", nil, nil),
		connectFailures: prometheus.NewDesc("hygro_session_connect_failures_total",
			"Failed connect attempts.", nil, nil),
		commandsSent: prometheus.NewDesc("hygro_session_commands_total",
			"Command exchanges that reached the transport.", nil, nil),
		commandErrors: prometheus.NewDesc("hygro_session_command_errors_total",
			"Command exchanges that failed on i/o.", nil, nil),
		parseErrors: prometheus.NewDesc("hygro_session_parse_errors_total",
			"Replies that failed conversion.", nil, nil),
		bytesWritten: prometheus.NewDesc("hygro_session_bytes_written_total",
			"Bytes written to the transport.", nil, nil),
		bytesRead: prometheus.NewDesc("hygro_session_bytes_read_total",
			"Bytes read from the transport.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *SessionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.connected
	ch <- c.connectAttempts
	ch <- c.connectFailures
	ch <- c.commandsSent
	ch <- c.commandErrors
	ch <- c.parseErrors
	ch <- c.bytesWritten
	ch <- c.bytesRead
}

// Collect implements prometheus.Collector.
func (c *SessionCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.stats.MetricsSnapshot()

	var up float64
	if c.stats.IsConnected() {
		up = 1
	}
	ch <- prometheus.MustNewConstMetric(c.connected, prometheus.GaugeValue, up)
	ch <- prometheus.MustNewConstMetric(c.connectAttempts, prometheus.CounterValue, float64(snap.ConnectAttempts))
	ch <- prometheus.MustNewConstMetric(c.connectFailures, prometheus.CounterValue, float64(snap.ConnectFailures))
	ch <- prometheus.MustNewConstMetric(c.commandsSent, prometheus.CounterValue, float64(snap.CommandsSent))
	ch <- prometheus.MustNewConstMetric(c.commandErrors, prometheus.CounterValue, float64(snap.CommandErrors))
	ch <- prometheus.MustNewConstMetric(c.parseErrors, prometheus.CounterValue, float64(snap.ParseErrors))
	ch <- prometheus.MustNewConstMetric(c.bytesWritten, prometheus.CounterValue, float64(snap.BytesWritten))
	ch <- prometheus.MustNewConstMetric(c.bytesRead, prometheus.CounterValue, float64(snap.BytesRead))
}

// Register puts the poll counters and a collector for stats on the
// default registry. Call it once from main.
func Register(stats SessionStats) {
	prometheus.MustRegister(
		PollsTotal,
		PollErrors,
		PublishErrors,
		ChannelValue,
		NewSessionCollector(stats),
	)
}

// Serve exposes /metrics and /health on addr in the background,
// logging if the server dies.
func Serve(addr string, log zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("metrics server listening")
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}
