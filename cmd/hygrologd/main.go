// Command hygrologd polls a THG thermo-hygrometer on a fixed cadence
// and fans the samples out to Redis and MQTT, with an optional
// Prometheus endpoint for scrape-side visibility.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	instrument "github.com/Suchanan01-bit/Cal--sub001"
	"github.com/Suchanan01-bit/Cal--sub001/conf"
	"github.com/Suchanan01-bit/Cal--sub001/monitor"
	"github.com/Suchanan01-bit/Cal--sub001/poll"
	"github.com/Suchanan01-bit/Cal--sub001/telemetry"
)

var (
	version   = "1.2.0"
	buildTime = "unknown"
)

func main() {
	configFile := flag.String("config", "/etc/hygrologd.yaml", "configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("hygrologd v%s (build %s)\n", version, buildTime)
		return
	}

	cfg, err := conf.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hygrologd: %v\n", err)
		os.Exit(1)
	}

	log := setupLogger(cfg.Log)
	log.Info().Str("version", version).Str("config", *configFile).Msg("starting")

	sess, err := instrument.NewSession(instrument.Config{
		BaudRate:    cfg.Device.BaudRate,
		ReadTimeout: cfg.Device.ReadTimeout.D(),
		SettleDelay: cfg.Device.SettleDelay.D(),
	}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("session setup")
	}

	// The first connect is best effort: the source retries on every
	// poll, so a daemon started before the instrument is plugged in
	// still comes up.
	if res := sess.Connect(cfg.Device.Endpoint); res.OK {
		log.Info().Msg(res.Message)
	} else {
		log.Warn().
			Str("endpoint", cfg.Device.Endpoint).
			Str("detail", sess.LastError()).
			Msg("initial connect failed")
	}

	pub, err := buildPublishers(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("telemetry setup")
	}

	if cfg.Monitor.Enabled {
		monitor.Register(sess)
		monitor.Serve(cfg.Monitor.Addr, log)
	}

	src := &reconnectingSource{sess: sess, endpoint: cfg.Device.Endpoint, log: log}
	poller := poll.New(src, pub, cfg.Poll.Interval.D(), log)
	poller.Start()
	log.Info().Dur("interval", cfg.Poll.Interval.D()).Msg("polling")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("shutting down")

	poller.Stop()
	if res := sess.Disconnect(); !res.OK {
		log.Warn().Msg(res.Message)
	}
	if err := pub.Close(); err != nil {
		log.Warn().Err(err).Msg("closing sinks")
	}
}

// reconnectingSource retries Connect before a poll when the link has
// dropped. The poller itself never manages the session lifecycle.
type reconnectingSource struct {
	sess     *instrument.Session
	endpoint string
	log      zerolog.Logger
}

func (r *reconnectingSource) Measurements() (instrument.Measurement, error) {
	if !r.sess.IsConnected() {
		if res := r.sess.Connect(r.endpoint); !res.OK {
			return instrument.Measurement{}, fmt.Errorf("reconnect %s: %s", r.endpoint, r.sess.LastError())
		}
		r.log.Info().Str("endpoint", r.endpoint).Msg("reconnected")
	}
	return r.sess.Measurements()
}

func (r *reconnectingSource) Endpoint() string { return r.endpoint }

func buildPublishers(cfg conf.Config, log zerolog.Logger) (telemetry.Publisher, error) {
	var sinks telemetry.Multi
	if cfg.Redis.Enabled {
		r, err := telemetry.NewRedis(telemetry.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Channel:  cfg.Redis.Channel,
			History:  cfg.Redis.History,
		}, log)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, r)
	}
	if cfg.MQTT.Enabled {
		m, err := telemetry.NewMQTT(telemetry.MQTTConfig{
			Broker:   cfg.MQTT.Broker,
			ClientID: cfg.MQTT.ClientID,
			Username: cfg.MQTT.Username,
			Password: cfg.MQTT.Password,
			Topic:    cfg.MQTT.Topic,
			QOS:      cfg.MQTT.QOS,
		}, log)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, m)
	}
	if len(sinks) == 0 {
		log.Warn().Msg("no telemetry sink enabled, samples are dropped")
		return telemetry.NewStub(), nil
	}
	return sinks, nil
}

func setupLogger(cfg conf.Log) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	var out io.Writer = os.Stderr
	if cfg.File != "" {
		out = &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
