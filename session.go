package instrument

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// Result reports the outcome of a lifecycle operation in a form an
// operator can be shown unchanged.
type Result struct {
	OK      bool
	Message string
}

// Session owns the link to one instrument: at most one transport is
// held at a time, and reconnecting closes the prior one first.
//
// All lifecycle and command operations are serialized through a single
// mutex, so one command/response exchange is in flight at most.
// IsConnected, LastError and MetricsSnapshot read atomics and do not
// queue behind an in-flight exchange. A Session starts no goroutines
// and never retries on its own; after a failure the caller decides
// whether to re-issue the command or Connect again.
type Session struct {
	cfg Config
	log zerolog.Logger

	// opMu serializes connect, disconnect and every exchange.
	opMu sync.Mutex

	// stateMu guards the transport pointer for readers that must not
	// block behind opMu.
	stateMu   sync.RWMutex
	transport Transport

	connected atomic.Bool
	lastErr   atomic.String
	endpoint  atomic.String
	identity  atomic.String

	metrics Metrics
}

// NewSession builds a session from cfg. Zero-valued cfg fields take
// their defaults; the filled configuration is then validated. Pass
// zerolog.Nop() when no logging is wanted.
func NewSession(cfg Config, log zerolog.Logger) (*Session, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Session{cfg: cfg, log: log}, nil
}

// Connect opens endpoint and probes it with the identification
// command. Any prior transport is closed first; the session never
// holds two. On a transport-open failure the session stays
// Disconnected, LastError records the cause and no resource is held.
//
// The identification probe is best-effort: a unit that answers with
// the vendor signature yields "connected to <identity>", anything
// else yields "connected to <endpoint>" with the session still up.
func (s *Session) Connect(endpoint string) Result {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	if prior := s.takeTransport(); prior != nil {
		s.connected.Store(false)
		if err := prior.Close(); err != nil {
			s.log.Warn().Err(err).Msg("closing prior transport")
		}
	}

	s.metrics.ConnectAttempts.Add(1)

	t, err := openTransport(endpoint, s.cfg)
	if err != nil {
		err = fmt.Errorf("%w: %q: %w", ErrOpen, endpoint, err)
		s.fail(err)
		s.metrics.ConnectFailures.Add(1)
		return Result{OK: false, Message: err.Error()}
	}

	s.setTransport(t)
	s.connected.Store(true)
	s.endpoint.Store(endpoint)
	s.lastErr.Store("")
	s.metrics.SuccessfulConnects.Add(1)
	s.metrics.LastConnectTime.Store(time.Now().Unix())

	if s.cfg.SettleDelay > 0 {
		time.Sleep(s.cfg.SettleDelay)
	}

	identity, err := s.exchange(CmdIdentify)
	if err == nil && IsSupportedIdentity(identity) {
		s.identity.Store(identity)
		s.log.Info().Str("endpoint", endpoint).Str("identity", identity).Msg("connected")
		return Result{OK: true, Message: "connected to " + identity}
	}
	if err != nil {
		// The unit may still be waking up; the link itself is fine,
		// so stay connected and let the caller retry commands.
		s.fail(err)
	}
	s.identity.Store("")
	s.log.Info().Str("endpoint", endpoint).Msg("connected, identity unverified")
	return Result{OK: true, Message: "connected to " + endpoint}
}

// Disconnect closes the transport if one is open. It is idempotent
// and always leaves the session Disconnected, even when the close
// itself fails; only that failure makes Result.OK false.
func (s *Session) Disconnect() Result {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	t := s.takeTransport()
	s.connected.Store(false)
	s.identity.Store("")
	if t == nil {
		return Result{OK: true, Message: "disconnected"}
	}

	s.metrics.Disconnects.Add(1)
	if err := t.Close(); err != nil {
		err = fmt.Errorf("%w: closing transport: %w", ErrIO, err)
		s.fail(err)
		return Result{OK: false, Message: err.Error()}
	}
	s.log.Info().Msg("disconnected")
	return Result{OK: true, Message: "disconnected"}
}

// SendCommand performs one command/response exchange and returns the
// trimmed reply line. It fails closed: a disconnected session reports
// ErrNotConnected without touching the transport.
func (s *Session) SendCommand(cmd string) (string, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	reply, err := s.exchange(cmd)
	if err != nil {
		s.fail(err)
		return "", err
	}
	return reply, nil
}

// QueryScalar sends cmd and converts the reply with parse. The session
// lock is taken once for the whole exchange.
func (s *Session) QueryScalar(cmd string, parse ParseFunc) (float64, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	reply, err := s.exchange(cmd)
	if err != nil {
		s.fail(err)
		return 0, err
	}
	v, err := parse(reply)
	if err != nil {
		s.metrics.ParseErrors.Add(1)
		s.fail(err)
		return 0, err
	}
	return v, nil
}

// Temperature1 reads the channel 1 temperature.
func (s *Session) Temperature1() (float64, error) {
	return s.QueryScalar(CmdTemp1, ParseScalar)
}

// Temperature2 reads the channel 2 temperature.
func (s *Session) Temperature2() (float64, error) {
	return s.QueryScalar(CmdTemp2, ParseScalar)
}

// Measurements reads the structured channel bundle. The reply arity
// decides how many channels are filled (see fillMeasurement); on a
// conversion failure the already-filled channels stay set and the
// partial Measurement is returned alongside the error. Every call
// starts from an all-absent Measurement.
func (s *Session) Measurements() (Measurement, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	m := Measurement{Taken: time.Now()}
	reply, err := s.exchange(CmdReadAll)
	if err != nil {
		s.fail(err)
		return m, err
	}
	if err := fillMeasurement(&m, splitStructured(reply)); err != nil {
		s.metrics.ParseErrors.Add(1)
		s.fail(err)
		return m, err
	}
	return m, nil
}

// Identity re-issues the identification command and returns the raw
// reply. The value cached at Connect time is available without I/O
// through LastIdentity.
func (s *Session) Identity() (string, error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	id, err := s.exchange(CmdIdentify)
	if err != nil {
		s.fail(err)
		return "", err
	}
	s.identity.Store(id)
	return id, nil
}

// LastIdentity returns the identity captured by the most recent
// handshake, empty when the unit never presented one.
func (s *Session) LastIdentity() string {
	return s.identity.Load()
}

// IsConnected reports whether the session considers itself connected
// and still holds a transport. It never blocks behind an in-flight
// exchange.
func (s *Session) IsConnected() bool {
	if !s.connected.Load() {
		return false
	}
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.transport != nil
}

// LastError returns the most recent failure message. It is overwritten
// by each failure and cleared by a successful Connect.
func (s *Session) LastError() string {
	return s.lastErr.Load()
}

// Endpoint returns the endpoint of the current or most recent
// connection.
func (s *Session) Endpoint() string {
	return s.endpoint.Load()
}

// MetricsSnapshot copies the session counters.
func (s *Session) MetricsSnapshot() Snapshot {
	return s.metrics.Snapshot()
}

// exchange runs one command/response cycle: flush both buffers, write
// cmd plus the terminator, read one delimited line, trim it. Caller
// holds opMu.
func (s *Session) exchange(cmd string) (string, error) {
	t := s.currentTransport()
	if !s.connected.Load() || t == nil {
		return "", ErrNotConnected
	}

	s.metrics.CommandsSent.Add(1)

	reply, err := s.exchangeOn(t, cmd)
	if err != nil {
		s.metrics.CommandErrors.Add(1)
		return "", err
	}
	s.metrics.LastCommandTime.Store(time.Now().Unix())
	return strings.TrimSpace(reply), nil
}

func (s *Session) exchangeOn(t Transport, cmd string) (string, error) {
	// Stale bytes from a prior timeout would otherwise be read as this
	// command's reply.
	if err := t.ResetInputBuffer(); err != nil {
		return "", fmt.Errorf("%w: flushing input: %w", ErrIO, err)
	}
	if err := t.ResetOutputBuffer(); err != nil {
		return "", fmt.Errorf("%w: flushing output: %w", ErrIO, err)
	}

	if err := s.writeCommand(t, cmd); err != nil {
		return "", err
	}
	return s.readLine(t)
}

// writeCommand writes cmd with the line terminator appended.
func (s *Session) writeCommand(t Transport, cmd string) error {
	data := append([]byte(cmd), s.cfg.LineDelimiter)

	written := 0
	for written < len(data) {
		n, err := t.Write(data[written:])
		if err != nil {
			return fmt.Errorf("%w: writing %q: %w", ErrIO, cmd, err)
		}
		if n == 0 {
			return fmt.Errorf("%w: writing %q: short write", ErrIO, cmd)
		}
		written += n
	}
	s.metrics.BytesWritten.Add(int64(len(data)))
	return nil
}

// readLine reads one delimiter-terminated reply. The transport reports
// a timed-out read as (0, nil); a wall-clock deadline also bounds
// replies that trickle in without ever hitting the terminator.
func (s *Session) readLine(t Transport) (string, error) {
	buf := getReadBuf()
	defer putReadBuf(buf)

	var line []byte
	deadline := time.Now().Add(s.cfg.ReadTimeout + s.cfg.ReadTimeout/2)
	for {
		n, err := t.Read(buf)
		if err != nil {
			return "", fmt.Errorf("%w: reading reply: %w", ErrIO, err)
		}
		if n == 0 {
			return "", fmt.Errorf("%w: no reply within %v", ErrIO, s.cfg.ReadTimeout)
		}
		s.metrics.BytesRead.Add(int64(n))

		chunk := buf[:n]
		if i := indexByte(chunk, s.cfg.LineDelimiter); i >= 0 {
			line = append(line, chunk[:i]...)
			return string(line), nil
		}
		line = append(line, chunk...)
		if len(line) > MaxLineBytes {
			return "", fmt.Errorf("%w: reply exceeds %d bytes without terminator", ErrIO, MaxLineBytes)
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("%w: no terminator within %v", ErrIO, s.cfg.ReadTimeout)
		}
	}
}

// fail records err as the session's last error.
func (s *Session) fail(err error) {
	s.lastErr.Store(err.Error())
	s.log.Debug().Err(err).Msg("operation failed")
}

func (s *Session) currentTransport() Transport {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.transport
}

func (s *Session) setTransport(t Transport) {
	s.stateMu.Lock()
	s.transport = t
	s.stateMu.Unlock()
}

// takeTransport detaches and returns the current transport, nil when
// none is held.
func (s *Session) takeTransport() Transport {
	s.stateMu.Lock()
	t := s.transport
	s.transport = nil
	s.stateMu.Unlock()
	return t
}

// readBufSize fits the longest structured reply with room to spare.
const readBufSize = 256

var readBufPool = sync.Pool{
	New: func() any { return make([]byte, readBufSize) },
}

func getReadBuf() []byte {
	return readBufPool.Get().([]byte)
}

func putReadBuf(buf []byte) {
	if len(buf) != readBufSize {
		return
	}
	readBufPool.Put(buf)
}

// indexByte is a small helper to avoid importing bytes for single-byte search.
func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
