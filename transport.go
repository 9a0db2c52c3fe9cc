package instrument

import (
	"errors"
	"net"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Transport abstracts the byte link to the instrument: the subset of
// go.bug.st/serial.Port the session uses, also satisfiable by a TCP
// bridge. A timed-out read reports (0, nil), matching go.bug.st.
type Transport interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
	SetReadTimeout(d time.Duration) error
	ResetInputBuffer() error
	ResetOutputBuffer() error
}

// allow tests to override external dependencies
var (
	openTransport = openEndpoint
	listPorts     = serial.GetPortsList
)

// tcpScheme prefixes bridge endpoints, e.g. tcp://10.0.0.7:4001.
const tcpScheme = "tcp://"

const tcpDialTimeout = 5 * time.Second

// openEndpoint dispatches on the endpoint form: tcp://host:port dials
// a serial-over-TCP bridge, anything else is a serial device path.
func openEndpoint(endpoint string, cfg Config) (Transport, error) {
	if strings.HasPrefix(endpoint, tcpScheme) {
		return openTCP(strings.TrimPrefix(endpoint, tcpScheme), cfg)
	}
	return openSerial(endpoint, cfg)
}

func openSerial(name string, cfg Config) (Transport, error) {
	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		// The protocol family is 8N1 only.
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(name, mode)
	if err != nil {
		return nil, err
	}
	if err := p.SetReadTimeout(cfg.ReadTimeout); err != nil {
		return nil, errors.Join(err, p.Close())
	}
	return &serialTransport{Port: p}, nil
}

// serialTransport wraps the concrete serial.Port to satisfy Transport.
type serialTransport struct {
	serial.Port
}

// tcpTransport adapts a serial-over-TCP bridge. Read deadlines emulate
// the serial timeout contract: a timed-out read reports (0, nil).
type tcpTransport struct {
	conn        net.Conn
	readTimeout time.Duration
}

func openTCP(addr string, cfg Config) (Transport, error) {
	conn, err := net.DialTimeout("tcp", addr, tcpDialTimeout)
	if err != nil {
		return nil, err
	}
	return &tcpTransport{conn: conn, readTimeout: cfg.ReadTimeout}, nil
}

func (t *tcpTransport) Read(p []byte) (int, error) {
	if t.readTimeout > 0 {
		if err := t.conn.SetReadDeadline(time.Now().Add(t.readTimeout)); err != nil {
			return 0, err
		}
	}
	n, err := t.conn.Read(p)
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return n, nil
	}
	return n, err
}

func (t *tcpTransport) Write(p []byte) (int, error) {
	return t.conn.Write(p)
}

func (t *tcpTransport) Close() error {
	return t.conn.Close()
}

func (t *tcpTransport) SetReadTimeout(d time.Duration) error {
	t.readTimeout = d
	return nil
}

// ResetInputBuffer drains whatever the bridge buffered, bounded by a
// short deadline per read.
func (t *tcpTransport) ResetInputBuffer() error {
	buf := make([]byte, 512)
	for {
		if err := t.conn.SetReadDeadline(time.Now().Add(5 * time.Millisecond)); err != nil {
			return err
		}
		n, err := t.conn.Read(buf)
		if err != nil || n == 0 {
			break
		}
	}
	return t.conn.SetReadDeadline(time.Time{})
}

// ResetOutputBuffer is a no-op; the bridge flushes writes itself.
func (t *tcpTransport) ResetOutputBuffer() error {
	return nil
}
