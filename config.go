package instrument

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Defaults applied by withDefaults for zero-valued fields.
const (
	DefaultBaudRate    = 9600
	DefaultReadTimeout = 2 * time.Second
	DefaultSettleDelay = 200 * time.Millisecond

	// DefaultLineDelimiter frames instrument replies.
	DefaultLineDelimiter = '\r'

	// MaxLineBytes bounds a single reply line. Anything longer is a
	// wiring fault, not data.
	MaxLineBytes = 4096
)

// Config holds the fixed link parameters for one session. The protocol
// family runs 8N1 only; framing is not configurable.
type Config struct {
	// BaudRate of the link. The family ships at 9600.
	BaudRate int `validate:"gte=0"`

	// ReadTimeout bounds every transport read during an exchange.
	ReadTimeout time.Duration `validate:"gte=0"`

	// SettleDelay is waited between opening the transport and the
	// first command, giving the unit time to raise its line drivers.
	// Zero skips the wait; DefaultConfig sets DefaultSettleDelay.
	SettleDelay time.Duration `validate:"gte=0"`

	// LineDelimiter frames replies; zero means DefaultLineDelimiter.
	LineDelimiter byte
}

// DefaultConfig returns the configuration matching a factory-fresh
// unit.
func DefaultConfig() Config {
	return Config{
		BaudRate:      DefaultBaudRate,
		ReadTimeout:   DefaultReadTimeout,
		SettleDelay:   DefaultSettleDelay,
		LineDelimiter: DefaultLineDelimiter,
	}
}

// withDefaults fills zero-valued fields. SettleDelay is taken as
// given; zero is a valid choice there.
func (c Config) withDefaults() Config {
	if c.BaudRate == 0 {
		c.BaudRate = DefaultBaudRate
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.LineDelimiter == 0 {
		c.LineDelimiter = DefaultLineDelimiter
	}
	return c
}

// validBaudRates matches the rates the UART bridge chips seen in the
// field actually support.
var validBaudRates = []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200, 230400, 460800, 921600}

var validate = validator.New()

// Validate checks the configuration for obvious issues.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("instrument: config: %w", err)
	}
	if !containsInt(validBaudRates, c.BaudRate) {
		return fmt.Errorf("instrument: invalid baud rate %d, must be one of %v", c.BaudRate, validBaudRates)
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("instrument: read timeout must be positive, got %v", c.ReadTimeout)
	}
	return nil
}

func containsInt(slice []int, val int) bool {
	for _, v := range slice {
		if v == val {
			return true
		}
	}
	return false
}
