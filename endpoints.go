package instrument

import (
	"fmt"
	"strings"
)

// Endpoint is one place an instrument may be attached.
type Endpoint struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListEndpoints returns a fresh snapshot of candidate serial endpoints.
// Nothing is cached; every call re-reads the system list. tcp:// bridge
// endpoints are not discoverable and must be given to Connect in full.
func ListEndpoints() ([]Endpoint, error) {
	names, err := listPorts()
	if err != nil {
		return nil, fmt.Errorf("instrument: listing ports: %w", err)
	}
	eps := make([]Endpoint, 0, len(names))
	for _, name := range names {
		eps = append(eps, Endpoint{Name: name, Description: describePort(name)})
	}
	return eps, nil
}

// describePort classifies a port by its device-name pattern.
// On Unix: /dev/ttyXXX or /dev/cuXXX. On Windows: COMX.
func describePort(name string) string {
	base := name
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		base = name[i+1:]
	}
	switch {
	case strings.HasPrefix(base, "ttyUSB"):
		return "USB serial adapter"
	case strings.HasPrefix(base, "ttyACM"):
		return "USB CDC device"
	case strings.HasPrefix(base, "ttyS"):
		return "onboard UART"
	case strings.HasPrefix(base, "cu."), strings.HasPrefix(base, "tty."):
		return "serial device"
	case strings.HasPrefix(base, "COM"):
		return "serial port"
	default:
		return "serial device"
	}
}
