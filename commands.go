package instrument

import "strings"

// Command vocabulary of the THG protocol family. Commands are bare
// ASCII; the session appends the line terminator on transmit.
const (
	// CmdIdentify asks the unit for its free-text identity string.
	CmdIdentify = "ID"

	// CmdReadAll asks for the comma-separated channel bundle.
	CmdReadAll = "RA"

	// CmdTemp1 reads the channel 1 temperature.
	CmdTemp1 = "T1"

	// CmdTemp2 reads the channel 2 temperature.
	CmdTemp2 = "T2"
)

// vendorSignature prefixes identity replies of supported units,
// e.g. "THG-312 FW 2.4".
const vendorSignature = "THG"

// IsSupportedIdentity reports whether an identity reply carries the
// vendor signature. Matching is case-insensitive.
func IsSupportedIdentity(identity string) bool {
	identity = strings.TrimSpace(identity)
	return len(identity) >= len(vendorSignature) &&
		strings.EqualFold(identity[:len(vendorSignature)], vendorSignature)
}
