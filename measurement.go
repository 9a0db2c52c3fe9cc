package instrument

import "time"

// Measurement is one structured reading. Channels the unit did not
// report, or whose field failed conversion, stay nil; a reading never
// carries a misleading zero.
type Measurement struct {
	Taken time.Time `json:"taken"`

	Temperature1 *float64 `json:"temperature1,omitempty"`
	Humidity     *float64 `json:"humidity,omitempty"`
	Temperature2 *float64 `json:"temperature2,omitempty"`
	Dewpoint     *float64 `json:"dewpoint,omitempty"`
}

// Complete reports whether all four channels carry a value.
func (m Measurement) Complete() bool {
	return m.Temperature1 != nil && m.Humidity != nil &&
		m.Temperature2 != nil && m.Dewpoint != nil
}

// channels returns the fill targets in reply order: temperature1,
// humidity, temperature2, dewpoint.
func (m *Measurement) channels() [4]**float64 {
	return [4]**float64{&m.Temperature1, &m.Humidity, &m.Temperature2, &m.Dewpoint}
}
