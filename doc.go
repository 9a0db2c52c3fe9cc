// Package instrument drives THG-series thermo-hygrometers attached over
// a serial line or a serial-over-TCP bridge.
//
// A Session owns the link to one unit. Every lifecycle and command
// operation is serialized through a single mutex, so at most one
// command/response exchange is in flight at any time, and the session
// never starts goroutines of its own. Typical use:
//
//	sess, err := instrument.NewSession(instrument.DefaultConfig(), logger)
//	if err != nil {
//		return err
//	}
//	if res := sess.Connect("/dev/ttyUSB0"); !res.OK {
//		return errors.New(res.Message)
//	}
//	defer sess.Disconnect()
//
//	m, err := sess.Measurements()
//
// Failed operations never panic and never terminate the process; they
// return an error from the package taxonomy (ErrNotConnected, ErrOpen,
// ErrIO, ErrParse) and record its text in LastError.
//
// Periodic polling, telemetry fan-out and metrics exposure live in the
// poll, telemetry and monitor packages. They are plain callers of the
// session API; the session itself has no timers and no retry logic.
package instrument
