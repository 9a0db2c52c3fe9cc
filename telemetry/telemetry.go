// Package telemetry fans measurement samples out to external sinks.
package telemetry

import (
	"context"
	"errors"

	instrument "github.com/Suchanan01-bit/Cal--sub001"
)

// Sample is one reading bound to the endpoint it came from. The
// embedded Measurement flattens into the JSON payload.
type Sample struct {
	Endpoint string `json:"endpoint"`
	instrument.Measurement
}

// Publisher delivers samples to one sink.
type Publisher interface {
	Publish(ctx context.Context, s Sample) error
	Close() error
}

// Stub discards everything. Used when no sink is configured.
type Stub struct{}

// NewStub returns a Publisher that drops every sample.
func NewStub() Stub { return Stub{} }

func (Stub) Publish(context.Context, Sample) error { return nil }
func (Stub) Close() error                          { return nil }

// Multi fans one sample out to several publishers. Delivery failures
// are joined, not short-circuited; every sink sees every sample.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, s Sample) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
