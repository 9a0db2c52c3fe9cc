package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	instrument "github.com/Suchanan01-bit/Cal--sub001"
)

type capturePublisher struct {
	samples []Sample
	pubErr  error
	closed  bool
}

func (c *capturePublisher) Publish(_ context.Context, s Sample) error {
	if c.pubErr != nil {
		return c.pubErr
	}
	c.samples = append(c.samples, s)
	return nil
}

func (c *capturePublisher) Close() error {
	c.closed = true
	return nil
}

func sampleFixture() Sample {
	f := func(v float64) *float64 { return &v }
	return Sample{
		Endpoint: "/dev/ttyUSB0",
		Measurement: instrument.Measurement{
			Taken:        time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC),
			Temperature1: f(23.30),
			Humidity:     f(49.39),
			Temperature2: f(21.72),
			Dewpoint:     f(53.45),
		},
	}
}

func TestSampleJSONShape(t *testing.T) {
	data, err := json.Marshal(sampleFixture())
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))

	// Measurement fields flatten next to the endpoint.
	assert.Equal(t, "/dev/ttyUSB0", got["endpoint"])
	assert.Equal(t, 23.30, got["temperature1"])
	assert.Equal(t, 49.39, got["humidity"])
	assert.Equal(t, 21.72, got["temperature2"])
	assert.Equal(t, 53.45, got["dewpoint"])
	assert.Contains(t, got, "taken")
}

func TestSampleJSONOmitsAbsentChannels(t *testing.T) {
	f := func(v float64) *float64 { return &v }
	s := Sample{
		Endpoint: "/dev/ttyUSB0",
		Measurement: instrument.Measurement{
			Temperature1: f(23.30),
			Humidity:     f(49.39),
		},
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(data, &got))
	assert.NotContains(t, got, "temperature2")
	assert.NotContains(t, got, "dewpoint")
}

func TestMultiDeliversToAllSinks(t *testing.T) {
	a := &capturePublisher{}
	b := &capturePublisher{}
	m := Multi{a, b}

	require.NoError(t, m.Publish(context.Background(), sampleFixture()))
	assert.Len(t, a.samples, 1)
	assert.Len(t, b.samples, 1)

	require.NoError(t, m.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestMultiJoinsFailuresWithoutSkipping(t *testing.T) {
	boom := errors.New("sink down")
	a := &capturePublisher{pubErr: boom}
	b := &capturePublisher{}
	m := Multi{a, b}

	err := m.Publish(context.Background(), sampleFixture())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// The healthy sink still saw the sample.
	assert.Len(t, b.samples, 1)
}

func TestStubDiscards(t *testing.T) {
	s := NewStub()
	require.NoError(t, s.Publish(context.Background(), sampleFixture()))
	require.NoError(t, s.Close())
}

func TestHistoryKey(t *testing.T) {
	assert.Equal(t, "hygro:/dev/ttyUSB0:history", historyKey("/dev/ttyUSB0"))
}
