package instrument

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "defaults are valid",
			cfg:  DefaultConfig(),
		},
		{
			name: "common field setup",
			cfg:  Config{BaudRate: 19200, ReadTimeout: time.Second, LineDelimiter: '\r'},
		},
		{
			name:    "unlisted baud rate",
			cfg:     Config{BaudRate: 12345, ReadTimeout: time.Second},
			wantErr: true,
		},
		{
			name:    "negative baud rate",
			cfg:     Config{BaudRate: -9600, ReadTimeout: time.Second},
			wantErr: true,
		},
		{
			name:    "zero read timeout",
			cfg:     Config{BaudRate: 9600, ReadTimeout: 0},
			wantErr: true,
		},
		{
			name:    "negative read timeout",
			cfg:     Config{BaudRate: 9600, ReadTimeout: -time.Second},
			wantErr: true,
		},
		{
			name:    "negative settle delay",
			cfg:     Config{BaudRate: 9600, ReadTimeout: time.Second, SettleDelay: -time.Millisecond},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected error for %+v", tt.cfg)
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	got := Config{}.withDefaults()

	if got.BaudRate != DefaultBaudRate {
		t.Fatalf("expected baud %d, got %d", DefaultBaudRate, got.BaudRate)
	}
	if got.ReadTimeout != DefaultReadTimeout {
		t.Fatalf("expected read timeout %v, got %v", DefaultReadTimeout, got.ReadTimeout)
	}
	if got.LineDelimiter != DefaultLineDelimiter {
		t.Fatalf("expected delimiter %q, got %q", DefaultLineDelimiter, got.LineDelimiter)
	}
	if got.SettleDelay != 0 {
		t.Fatalf("settle delay must stay zero unless set, got %v", got.SettleDelay)
	}

	// Explicit values survive.
	got = Config{BaudRate: 115200, ReadTimeout: time.Second, LineDelimiter: '\n'}.withDefaults()
	if got.BaudRate != 115200 || got.ReadTimeout != time.Second || got.LineDelimiter != '\n' {
		t.Fatalf("explicit values overwritten: %+v", got)
	}
}

func TestDefaultConfigMatchesFactorySetup(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BaudRate != 9600 {
		t.Fatalf("expected 9600 baud, got %d", cfg.BaudRate)
	}
	if cfg.SettleDelay != DefaultSettleDelay {
		t.Fatalf("expected settle delay %v, got %v", DefaultSettleDelay, cfg.SettleDelay)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}
