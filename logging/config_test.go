package logging

import (
	"errors"
	"testing"
)

func TestNew_Backends(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{name: "default zap", cfg: DefaultConfig()},
		{name: "zap console", cfg: Config{Backend: BackendZap, Level: "debug", Format: "console"}},
		{name: "logrus json", cfg: Config{Backend: BackendLogrus, Level: "warn", Format: "json"}},
		{name: "nop", cfg: Config{Backend: BackendNop}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if err != nil {
				t.Fatalf("New() failed: %v", err)
			}
			if l == nil {
				t.Fatal("New() returned nil logger")
			}
			l.Info("hello", Fields{"k": "v"})
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		cfg   Config
		field string
	}{
		{name: "unknown backend", cfg: Config{Backend: "stdout"}, field: "Backend"},
		{name: "unknown format", cfg: Config{Backend: BackendZap, Format: "xml"}, field: "Format"},
		{name: "bad zap level", cfg: Config{Backend: BackendZap, Level: "loud"}, field: "Level"},
		{name: "bad logrus level", cfg: Config{Backend: BackendLogrus, Level: "loud"}, field: "Level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, cfgErr.Field)
			}
		})
	}
}

func TestOrNop(t *testing.T) {
	if _, ok := OrNop(nil).(Nop); !ok {
		t.Error("OrNop(nil) should return Nop")
	}
	l := Nop{}
	if OrNop(l) != l {
		t.Error("OrNop should return the provided logger")
	}
}
