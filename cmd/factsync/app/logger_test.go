package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetermineLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		config   *Config
		expected string
	}{
		{"default level", &Config{}, "info"},
		{"verbose sets debug", &Config{Verbose: true}, "debug"},
		{"quiet sets warn", &Config{Quiet: true}, "warn"},
		{"both flags prefer quiet", &Config{Verbose: true, Quiet: true}, "warn"},
		{"explicit level overrides verbose", &Config{LogLevel: "error", Verbose: true}, "error"},
		{"explicit level overrides quiet", &Config{LogLevel: "trace", Quiet: true}, "trace"},
		{"invalid level falls back", &Config{LogLevel: "loud"}, "info"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, determineLogLevel(tt.config))
		})
	}
}
