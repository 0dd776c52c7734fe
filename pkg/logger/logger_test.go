package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestNew_JSONWithService(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Level: WARN, Output: &buf, Service: "bookings"})

	log.Info("dropped")
	log.Warn("Booking has no price", "kind", "hotel")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1, "info is below the configured level")

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "Booking has no price", entry["msg"])
	assert.Equal(t, "bookings", entry[SERVICE])
	assert.Equal(t, "hotel", entry["kind"])
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Format: TEXT, Output: &buf})

	log.Info("Starting Bookings service")

	assert.Contains(t, buf.String(), `msg="Starting Bookings service"`)
}

func TestWithBooking(t *testing.T) {
	var buf bytes.Buffer
	log := New(Config{Output: &buf}).WithBooking("flight", "665f1c2e8b3e4a0012345678")

	log.Info("Booking cancelled", "actor", "user-1")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "flight", entry[BookingKindKey])
	assert.Equal(t, "665f1c2e8b3e4a0012345678", entry[BookingIDKey])
	assert.Equal(t, "user-1", entry["actor"])
}

func TestFatal_Exits(t *testing.T) {
	var code int
	saved := exit
	exit = func(c int) { code = c }
	t.Cleanup(func() { exit = saved })

	var buf bytes.Buffer
	New(Config{Output: &buf}).With("job", "mongo-migration").Fatal("Exiting after failed migration")

	assert.Equal(t, 1, code)
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
	assert.Contains(t, buf.String(), `"job":"mongo-migration"`)
}
