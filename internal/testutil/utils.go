package testutil

import (
	"log/slog"
	"testing"

	"github.com/neilotoole/slogt"
)

// TestLogger returns a logger whose output is attached to t.
func TestLogger(t *testing.T) *slog.Logger {
	return slogt.New(t)
}
