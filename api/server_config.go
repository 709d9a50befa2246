package api

import (
	"errors"
	"log/slog"
	"time"
)

// HTTPServerConfig configures the factory HTTP server.
type HTTPServerConfig struct {
	// ListenAddr is where the factory API is served.
	ListenAddr string

	// MetricsAddr serves /metrics. Empty disables the metrics listener.
	MetricsAddr string

	// EnablePprof mounts net/http/pprof under /debug.
	EnablePprof bool

	Log *slog.Logger

	// DrainDuration is how long /drain keeps reporting not ready before the
	// drain is considered complete.
	DrainDuration time.Duration

	// GracefulShutdownDuration bounds how long Shutdown waits for in-flight requests.
	GracefulShutdownDuration time.Duration

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Validate reports configuration errors that would only surface once the
// server starts listening.
func (c *HTTPServerConfig) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("listen address is required")
	}
	if c.MetricsAddr != "" && c.MetricsAddr == c.ListenAddr {
		return errors.New("metrics address must differ from listen address")
	}
	if c.GracefulShutdownDuration < 0 || c.DrainDuration < 0 {
		return errors.New("durations must not be negative")
	}
	return nil
}
