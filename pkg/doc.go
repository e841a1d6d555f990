// Package pkg provides shared utilities for the otgusb controller driver.
//
// This package contains common functionality used across the driver core,
// the register layer, and the simulated core, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error types for driver and transfer errors
//   - Component identifiers for log filtering
//
// The package is designed to have zero external dependencies, relying
// only on the Go standard library.
//
// # Logging
//
// The logging subsystem wraps [log/slog] with driver-specific context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentDriver, "peripheral enabled", "speed", "full")
//
// # Errors
//
// Common driver errors are defined as sentinel values:
//
//	if errors.Is(err, pkg.ErrInvalidEndpoint) {
//	    // Handle bad endpoint address
//	}
package pkg
