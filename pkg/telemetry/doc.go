// Package telemetry bundles the observability stack of hmcctl: structured
// zerolog logging, Prometheus metrics for invocations and console calls, and
// OpenTelemetry tracing with stdout or OTLP export.
//
// The engine reports through small interfaces it defines itself; this
// package provides the production implementations and a single Telemetry
// aggregate wired up from one Config.
package telemetry
