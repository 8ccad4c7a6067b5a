// Package logging provides structured logging for HomeSync Core.
//
// It is a thin wrapper over log/slog that applies the configured output
// format and level and attaches default service attributes to every record.
package logging
