// Package logger provides structured logging for RegMesh.
//
// It builds log/slog loggers with:
//
//   - JSON or text output
//   - a process-wide level that can change at runtime (config hot reload)
//   - redaction of attributes whose key looks sensitive
//   - request IDs carried in the context and stamped on every record
//
// Components receive a *slog.Logger; nothing outside cmd/ constructs one.
package logger
