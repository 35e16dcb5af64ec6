// Package logger provides a thin factory around Go's slog package with
// functional options for configuration and helper attribute constructors.
//
// The package standardises structured logging across the billing components
// by exposing a single factory - New - that creates a *slog.Logger configured
// by a set of Option functions:
//
//   - Select an output format (text or json)
//   - Set the minimum log level
//   - Supply default slog.Attr values applied to every record
//
// Helper constructors such as Error, SubscriptionID and PlanID live in
// attr.go and return commonly-used slog.Attr instances to keep attribute
// naming consistent across the codebase.
//
// # Usage
//
//	log := logger.New(
//		logger.WithProduction("billing"),
//		logger.WithAttr(slog.String("version", version)),
//	)
//	logger.SetAsDefault(log)
package logger
