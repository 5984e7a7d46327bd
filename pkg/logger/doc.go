// Package logger provides the slog factory and the attribute vocabulary
// shared by the entitlement engine's components.
//
// Attributes are constructed through helpers (Component, Event, AccountID,
// Plan, Error) so keys stay consistent across packages and log queries.
package logger
