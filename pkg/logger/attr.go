package logger

import (
	"log/slog"
	"time"
)

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

// Event records the event name under the key "event".
func Event(name string) slog.Attr {
	return slog.String("event", name)
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// AccountID records the account identifier under the key "account_id".
// If id is nil, it returns an empty Attr.
func AccountID(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("account_id", id)
}

// Plan records the plan identifier under the key "plan".
// If id is nil, it returns an empty Attr.
func Plan(id any) slog.Attr {
	if id == nil {
		return slog.Attr{}
	}
	return slog.Any("plan", id)
}

// AccessLevel records the resolved access level under the key "access_level".
func AccessLevel(level any) slog.Attr {
	return slog.Any("access_level", level)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Status records an HTTP status code under the key "status".
func Status(code int) slog.Attr {
	return slog.Int("status", code)
}
