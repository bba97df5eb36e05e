// Package notify optionally reports process-level failures (invariant
// breaches, permanent capability gaps) to Sentry. It is adapted from the
// teacher's janitor.go, reduced to the single-process daemon shape: no HTTP
// middleware, no Slack webhook, just CaptureException behind an empty-DSN
// no-op.
package notify

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/log"
)

// Reporter sends uncaught subsystem errors to Sentry when a DSN is
// configured; otherwise every call is a no-op.
type Reporter struct {
	enabled bool
}

// New initializes Sentry if dsn is non-empty.
func New(dsn string) (*Reporter, error) {
	if dsn == "" {
		return &Reporter{}, nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		EnableTracing:    false,
		TracesSampleRate: 0,
	}); err != nil {
		return nil, err
	}
	return &Reporter{enabled: true}, nil
}

// CaptureError reports err with op as context, and always logs it locally.
func (r *Reporter) CaptureError(op string, err error) {
	if err == nil {
		return
	}
	log.Error().Str("op", op).Err(err).Msg("subsystem error")
	if r.enabled {
		sentry.WithScope(func(scope *sentry.Scope) {
			scope.SetTag("op", op)
			sentry.CaptureException(err)
		})
	}
}

// Flush blocks briefly to let buffered events drain before process exit.
func (r *Reporter) Flush() {
	if r.enabled {
		sentry.Flush(2 * time.Second)
	}
}
