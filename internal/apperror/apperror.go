// Package apperror names the error-handling taxonomy (spec.md section 7) as
// sentinel errors and a Transient wrapper; no other package in this module
// returns or checks these values; each subsystem handles its own
// failures directly. The taxonomy: transient tool
// failures are logged and skipped, permanent capability gaps self-disable a
// subsystem, data-shape failures degrade to "no result", invariant breaches
// refuse to start. Grounded on the teacher's scheduler/errors.go, which
// pairs sentinel errors with an explicit retry/fail decision function.
package apperror

import "errors"

// ErrInvariantBreach marks a database or data-shape state the code
// refuses to proceed past (spec.md section 7, "Invariant breach").
var ErrInvariantBreach = errors.New("invariant breach: refusing to proceed")

// ErrCapabilityGap marks a permanently unsupported operation against an
// external API (e.g. an embeddings endpoint rejecting the configured
// model). No subsystem returns it; the embeddings adapter latches its own
// disabled flag instead.
var ErrCapabilityGap = errors.New("capability gap: endpoint does not support this operation")

// Transient wraps a recoverable per-tick failure (empty screenshot,
// encoder non-zero exit, frame-extract timeout). Callers log it and
// continue; it is never propagated to the caller's caller.
type Transient struct {
	Op  string
	Err error
}

func (e *Transient) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Transient) Unwrap() error { return e.Err }

// NewTransient wraps err as a Transient failure for op.
func NewTransient(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Transient{Op: op, Err: err}
}

// IsTransient reports whether err (or anything it wraps) is a Transient.
func IsTransient(err error) bool {
	var t *Transient
	return errors.As(err, &t)
}
