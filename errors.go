package mixseq

import (
	"errors"
	"fmt"
	"strings"
)

type (
	// ValidationError is returned when an argument is out of its allowed
	// range: an invalid index, bpm, step count or time signature. The
	// operation was rejected before anything was changed.
	ValidationError struct {
		Op    string // operation that rejected the value, e.g. "SetPan"
		Field string // name of the offending argument
		Value any    // the rejected value
		Rule  string // human readable constraint, e.g. "in [-1, 1]"
	}

	// StructuralError is returned when an operation references something
	// that does not exist or has the wrong kind, e.g. a send to a track that
	// is not a return track, or deleting an unknown track.
	StructuralError struct {
		Op     string
		ID     int
		Reason string
	}

	// UnknownEffectTypeError is returned by CreateEffectNode when the
	// requested kind is not one of the known effect kinds.
	UnknownEffectTypeError struct {
		Kind EffectKind
	}

	// DisposalError collects the errors of processing units that failed to
	// release their resources during Dispose. It is surfaced, never retried.
	DisposalError struct {
		Errs []error
	}
)

var (
	// ErrDisposed is returned by every graph operation after the graph has
	// been disposed.
	ErrDisposed = errors.New("mixseq: graph has been disposed")

	// ErrNotFound is wrapped by StructuralErrors that are about an unknown
	// id, so callers can use errors.Is(err, ErrNotFound).
	ErrNotFound = errors.New("not found")
)

func (e *ValidationError) Error() string {
	if e.Rule == "" {
		return fmt.Sprintf("%s: invalid %s %v", e.Op, e.Field, e.Value)
	}
	return fmt.Sprintf("%s: invalid %s %v, must be %s", e.Op, e.Field, e.Value, e.Rule)
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("%s: id %d: %s", e.Op, e.ID, e.Reason)
}

func (e *StructuralError) Unwrap() error {
	if strings.HasSuffix(e.Reason, ErrNotFound.Error()) {
		return ErrNotFound
	}
	return nil
}

func (e *UnknownEffectTypeError) Error() string {
	return fmt.Sprintf("unknown effect type %q", string(e.Kind))
}

func (e *DisposalError) Error() string {
	msgs := make([]string, len(e.Errs))
	for i, err := range e.Errs {
		msgs[i] = err.Error()
	}
	return "dispose failed: " + strings.Join(msgs, "; ")
}

func (e *DisposalError) Unwrap() []error { return e.Errs }

func validationErr(op, field string, value any, rule string) error {
	return &ValidationError{Op: op, Field: field, Value: value, Rule: rule}
}

func notFound(op, what string, id int) error {
	return &StructuralError{Op: op, ID: id, Reason: what + " " + ErrNotFound.Error()}
}

func structuralErr(op string, id int, reason string) error {
	return &StructuralError{Op: op, ID: id, Reason: reason}
}
