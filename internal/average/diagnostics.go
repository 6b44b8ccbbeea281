package average

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidWeight reports a missing, non-numeric or out of range weight.
	ErrInvalidWeight = errors.New("invalid weight")
	// ErrInvalidInput reports a malformed record that was skipped.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnknownMode is returned when the calculator is configured with an unsupported mode.
	ErrUnknownMode = errors.New("unknown averaging mode")
)

// Kind classifies a diagnostic.
type Kind string

const (
	KindInvalidWeight Kind = "INVALID_WEIGHT"
	KindInvalidInput  Kind = "INVALID_INPUT"
)

// Diagnostic is a non-fatal problem found while computing. The affected
// term or record is skipped; the rest of the computation continues.
type Diagnostic struct {
	Kind      Kind   `json:"kind"`
	StudentID int    `json:"student_id,omitempty"`
	Term      string `json:"term,omitempty"`
	Message   string `json:"message"`
}

// Error implements error.
func (d Diagnostic) Error() string {
	switch {
	case d.Term != "" && d.StudentID != 0:
		return fmt.Sprintf("%s: student %d term %q: %s", d.sentinel(), d.StudentID, d.Term, d.Message)
	case d.Term != "":
		return fmt.Sprintf("%s: term %q: %s", d.sentinel(), d.Term, d.Message)
	case d.StudentID != 0:
		return fmt.Sprintf("%s: student %d: %s", d.sentinel(), d.StudentID, d.Message)
	default:
		return fmt.Sprintf("%s: %s", d.sentinel(), d.Message)
	}
}

// Unwrap exposes the sentinel so errors.Is works on diagnostics.
func (d Diagnostic) Unwrap() error {
	return d.sentinel()
}

func (d Diagnostic) sentinel() error {
	if d.Kind == KindInvalidWeight {
		return ErrInvalidWeight
	}
	return ErrInvalidInput
}

// Err joins every diagnostic into one error, or nil when there are none.
func (r *Result) Err() error {
	if r == nil || len(r.Diagnostics) == 0 {
		return nil
	}
	errs := make([]error, len(r.Diagnostics))
	for i, d := range r.Diagnostics {
		errs[i] = d
	}
	return errors.Join(errs...)
}

// HasKind reports whether any diagnostic of kind was raised.
func (r *Result) HasKind(kind Kind) bool {
	if r == nil {
		return false
	}
	for _, d := range r.Diagnostics {
		if d.Kind == kind {
			return true
		}
	}
	return false
}

type diagnostics struct {
	list []Diagnostic
	seen map[Diagnostic]struct{}
}

func (d *diagnostics) add(diag Diagnostic) {
	if d.seen == nil {
		d.seen = make(map[Diagnostic]struct{})
	}
	if _, ok := d.seen[diag]; ok {
		return
	}
	d.seen[diag] = struct{}{}
	d.list = append(d.list, diag)
}
