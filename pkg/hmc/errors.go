package hmc

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Stable console error codes the classifier recognizes. The console prefixes
// its diagnostics with an HSCL code, which is matched as a typed code rather
// than by substring on formatted text. Centralized here so the contract can
// be corrected in one place.
const (
	// CodePartitionNotFound is returned by partition lookups when the
	// partition does not exist.
	CodePartitionNotFound = "HSCL8012"

	// CodeInsufficientAuthority is returned when the console user lacks the
	// task role for the requested operation.
	CodeInsufficientAuthority = "HSCL350B"
)

// ConstraintError is a validation-time failure. It is raised before any
// network activity.
type ConstraintError struct {
	Msg string
}

func (e *ConstraintError) Error() string { return e.Msg }

// NotFoundError reports an absent target resource. It is fatal and always
// raised before any mutating call.
type NotFoundError struct {
	Kind string // "managed system" or "vios"
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s is not present on the HMC", e.Kind, e.Name)
}

// ConsoleError is a failure reported by the console itself or by the
// transport carrying it. Code holds the stable HSCL code when one could be
// extracted from the console output.
type ConsoleError struct {
	Op     string // console command or REST operation
	Code   string
	Output string
	Err    error
}

func (e *ConsoleError) Error() string {
	switch {
	case e.Output != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Output)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + ": console error"
}

func (e *ConsoleError) Unwrap() error { return e.Err }

// ConvergenceTimeoutError reports that a mutating command was issued but the
// terminal condition was not observed within the deadline. It carries the
// last observed state and reference code.
type ConvergenceTimeoutError struct {
	Target   string
	State    string
	RefCode  string
	Deadline time.Duration
}

func (e *ConvergenceTimeoutError) Error() string {
	msg := fmt.Sprintf("%s did not converge within %d mins, last state %q",
		e.Target, int(e.Deadline.Minutes()), e.State)
	if e.RefCode != "" {
		msg += fmt.Sprintf(", reference code %s", e.RefCode)
	}
	return msg
}

var hsclCode = regexp.MustCompile(`HSCL[0-9A-F]{4}`)

// ExtractCode pulls the first console error code out of raw command output,
// or returns "" when none is present.
func ExtractCode(output string) string {
	return hsclCode.FindString(output)
}

// HasCode reports whether err is a ConsoleError carrying the given code.
func HasCode(err error, code string) bool {
	var ce *ConsoleError
	return errors.As(err, &ce) && ce.Code == code
}

// Disposition is the classifier's verdict on a console failure.
type Disposition int

const (
	// DispositionFatal surfaces the error verbatim with the action attached.
	DispositionFatal Disposition = iota

	// DispositionAlreadyApplied means the failure signature indicates the
	// action's precondition check hit a state equivalent to "nothing to do
	// here"; the caller proceeds.
	DispositionAlreadyApplied

	// DispositionSoftNoop means the invocation ends successfully with
	// changed=false and no retry.
	DispositionSoftNoop
)

// Classify buckets a console failure observed during the given action's
// pre-check phase. A partition lookup miss while checking existence ahead of
// a create means the create should proceed; insufficient authority during an
// update/upgrade pre-check is a soft no-op and is never retried with
// different credentials. Everything else is fatal.
func Classify(action Action, err error) Disposition {
	switch {
	case action == ActionCreateVios && HasCode(err, CodePartitionNotFound):
		return DispositionAlreadyApplied
	case (action == ActionUpdateVios || action == ActionUpgradeVios) && HasCode(err, CodeInsufficientAuthority):
		return DispositionSoftNoop
	}
	return DispositionFatal
}

// WithAction wraps a fatal console failure with the action name for the
// caller-facing message.
func WithAction(action Action, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", action, err)
}
