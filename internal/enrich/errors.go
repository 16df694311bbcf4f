package enrich

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes enrichment errors.
type ErrorCode string

const (
	// ErrCodeCycleDetected indicates the dependency graph has a cycle.
	ErrCodeCycleDetected ErrorCode = "CYCLE_DETECTED"

	// ErrCodeTableNotDeclared indicates Compute asked for a table its
	// enricher did not declare.
	ErrCodeTableNotDeclared ErrorCode = "TABLE_NOT_DECLARED"

	// ErrCodeComputeFailed wraps an error returned by Compute.
	ErrCodeComputeFailed ErrorCode = "COMPUTE_FAILED"

	// ErrCodeUnsatisfiedRequirement indicates a required field is neither
	// intrinsic nor provided by a transitive dependency.
	ErrCodeUnsatisfiedRequirement ErrorCode = "UNSATISFIED_REQUIREMENT"

	// ErrCodeUndeclaredField indicates Compute returned a field missing from
	// Provides.
	ErrCodeUndeclaredField ErrorCode = "UNDECLARED_FIELD"

	// ErrCodePreloadFailed indicates a table could not be loaded.
	ErrCodePreloadFailed ErrorCode = "PRELOAD_FAILED"

	// ErrCodeInvalidEnricher indicates a malformed enricher descriptor.
	ErrCodeInvalidEnricher ErrorCode = "INVALID_ENRICHER"
)

// Error is an enrichment failure with structured context.
type Error struct {
	Code    ErrorCode
	Message string

	// Enricher names the enricher involved, if any.
	Enricher string

	// EntityID is the entity being computed (COMPUTE_FAILED, UNDECLARED_FIELD).
	EntityID int64

	// Path is the dependency cycle, first node repeated at the end.
	Path []string

	// Err is the underlying cause.
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)

	var ctx []string
	if e.Enricher != "" {
		ctx = append(ctx, "enricher="+e.Enricher)
	}
	if e.EntityID != 0 {
		ctx = append(ctx, fmt.Sprintf("entity=%d", e.EntityID))
	}
	if len(ctx) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(ctx, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// HasCode reports whether err is or wraps an *Error with the given code.
// Nested errors are searched too, so a TABLE_NOT_DECLARED inside a
// COMPUTE_FAILED matches either code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var ee *Error
		if !errors.As(err, &ee) {
			return false
		}
		if ee.Code == code {
			return true
		}
		err = ee.Err
	}
	return false
}

// IsCycleError reports whether err is a dependency cycle error.
func IsCycleError(err error) bool {
	return HasCode(err, ErrCodeCycleDetected)
}

// NewCycleError reports a cycle through path. The first node is repeated
// at the end: [a b c a].
func NewCycleError(path []string) *Error {
	name := ""
	if len(path) > 0 {
		name = path[0]
	}
	return &Error{
		Code:     ErrCodeCycleDetected,
		Message:  "dependency cycle: " + strings.Join(path, " -> "),
		Enricher: name,
		Path:     path,
	}
}

// NewComputeError wraps a Compute failure.
func NewComputeError(enricher string, entityID int64, err error) *Error {
	return &Error{
		Code:     ErrCodeComputeFailed,
		Message:  "compute failed",
		Enricher: enricher,
		EntityID: entityID,
		Err:      err,
	}
}
