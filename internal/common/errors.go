package common

import (
	"errors"
	"fmt"
)

// Error kinds for the engine. None of these is process-fatal: batch callers
// collect them per (item, location, period) unit and carry on.
var (
	// ErrDomain marks statistical input outside its mathematical domain.
	ErrDomain = errors.New("domain error")
	// ErrInvalidParameter marks non-positive cost or quantity inputs to policy math.
	ErrInvalidParameter = errors.New("invalid parameter")
	// ErrDataQuality marks missing or stale upstream data; callers recover by
	// falling back to historical estimation with degraded confidence.
	ErrDataQuality = errors.New("data quality")
	// ErrScopeMismatch marks KPI aggregation inputs from inconsistent scopes.
	ErrScopeMismatch = errors.New("scope mismatch")
	// ErrConcurrencyConflict marks a lost update on a per-pair transaction.
	// Callers retry once with fresh state before surfacing it.
	ErrConcurrencyConflict = errors.New("concurrency conflict")
)

func DomainErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDomain, fmt.Sprintf(format, args...))
}

func InvalidParameterErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidParameter, fmt.Sprintf(format, args...))
}

func DataQualityErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrDataQuality, fmt.Sprintf(format, args...))
}

func ScopeMismatchErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrScopeMismatch, fmt.Sprintf(format, args...))
}

func ConcurrencyConflictErrorf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConcurrencyConflict, fmt.Sprintf(format, args...))
}

// UnitError ties a failure to the single batch unit that produced it.
type UnitError struct {
	Unit string
	Err  error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("%s: %v", e.Unit, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

// BatchResult collects per-unit outcomes of a batch run.
type BatchResult struct {
	Processed int
	Failures  []*UnitError
}

func (r *BatchResult) Fail(unit string, err error) {
	r.Failures = append(r.Failures, &UnitError{Unit: unit, Err: err})
}
