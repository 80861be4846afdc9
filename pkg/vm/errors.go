package vm

import (
	"errors"
	"fmt"
)

// The error taxonomy of spec.md §7: parse, link, runtime, and
// unimplemented errors. All are ordinary Go errors; the sentinels below
// let callers classify a failure with errors.Is without inspecting
// message text.
var (
	// ErrParse tags malformed-class-file and descriptor errors (class-file
	// parser, §4.1).
	ErrParse = errors.New("parse error")
	// ErrLink tags class-not-found, version-mismatch, name-mismatch,
	// ACC_MODULE, and missing-method/field errors (§4.2, §4.7, §4.8).
	ErrLink = errors.New("link error")
	// ErrRuntime tags null-receiver, negative-array-size,
	// division-by-zero, bounds, and monitor-state violations (§4.8, §4.6).
	ErrRuntime = errors.New("runtime error")
	// ErrUnimplemented tags invokedynamic beyond the stub,
	// signature-polymorphic resolution, and unregistered natives (§4.9).
	ErrUnimplemented = errors.New("unimplemented")

	errMonitorContended = fmt.Errorf("%w: monitor held by another thread", ErrRuntime)
)

// wrapf chains a sentinel classification onto a formatted message, the way
// the teacher's fmt.Errorf("...: %w", err) chains underlying causes.
func wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), sentinel)
}

func parseErrorf(format string, args ...any) error       { return wrapf(ErrParse, format, args...) }
func linkErrorf(format string, args ...any) error         { return wrapf(ErrLink, format, args...) }
func runtimeErrorf(format string, args ...any) error       { return wrapf(ErrRuntime, format, args...) }
func unimplementedErrorf(format string, args ...any) error { return wrapf(ErrUnimplemented, format, args...) }
