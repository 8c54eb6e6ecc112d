package pipeline

import (
	"errors"
	"fmt"
)

// Error kinds. Every compile failure is an *Error that unwraps to exactly
// one of these, plus the underlying cause when there is one.
var (
	ErrNotPipeline   = errors.New("root element is not a pipeline")
	ErrEmpty         = errors.New("pipeline has no stages")
	ErrNodeShape     = errors.New("stage must be a string or an object")
	ErrFieldType     = errors.New("field has the wrong type")
	ErrLocator       = errors.New("invalid filename")
	ErrDuplicateTag  = errors.New("duplicate tag")
	ErrInvalidTag    = errors.New("invalid tag name")
	ErrUndefinedTag  = errors.New("undefined stage tag")
	ErrReaderInputs  = errors.New("inputs not permitted for reader")
	ErrOptionValue   = errors.New("invalid option value")
	ErrPlugin        = errors.New("plugin load failed")
	ErrStage         = errors.New("stage creation failed")
	ErrSyntax        = errors.New("malformed pipeline document")
	ErrUnreadable    = errors.New("unable to read pipeline")
	ErrNoPluginSetup = errors.New("no plugin registry configured")
)

// Error is a compile failure with enough context to find the offending
// configuration.
type Error struct {
	// Index is the stage position in the pipeline, or -1 for failures that
	// concern the whole document.
	Index int
	// Field names the offending key, when there is one.
	Field string
	Kind  error
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	prefix := "pipeline"
	if e.Index >= 0 {
		prefix = fmt.Sprintf("pipeline: stage %d", e.Index)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, e.Msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", prefix, e.Msg)
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	if e.Cause != nil {
		return []error{e.Kind, e.Cause}
	}
	return []error{e.Kind}
}

func newError(index int, field string, kind error, format string, args ...interface{}) *Error {
	return &Error{Index: index, Field: field, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func wrapError(index int, field string, kind, cause error, format string, args ...interface{}) *Error {
	e := newError(index, field, kind, format, args...)
	e.Cause = cause
	return e
}
