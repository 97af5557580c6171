package ortho

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Every error returned by this package wraps one of them.
var (
	// ErrInvalidArgument reports an unrecognized language or orthography identifier.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrMissingParameter reports a conversion with no source or target configured.
	ErrMissingParameter = errors.New("missing parameter")
	// ErrFailedLookup reports a meta-letter without a spelling for the requested column.
	ErrFailedLookup = errors.New("failed lookup")
	// ErrResourceLoad reports a missing or malformed table or rule resource.
	ErrResourceLoad = errors.New("resource load failure")
)

// ArgumentError names the offending parameter and the values it accepts.
type ArgumentError struct {
	Param       string
	Value       string
	Recommended []string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid %q argument %q given, should be one of: %s",
		e.Param, e.Value, strings.Join(e.Recommended, ", "))
}

func (e *ArgumentError) Unwrap() error { return ErrInvalidArgument }

// LookupError is returned when the table has no spelling of Meta for Column.
type LookupError struct {
	Meta   string
	Column Column
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("meta-letter %q has no spelling for %s", e.Meta, e.Column)
}

func (e *LookupError) Unwrap() error { return ErrFailedLookup }

// LoadError locates a parse failure inside a table or rule resource.
// Line is 1-based; zero means the error is not tied to a line.
type LoadError struct {
	Resource string
	Line     int
	Err      error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("load %s line %d: %v", e.Resource, e.Line, e.Err)
	}
	return fmt.Sprintf("load %s: %v", e.Resource, e.Err)
}

func (e *LoadError) Unwrap() []error { return []error{ErrResourceLoad, e.Err} }

func missing(param string) error {
	return fmt.Errorf("%w: no %q value given", ErrMissingParameter, param)
}
