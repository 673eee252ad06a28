package utils

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies an AMRError.
type Kind uint8

// Error kinds reported by the plotfile reader and its consumers.
const (
	KindFormat              Kind = iota + 1 // Malformed or unparseable header text.
	KindIO                                  // Missing file, failed seek or read.
	KindUnsupportedEncoding                 // Real-number layouts differ in more than byte order.
	KindConfiguration                       // Bad configuration or collective invariant violation.
)

// Sentinels matched by errors.Is against any AMRError of the same kind.
var (
	ErrFormat              = errors.New("format error")
	ErrIO                  = errors.New("io error")
	ErrUnsupportedEncoding = errors.New("unsupported encoding")
	ErrConfiguration       = errors.New("configuration error")
)

// NoBlock marks an AMRError that is not scoped to a single block.
const NoBlock = -1

func (k Kind) sentinel() error {
	switch k {
	case KindFormat:
		return ErrFormat
	case KindIO:
		return ErrIO
	case KindUnsupportedEncoding:
		return ErrUnsupportedEncoding
	case KindConfiguration:
		return ErrConfiguration
	}
	return nil
}

// String returns the kind name.
func (k Kind) String() string {
	if s := k.sentinel(); s != nil {
		return s.Error()
	}
	return fmt.Sprintf("kind(%d)", k)
}

// AMRError represents a structured failure with the block and field it is
// scoped to, if any.
type AMRError struct {
	Kind    Kind
	Context string
	Block   int
	Field   string
	Cause   error
}

// Error implements the error interface.
func (e *AMRError) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Context != "" {
		b.WriteString(": ")
		b.WriteString(e.Context)
	}
	if e.Block != NoBlock {
		fmt.Fprintf(&b, " (block %d", e.Block)
		if e.Field != "" {
			fmt.Fprintf(&b, ", field %q", e.Field)
		}
		b.WriteString(")")
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap provides compatibility with errors.Unwrap().
func (e *AMRError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel for this error's kind.
func (e *AMRError) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// WrapError creates a contextual error of the given kind.
func WrapError(kind Kind, context string, cause error) error {
	if cause == nil {
		return nil
	}
	return &AMRError{
		Kind:    kind,
		Context: context,
		Block:   NoBlock,
		Cause:   cause,
	}
}

// FormatError reports malformed header text.
func FormatError(format string, args ...interface{}) error {
	return &AMRError{Kind: KindFormat, Context: fmt.Sprintf(format, args...), Block: NoBlock}
}

// ConfigError reports an invalid configuration or violated collective invariant.
func ConfigError(format string, args ...interface{}) error {
	return &AMRError{Kind: KindConfiguration, Context: fmt.Sprintf(format, args...), Block: NoBlock}
}

// BlockError scopes a failure to one block and field.
func BlockError(kind Kind, block int, field string, cause error) error {
	if cause == nil {
		return nil
	}
	// Keep the innermost scope if the cause is already a block error.
	var inner *AMRError
	if errors.As(cause, &inner) && inner.Block != NoBlock {
		return cause
	}
	if errors.As(cause, &inner) {
		kind = inner.Kind
	}
	return &AMRError{
		Kind:  kind,
		Block: block,
		Field: field,
		Cause: cause,
	}
}

// KindOf returns the kind of the first AMRError in err's chain, or 0.
func KindOf(err error) Kind {
	var e *AMRError
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
