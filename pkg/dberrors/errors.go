// Package dberrors carries the fatal, store-level error kinds a disk index
// can raise: bad page/record addressing, corrupt sizes, and reads of
// freed storage. These are distinct from the domain Status result (OK,
// AlreadyExists, DoesNotExist), which the btree package returns as an
// ordinary value rather than an error.
package dberrors

import "fmt"

// Kind classifies a StoreError the way the original implementation's
// exception types did (out_of_range, invalid_argument, a freed-page
// runtime_error), plus IO for wrapped os.File failures.
type Kind int

const (
	Unknown Kind = iota
	OutOfRange
	InvalidSize
	ReadFreed
	IO
)

func (k Kind) String() string {
	switch k {
	case OutOfRange:
		return "OutOfRange"
	case InvalidSize:
		return "InvalidSize"
	case ReadFreed:
		return "ReadFreed"
	case IO:
		return "IO"
	default:
		return "Unknown"
	}
}

// StoreError is a coded error raised by the page store or buffer pool.
// Encountering one leaves the tree in an implementation-defined state;
// callers are expected to discard the Tree rather than retry.
type StoreError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *StoreError) Unwrap() error { return e.Cause }

func NewOutOfRange(message string) error {
	return &StoreError{Kind: OutOfRange, Message: message}
}

func NewInvalidSize(message string) error {
	return &StoreError{Kind: InvalidSize, Message: message}
}

func NewReadFreed(message string) error {
	return &StoreError{Kind: ReadFreed, Message: message}
}

func NewIO(message string, cause error) error {
	return &StoreError{Kind: IO, Message: message, Cause: cause}
}
