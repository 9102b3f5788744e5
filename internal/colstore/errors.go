package colstore

import "errors"

var (
	// ErrCorrupt is returned when a page fails its checksum or structural checks.
	ErrCorrupt = errors.New("colstore: corrupt page")

	// ErrClosed is returned when a closed writer is used.
	ErrClosed = errors.New("colstore: writer closed")

	// ErrOutOfRange is returned for integer values outside the declared range.
	ErrOutOfRange = errors.New("colstore: value out of range")
)
