package network

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateIndex is wrapped by DuplicateIndexError.
	ErrDuplicateIndex = errors.New("duplicate segment index")
	// ErrInvalidConnectionFormat is wrapped by InvalidConnectionError.
	ErrInvalidConnectionFormat = errors.New("invalid connection format")
	// ErrInvalidTopology is wrapped by TopologyError.
	ErrInvalidTopology = errors.New("invalid topology")
)

// DuplicateIndexError reports two segment records sharing an index.
type DuplicateIndexError struct {
	Index  int
	First  string
	Second string
}

func (e *DuplicateIndexError) Error() string {
	return fmt.Sprintf("segment index %d is used by both %q and %q", e.Index, e.First, e.Second)
}

func (e *DuplicateIndexError) Unwrap() error { return ErrDuplicateIndex }

// InvalidConnectionError reports a connections value that is not a list of
// segment indices.
type InvalidConnectionError struct {
	Index int
	// Raw is the declared value rendered as JSON.
	Raw    string
	Reason string
}

func (e *InvalidConnectionError) Error() string {
	return fmt.Sprintf("segment %d: invalid connections %s: %s", e.Index, e.Raw, e.Reason)
}

func (e *InvalidConnectionError) Unwrap() error { return ErrInvalidConnectionFormat }

// TopologyError reports connections that do not form a tree rooted at the
// root segment.
type TopologyError struct {
	Index  int
	Reason string
}

func (e *TopologyError) Error() string {
	return fmt.Sprintf("segment %d: %s", e.Index, e.Reason)
}

func (e *TopologyError) Unwrap() error { return ErrInvalidTopology }
