package forms

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrLookup is matched by every *LookupError.
	ErrLookup = errors.New("block lookup failed")
	// ErrMalformedBlock is matched by every *ParseError.
	ErrMalformedBlock = errors.New("malformed block")
)

// LookupKind says which reference could not be resolved.
type LookupKind int

const (
	// MissingValue: the key block has no VALUE relationship ids at all.
	MissingValue LookupKind = iota
	// UnknownValue: the VALUE id is not a value block.
	UnknownValue
	// UnknownChild: a CHILD id is not in the block index.
	UnknownChild
)

func (k LookupKind) String() string {
	switch k {
	case MissingValue:
		return "key without paired value"
	case UnknownValue:
		return "unknown value block"
	case UnknownChild:
		return "unknown child block"
	default:
		return "unknown lookup failure"
	}
}

// LookupError reports a block reference that cannot be resolved. The block graph
// returned by the analysis service is inconsistent when this happens.
type LookupError struct {
	Kind    LookupKind
	BlockID string // block holding the reference
	RefID   string // unresolved id; empty for MissingValue
}

func (e *LookupError) Error() string {
	if e.RefID == "" {
		return fmt.Sprintf("%s: block %s", e.Kind, e.BlockID)
	}
	return fmt.Sprintf("%s: block %s references %s", e.Kind, e.BlockID, e.RefID)
}

func (e *LookupError) Unwrap() error { return ErrLookup }

// AmbiguousValueError reports a key block linked to more than one value block.
type AmbiguousValueError struct {
	KeyID    string
	ValueIDs []string
}

func (e *AmbiguousValueError) Error() string {
	return fmt.Sprintf("key block %s has %d value references (%s), want exactly one",
		e.KeyID, len(e.ValueIDs), strings.Join(e.ValueIDs, ", "))
}

// ParseError reports a raw block record rejected at ingestion.
type ParseError struct {
	Index  int    // position in the input
	ID     string // may be empty when the id itself is missing
	Reason string
}

func (e *ParseError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("block #%d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("block #%d (%s): %s", e.Index, e.ID, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrMalformedBlock }
