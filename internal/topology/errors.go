package topology

import (
	"fmt"
)

// ErrMalformedRecord indicates a record that cannot be decoded into a feature
type ErrMalformedRecord struct {
	Record string
	Reason string
}

func (e *ErrMalformedRecord) Error() string {
	return fmt.Sprintf("malformed boundary record %s: %s", e.Record, e.Reason)
}

// ErrIDOutOfRange indicates a declared feature id outside the encodable range.
// Valid ids are 1..2^24-2: 0 is the "no feature" sentinel and 2^24-1 does not
// fit the 24-bit color encoding.
type ErrIDOutOfRange struct {
	Record string
	ID     int
}

func (e *ErrIDOutOfRange) Error() string {
	return fmt.Sprintf("record %s: feature id %d outside valid range [1, %d]",
		e.Record, e.ID, MaxID)
}

// ErrDuplicateID indicates two records declaring the same feature id
type ErrDuplicateID struct {
	Record string
	ID     int
}

func (e *ErrDuplicateID) Error() string {
	return fmt.Sprintf("record %s: duplicate feature id %d", e.Record, e.ID)
}
