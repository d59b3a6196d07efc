package vm

import (
	"tlog.app/go/errors"
)

type (
	// Segment lays out the data memory at compile time.
	// Addresses are checked here once; the run time trusts them.
	Segment struct {
		size int
	}
)

var ErrSegmentFull = errors.New("data segment full")

func (s *Segment) Alloc(words int) (Addr, error) {
	if words <= 0 {
		return InvalidCode, errors.New("bad allocation size: %d", words)
	}

	if s.size+words >= int(InvalidCode) {
		return InvalidCode, errors.Wrap(ErrSegmentFull, "allocate %d words at %d", words, s.size)
	}

	a := Addr(s.size)
	s.size += words

	return a, nil
}

// Size is the number of words allocated.
func (s *Segment) Size() int { return s.size }

func (s *Segment) Reset() { s.size = 0 }
