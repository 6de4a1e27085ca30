package engine

import (
	"fmt"
	"iter"

	"github.com/IshaanNene/nfrminer/internal/types"
)

// IDRange is a closed interval of numeric issue ids.
type IDRange struct {
	From uint64 `json:"from"`
	To   uint64 `json:"to"`
}

// Len returns the number of ids in the range.
func (r IDRange) Len() uint64 {
	return r.To - r.From + 1
}

// All yields every id in the range in ascending order. An inverted range
// yields nothing.
func (r IDRange) All() iter.Seq[uint64] {
	return func(yield func(uint64) bool) {
		if r.From > r.To {
			return
		}
		for id := r.From; ; id++ {
			if !yield(id) || id == r.To {
				return
			}
		}
	}
}

func (r IDRange) String() string {
	return fmt.Sprintf("[%d,%d]", r.From, r.To)
}

// ClampWorkers caps n at the number of ids in span. Inputs SplitRange
// rejects are returned unchanged.
func ClampWorkers(span IDRange, n int) int {
	if span.From > span.To || n <= 0 || span.Len() == 0 {
		return n
	}
	if uint64(n) > span.Len() {
		return int(span.Len())
	}
	return n
}

// SplitRange partitions span into n contiguous sub-ranges of equal width.
// The last sub-range absorbs the remainder when the length is not divisible
// by n.
func SplitRange(span IDRange, n int) ([]IDRange, error) {
	if span.From > span.To {
		return nil, fmt.Errorf("%w: lower bound %d exceeds upper bound %d", types.ErrInvalidRange, span.From, span.To)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d parts requested", types.ErrInvalidRange, n)
	}
	length := span.Len()
	if length == 0 {
		// [0, MaxUint64] overflows the length.
		return nil, fmt.Errorf("%w: range %s is too large", types.ErrInvalidRange, span)
	}
	if uint64(n) > length {
		return nil, fmt.Errorf("%w: %d parts for %d ids", types.ErrInvalidRange, n, length)
	}

	width := length / uint64(n)
	parts := make([]IDRange, n)
	start := span.From
	for i := range parts {
		end := start + width - 1
		if i == n-1 {
			end = span.To
		}
		parts[i] = IDRange{From: start, To: end}
		start = end + 1
	}
	return parts, nil
}
