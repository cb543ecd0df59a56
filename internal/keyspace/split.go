package keyspace

import (
	"fmt"
	"math/big"
)

// Split divides r into n contiguous, non-overlapping parts in ascending
// order. When the size is not a multiple of n the first size%n parts are one
// key larger than the rest. The last part always ends exactly at r.End.
func Split(r Range, n int) ([]Range, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSplitCount, n)
	}

	total := r.Size()
	count := big.NewInt(int64(n))
	if total.Cmp(count) < 0 {
		return nil, fmt.Errorf("%w: %s keys cannot cover %d instances", ErrRangeTooSmall, total, n)
	}

	chunk, rem := new(big.Int).QuoRem(total, count, new(big.Int))
	// rem < n, so it always fits in an int64.
	extra := rem.Int64()

	one := big.NewInt(1)
	parts := make([]Range, 0, n)
	cursor := r.Start()
	for i := 0; i < n; i++ {
		size := new(big.Int).Set(chunk)
		if int64(i) < extra {
			size.Add(size, one)
		}
		end := new(big.Int).Add(cursor, size)
		end.Sub(end, one)
		if i == n-1 {
			end = r.End()
		}
		parts = append(parts, Range{start: cursor, end: end})
		cursor = new(big.Int).Add(end, one)
	}
	return parts, nil
}
