package keyspace

import (
	"fmt"
	"math/big"

	"github.com/dustin/go-humanize"
)

const (
	// MinBits and MaxBits bound the puzzle bit sizes accepted by FromBits.
	MinBits = 1
	MaxBits = 256

	// MinBSGSBits is the smallest bit size worth running in bsgs mode.
	MinBSGSBits = 50

	// DefaultKeysPerSecond is the rate used for rough time estimates.
	DefaultKeysPerSecond = 1_000_000
)

// curveOrderMinusOne is n-1 for secp256k1, the largest valid private key.
var curveOrderMinusOne, _ = new(big.Int).SetString("FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFEBAAEDCE6AF48A03BBFD25E8CD0364140", 16)

// FromBits returns the range of keys whose bit length is exactly bits:
// [2^(bits-1), 2^bits - 1]. For 256 bits the end is capped at the curve
// order minus one.
func FromBits(bits int) (Range, error) {
	if bits < MinBits || bits > MaxBits {
		return Range{}, fmt.Errorf("%w: bits must be in %d-%d, got %d", ErrMalformedRange, MinBits, MaxBits, bits)
	}
	one := big.NewInt(1)
	start := new(big.Int).Lsh(one, uint(bits-1))
	end := new(big.Int).Lsh(one, uint(bits))
	end.Sub(end, one)
	if bits == MaxBits {
		end.Set(curveOrderMinusOne)
	}
	return Range{start: start, end: end}, nil
}

// ClampBits limits bits to the range usable by the given search style.
func ClampBits(bits int, bsgs bool) int {
	lo := MinBits
	if bsgs {
		lo = MinBSGSBits
	}
	return max(lo, min(bits, MaxBits))
}

// Info summarises a range for display.
type Info struct {
	Size    *big.Int
	Bits    int
	Start   string
	End     string
	Rate    int64
	Days    *big.Int
	Hours   int
	Minutes int
}

// Describe computes the size of r and a naive exhaustive-search estimate at
// keysPerSecond. A non-positive rate falls back to DefaultKeysPerSecond.
func Describe(r Range, keysPerSecond int64) Info {
	if keysPerSecond <= 0 {
		keysPerSecond = DefaultKeysPerSecond
	}
	size := r.Size()
	start, end := r.Hex()

	seconds := new(big.Int).Quo(size, big.NewInt(keysPerSecond))
	days, rest := new(big.Int).QuoRem(seconds, big.NewInt(24*3600), new(big.Int))
	restSec := rest.Int64()

	return Info{
		Size:    size,
		Bits:    size.BitLen(),
		Start:   start,
		End:     end,
		Rate:    keysPerSecond,
		Days:    days,
		Hours:   int(restSec / 3600),
		Minutes: int(restSec % 3600 / 60),
	}
}

// SizeText renders the key count with thousands separators.
func (i Info) SizeText() string {
	return humanize.BigComma(i.Size)
}

// EstimateText renders the exhaustive-search estimate.
func (i Info) EstimateText() string {
	return fmt.Sprintf("%s days, %d hours, %d minutes", humanize.BigComma(i.Days), i.Hours, i.Minutes)
}
