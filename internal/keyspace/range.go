// Package keyspace models the integer key ranges handed to search instances.
// Ranges are closed intervals of unsigned integers of up to 256 bits and are
// written as two hexadecimal numbers joined by a colon ("start:end").
package keyspace

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

// hexDigits matches an unsigned hexadecimal number without prefix.
var hexDigits = regexp.MustCompile(`^[0-9a-fA-F]+$`)

var (
	// ErrMalformedRange is returned for range text that cannot be parsed.
	ErrMalformedRange = errors.New("malformed key range")

	// ErrInvalidSplitCount is returned when a split count is not positive.
	ErrInvalidSplitCount = errors.New("invalid split count")

	// ErrRangeTooSmall is returned when a range holds fewer keys than the
	// number of parts requested.
	ErrRangeTooSmall = errors.New("range too small for split")
)

// ParseError describes why range text was rejected.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s %q: %s", ErrMalformedRange, e.Input, e.Reason)
}

func (e *ParseError) Unwrap() error { return ErrMalformedRange }

// Range is a closed interval [Start, End] of key values.
// The zero value is not valid; use NewRange or ParseRange.
type Range struct {
	start *big.Int
	end   *big.Int
}

// NewRange returns the interval [start, end]. Both bounds must be
// non-negative and start must not exceed end. The arguments are copied.
func NewRange(start, end *big.Int) (Range, error) {
	if start == nil || end == nil {
		return Range{}, fmt.Errorf("%w: missing bound", ErrMalformedRange)
	}
	if start.Sign() < 0 || end.Sign() < 0 {
		return Range{}, fmt.Errorf("%w: negative bound", ErrMalformedRange)
	}
	if start.Cmp(end) > 0 {
		return Range{}, fmt.Errorf("%w: start %x is greater than end %x", ErrMalformedRange, start, end)
	}
	return Range{start: new(big.Int).Set(start), end: new(big.Int).Set(end)}, nil
}

// MustRange is NewRange for constants; it panics on invalid bounds.
func MustRange(start, end *big.Int) Range {
	r, err := NewRange(start, end)
	if err != nil {
		panic(err)
	}
	return r
}

// ParseRange parses "start:end" where both halves are hexadecimal.
// A leading 0x on either half and surrounding whitespace are accepted.
func ParseRange(text string) (Range, error) {
	trimmed := strings.TrimSpace(text)
	startText, endText, ok := strings.Cut(trimmed, ":")
	if !ok {
		return Range{}, &ParseError{Input: text, Reason: "missing ':' separator"}
	}
	start, err := parseHex(startText)
	if err != nil {
		return Range{}, &ParseError{Input: text, Reason: "start: " + err.Error()}
	}
	end, err := parseHex(endText)
	if err != nil {
		return Range{}, &ParseError{Input: text, Reason: "end: " + err.Error()}
	}
	if start.Cmp(end) > 0 {
		return Range{}, &ParseError{Input: text, Reason: "start is greater than end"}
	}
	return Range{start: start, end: end}, nil
}

func parseHex(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	if s == "" {
		return nil, errors.New("empty value")
	}
	if !hexDigits.MatchString(s) {
		return nil, fmt.Errorf("%q is not hexadecimal", s)
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("%q is not hexadecimal", s)
	}
	return v, nil
}

// Start returns a copy of the lower bound.
func (r Range) Start() *big.Int { return new(big.Int).Set(r.bound(r.start)) }

// End returns a copy of the upper bound.
func (r Range) End() *big.Int { return new(big.Int).Set(r.bound(r.end)) }

func (r Range) bound(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// Size returns the number of keys in the range (End - Start + 1).
func (r Range) Size() *big.Int {
	size := new(big.Int).Sub(r.bound(r.end), r.bound(r.start))
	return size.Add(size, big.NewInt(1))
}

// Contains reports whether k lies inside the range.
func (r Range) Contains(k *big.Int) bool {
	return k.Cmp(r.bound(r.start)) >= 0 && k.Cmp(r.bound(r.end)) <= 0
}

// Equal reports whether both ranges have the same bounds.
func (r Range) Equal(o Range) bool {
	return r.bound(r.start).Cmp(o.bound(o.start)) == 0 && r.bound(r.end).Cmp(o.bound(o.end)) == 0
}

// IsZero reports whether r is the zero Range.
func (r Range) IsZero() bool { return r.start == nil && r.end == nil }

// Hex returns the lower-case hexadecimal bounds without a 0x prefix.
func (r Range) Hex() (start, end string) {
	return r.bound(r.start).Text(16), r.bound(r.end).Text(16)
}

// String renders the range in the "start:end" form the search binary takes.
func (r Range) String() string {
	s, e := r.Hex()
	return s + ":" + e
}
