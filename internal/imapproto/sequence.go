package imapproto

import (
	"errors"
	"strconv"
	"strings"
)

// SequenceBound is either an explicit message/UID number, or "*"
// (unbounded, meaning "the largest number in use").
type SequenceBound struct {
	Value     uint32
	Unbounded bool
}

func (b SequenceBound) String() string {
	if b.Unbounded {
		return "*"
	}
	return strconv.FormatUint(uint64(b.Value), 10)
}

// SequenceRange is a single "<lower>[:<upper>]" component of a
// sequence-set (RFC 9051 §9, the "sequence-set" production).
type SequenceRange struct {
	Lower, Upper SequenceBound
}

func (r SequenceRange) String() string {
	if r.Lower == r.Upper {
		return r.Lower.String()
	}
	return r.Lower.String() + ":" + r.Upper.String()
}

// SequenceSet is a comma-separated list of SequenceRanges, as used by
// FETCH, STORE, COPY, SEARCH and friends.
type SequenceSet struct {
	Ranges []SequenceRange
}

func (s SequenceSet) String() string {
	parts := make([]string, len(s.Ranges))
	for i, r := range s.Ranges {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

var (
	errEmptySequenceSet = errors.New("imapproto: empty sequence set component")
	errInvalidSequence  = errors.New("imapproto: invalid sequence number")
)

func parseBound(s string) (SequenceBound, error) {
	if s == "*" {
		return SequenceBound{Unbounded: true}, nil
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil || n == 0 {
		return SequenceBound{}, errInvalidSequence
	}
	return SequenceBound{Value: uint32(n)}, nil
}

func parseRange(s string) (SequenceRange, error) {
	lo, hi, ok := strings.Cut(s, ":")
	lowerBound, err := parseBound(lo)
	if err != nil {
		return SequenceRange{}, err
	}
	if !ok {
		return SequenceRange{Lower: lowerBound, Upper: lowerBound}, nil
	}
	upperBound, err := parseBound(hi)
	if err != nil {
		return SequenceRange{}, err
	}
	return SequenceRange{Lower: lowerBound, Upper: upperBound}, nil
}

// ParseSequenceSet parses a sequence-set production such as "1:3,5,6:*".
func ParseSequenceSet(s string) (SequenceSet, error) {
	if s == "" {
		return SequenceSet{}, errEmptySequenceSet
	}

	var ranges []SequenceRange
	for _, part := range strings.Split(s, ",") {
		r, err := parseRange(part)
		if err != nil {
			return SequenceSet{}, err
		}
		ranges = append(ranges, r)
	}
	return SequenceSet{Ranges: ranges}, nil
}
