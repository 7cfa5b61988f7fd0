package config

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
)

// ParseByteSize parses a human byte count such as "512", "10MB" or "1GiB".
// Unit-less suffixes are decimal ("10M" is 10,000,000 bytes); the "i" forms
// are binary.
func ParseByteSize(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("byte size %q out of range", s)
	}
	return int64(n), nil
}
