// Package docnum formats and parses human-readable document numbers like "JE-0001".
package docnum

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultWidth is the zero-padded width of the numeric suffix.
const DefaultWidth = 4

// Format returns a number like "JE-0001".
func Format(prefix string, seq, width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	return fmt.Sprintf("%s-%0*d", prefix, width, seq)
}

// ParseSuffix parses the numeric part after the last '-'.
func ParseSuffix(number string) (int, error) {
	i := strings.LastIndex(number, "-")
	if i < 0 || i == len(number)-1 {
		return 0, fmt.Errorf("invalid document number format: %q", number)
	}
	seq, err := strconv.Atoi(number[i+1:])
	if err != nil {
		return 0, fmt.Errorf("invalid sequence in document number %q: %w", number, err)
	}
	if seq < 0 {
		return 0, fmt.Errorf("negative sequence in document number %q", number)
	}
	return seq, nil
}

// MaxSuffix returns the largest parseable suffix among numbers, or 0.
// Unparseable numbers are skipped.
func MaxSuffix(numbers []string) int {
	maxSeq := 0
	for _, n := range numbers {
		seq, err := ParseSuffix(n)
		if err != nil {
			continue
		}
		if seq > maxSeq {
			maxSeq = seq
		}
	}
	return maxSeq
}

// Next returns the number following the highest existing one: max+1, not count+1.
func Next(prefix string, existing []string, width int) string {
	return Format(prefix, MaxSuffix(existing)+1, width)
}
