package domain

import (
	"regexp"
	"strconv"
)

var idPattern = regexp.MustCompile(`^[1-9][0-9]*$`)

// NextID returns max(existing ids)+1, or 1 for an empty collection.
// Callers must hold the store's exclusive access while using the result.
func NextID(c Collection) int64 {
	var max int64
	for _, t := range c {
		if t.ID > max {
			max = t.ID
		}
	}
	return max + 1
}

// ParseID validates a path segment as a strictly positive integer without
// sign or leading zeros. ok is false for malformed input. overflow is true
// when the segment is well formed but does not fit in int64; such an id
// cannot exist in any collection.
func ParseID(raw string) (id int64, ok, overflow bool) {
	if !idPattern.MatchString(raw) {
		return 0, false, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, true, true
	}
	return n, true, false
}
