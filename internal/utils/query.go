// Package utils provides small helpers shared by the HTTP layer that carry
// no domain logic.
package utils

import (
	"strconv"
	"strings"
	"time"
)

// AtoiDefault parses s as an int after trimming spaces. Empty or invalid
// input yields def.
//
//	utils.AtoiDefault(" 12 ", 5) // 12
//	utils.AtoiDefault("", 5)     // 5
//	utils.AtoiDefault("x", 5)    // 5
func AtoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// SecondsCeil returns d in whole seconds, rounded up. Negative durations
// yield 0.
func SecondsCeil(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
