package testsupport

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// seeded from the clock so names stay unique across test runs sharing a database
var testSequence = uint64(time.Now().UnixNano() % 1000000)

// NextSequence returns next unique sequence number
func NextSequence() uint64 {
	return atomic.AddUint64(&testSequence, 1)
}

// UniqueName generates a unique name with given prefix
// Example: UniqueName("test") -> "test_123456"
func UniqueName(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, NextSequence())
}

// UniqueSymbol generates a valid ticker for tests sharing one database.
// The result is uppercase letters only, at most 10 characters.
func UniqueSymbol(base string) string {
	n := NextSequence()
	var b strings.Builder
	b.WriteString(strings.ToUpper(base))
	for i := 0; i < 4; i++ {
		b.WriteByte(byte('A' + n%26))
		n /= 26
	}
	s := b.String()
	if len(s) > 10 {
		s = s[len(s)-10:]
	}
	return s
}
