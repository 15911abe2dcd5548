package testsupport

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextSequence_Increments(t *testing.T) {
	seq1 := NextSequence()
	seq2 := NextSequence()

	assert.Equal(t, seq1+1, seq2)
}

func TestUniqueSymbol(t *testing.T) {
	valid := regexp.MustCompile(`^[A-Z]{1,10}$`)
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		s := UniqueSymbol("t")
		assert.Regexp(t, valid, s)
		assert.False(t, seen[s], "duplicate symbol %s", s)
		seen[s] = true
	}
}
