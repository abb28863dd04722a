package ident

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var idPattern = regexp.MustCompile(`^ORD_[0-9A-Z]+_[0-9A-Z]{7}$`)

func TestNew_Format(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := New("ORD")
		assert.Regexp(t, idPattern, id)
	}
}

func TestNew_NoCollisions(t *testing.T) {
	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		id := New("TXN")
		require.False(t, seen[id], "collision after %d ids: %s", i, id)
		seen[id] = true
	}
}
