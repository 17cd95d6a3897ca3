package rand

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestIDLengthAndAlphabet(t *testing.T) {
	for _, n := range []int{1, 16, 64} {
		id := RequestID(n)
		require.Len(t, id, n)
		for _, r := range id {
			assert.True(t, strings.ContainsRune(charset, r), "unexpected rune %q in id %q", r, id)
		}
	}
}

func TestRequestIDUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 10000)
	for range 10000 {
		id := RequestID(16)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %q", id)
		seen[id] = struct{}{}
	}
}

func BenchmarkRequestID(b *testing.B) {
	for i := 0; i < b.N; i++ {
		RequestID(16)
	}
}
