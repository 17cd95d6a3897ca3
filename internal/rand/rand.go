// Package rand generates the request identifiers used to correlate RPC
// responses with their requests. IDs only need to be unique among the requests
// in flight on one connection, so a fast seeded PRNG is enough; the seed comes
// from crypto/rand so two processes never walk the same sequence.
package rand

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
)

const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var (
	mu  sync.Mutex
	rng = newSeededRNG()
)

func newSeededRNG() *rand.Rand {
	var seed [16]byte
	if _, err := cryptorand.Read(seed[:]); err != nil {
		panic("unreachable")
	}
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	))
}

// RequestID returns a fresh random identifier of length n drawn from a base62
// alphabet.
func RequestID(n int) string {
	buf := make([]byte, n)

	mu.Lock()
	for i := range buf {
		buf[i] = charset[rng.IntN(len(charset))]
	}
	mu.Unlock()

	return string(buf)
}
