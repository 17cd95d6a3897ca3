package connection_test

import (
	"testing"

	"github.com/dbwire/dbwire.go/internal/mock"
	"github.com/dbwire/dbwire.go/pkg/connection"
)

// The guard cycle brackets every round-trip, so its cost is paid by every
// operation of every backend.
func BenchmarkCancellationGuard(b *testing.B) {
	var base connection.Base

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		g := base.CancellationGuard()
		g.Forget()
		g.Release()
	}
}

func BenchmarkGuarded(b *testing.B) {
	conn := &mock.Connection{}
	fn := func() error { return nil }

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := connection.Guarded(conn, fn); err != nil {
			b.Fatal(err)
		}
	}
}
