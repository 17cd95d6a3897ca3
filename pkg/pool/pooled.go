package pool

import (
	"time"

	"github.com/google/uuid"

	"github.com/dbwire/dbwire.go/pkg/connection"
)

// Pooled wraps a pooled connection with the metadata the pool tracks
// about it: a stable id for log correlation and creation/last-use times.
type Pooled struct {
	conn connection.Connection

	id        string
	createdAt time.Time

	// lastUsedAt is touched by the pool on checkout and check-in. Only the
	// current holder observes it, so no atomics are needed.
	lastUsedAt time.Time
}

func newPooled(conn connection.Connection) *Pooled {
	now := time.Now()
	return &Pooled{
		conn:       conn,
		id:         uuid.NewString(),
		createdAt:  now,
		lastUsedAt: now,
	}
}

// Conn returns the underlying connection for use by the current holder.
func (p *Pooled) Conn() connection.Connection {
	return p.conn
}

// ID identifies this pooled connection in logs.
func (p *Pooled) ID() string {
	return p.id
}

// CreatedAt is the time the factory returned this connection.
func (p *Pooled) CreatedAt() time.Time {
	return p.createdAt
}

// LastUsedAt is the time this connection last crossed the pool boundary.
func (p *Pooled) LastUsedAt() time.Time {
	return p.lastUsedAt
}

func (p *Pooled) touch() {
	p.lastUsedAt = time.Now()
}
