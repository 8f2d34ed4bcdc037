package id

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
)

// Generator yields opaque, globally unique, creation-time-sortable ids.
type Generator interface {
	NewID() string
}

type ulidGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

// NewGenerator builds a process-wide ULID generator. Monotonic entropy keeps
// ids strictly ordered within a millisecond.
func NewGenerator() Generator {
	return &ulidGenerator{
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

func (g *ulidGenerator) NewID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now().UTC()), g.entropy).String()
}

// Module wires the id generator.
var Module = fx.Module("id",
	fx.Provide(NewGenerator),
)
