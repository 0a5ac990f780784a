package id

import (
	"encoding/binary"
	"sync"
	"time"
)

// ID is a 128-bit, lexicographically sortable identifier encoded big-endian:
// [8 bytes ms timestamp][8 bytes per-process sequence].
type ID [16]byte

// String returns the hex encoding.
func (i ID) String() string {
	const digits = "0123456789abcdef"
	out := make([]byte, 32)
	for n, v := range i {
		out[n*2] = digits[v>>4]
		out[n*2+1] = digits[v&0x0f]
	}
	return string(out)
}

// Generator produces monotonically increasing IDs within a process.
type Generator struct {
	mu     sync.Mutex
	lastMs int64
	seq    uint64
}

// NewGenerator creates a Generator.
func NewGenerator() *Generator { return &Generator{} }

// nowMs is replaceable in tests.
var nowMs = func() int64 { return time.Now().UnixMilli() }

// Next returns a new ID. If the clock moves backwards the previous timestamp
// is reused and the sequence keeps increasing, preserving ordering.
func (g *Generator) Next() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := nowMs()
	if ms < g.lastMs {
		ms = g.lastMs
	}
	if ms == g.lastMs {
		g.seq++
	} else {
		g.seq = 0
		g.lastMs = ms
	}

	var out ID
	binary.BigEndian.PutUint64(out[0:8], uint64(ms))
	binary.BigEndian.PutUint64(out[8:16], g.seq)
	return out
}

var defaultGen = NewGenerator()

// New returns an ID from the process-wide generator.
func New() ID { return defaultGen.Next() }
