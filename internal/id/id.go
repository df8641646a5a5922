// internal/id/id.go
package id

import (
	"strconv"
	"sync"
	"time"

	hashids "github.com/speps/go-hashids/v2"
)

const minIDLength = 8

// Generator produces short public room IDs by encoding a monotonically
// increasing counter. The encoding is deterministic and collision-free;
// it is not a secret (room IDs are shared in invite links), uniqueness
// is the only hard requirement.
type Generator struct {
	mu   sync.Mutex
	h    *hashids.HashID
	next int
}

// NewGenerator builds a Generator salted with the current unix time so
// that two server runs do not hand out the same ID sequence.
func NewGenerator() (*Generator, error) {
	data := hashids.NewData()
	data.Salt = strconv.FormatInt(time.Now().Unix(), 10)
	data.MinLength = minIDLength
	h, err := hashids.NewWithData(data)
	if err != nil {
		return nil, err
	}
	return &Generator{h: h}, nil
}

// Next returns the encoding of the next counter value.
func (g *Generator) Next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.next++
	return g.h.Encode([]int{g.next})
}
