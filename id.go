package netagents

import (
	"cmp"
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// UniqueID names an agent for the lifetime of a simulation run.
// Zero is reserved and means "not assigned yet".
type UniqueID uint64

// ParseUniqueID parses the base-10 form produced by UniqueID.String.
// Surrounding whitespace is ignored.
func ParseUniqueID(s string) (UniqueID, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %w", ErrInvalidID, s, err)
	}
	if v == 0 {
		return 0, fmt.Errorf("%w: %q: zero is reserved", ErrInvalidID, s)
	}
	return UniqueID(v), nil
}

func (id UniqueID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// Compare returns -1, 0 or +1 following the total order of identifiers.
func (id UniqueID) Compare(other UniqueID) int {
	return cmp.Compare(id, other)
}

// idGenerator hands out sequential identifiers starting at 1, skipping the
// ones already claimed explicitly.
type idGenerator struct {
	lk      sync.Mutex
	next    UniqueID
	claimed map[UniqueID]struct{}
}

func newIDGenerator() *idGenerator {
	return &idGenerator{
		next:    1,
		claimed: make(map[UniqueID]struct{}),
	}
}

func (g *idGenerator) generate() UniqueID {
	g.lk.Lock()
	defer g.lk.Unlock()
	for {
		id := g.next
		g.next++
		if _, taken := g.claimed[id]; !taken {
			g.claimed[id] = struct{}{}
			return id
		}
	}
}

func (g *idGenerator) claim(id UniqueID) error {
	g.lk.Lock()
	defer g.lk.Unlock()
	if id == 0 {
		return ErrInvalidID
	}
	if _, taken := g.claimed[id]; taken {
		return fmt.Errorf("%w: %s", ErrIDConflict, id)
	}
	g.claimed[id] = struct{}{}
	return nil
}
