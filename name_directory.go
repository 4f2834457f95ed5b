package netagents

import (
	"regexp"
	"sync"
)

const MaxNameLength = 128

var InvalidAgentName = regexp.MustCompile(`[^A-Za-z0-9\-\.]+`)

func ValidateAgentName(name string) bool {
	return name != "" && !InvalidAgentName.MatchString(name) && len(name) <= MaxNameLength
}

// nameDirectory indexes the agents of a simulation by name and by id.
type nameDirectory struct {
	lk     sync.RWMutex
	byName radixTree[*agentEntry]
	byID   map[UniqueID]*agentEntry
}

func newNameDir() *nameDirectory {
	return &nameDirectory{
		byID: make(map[UniqueID]*agentEntry),
	}
}

func (dir *nameDirectory) record(ent *agentEntry) error {
	dir.lk.Lock()
	defer dir.lk.Unlock()
	if _, has := dir.byID[ent.spec.ID]; has {
		return ErrIDConflict
	}
	if !dir.byName.Insert(ent.spec.Name, ent) {
		return ErrNameConflict
	}
	dir.byID[ent.spec.ID] = ent
	return nil
}

func (dir *nameDirectory) has(name string) bool {
	dir.lk.RLock()
	defer dir.lk.RUnlock()
	_, has := dir.byName.Get(name)
	return has
}

func (dir *nameDirectory) resolve(name string) (*agentEntry, error) {
	dir.lk.RLock()
	defer dir.lk.RUnlock()
	ent, has := dir.byName.Get(name)
	if !has {
		return nil, ErrNameResolution
	}
	return ent, nil
}

func (dir *nameDirectory) lookup(id UniqueID) (*agentEntry, error) {
	dir.lk.RLock()
	defer dir.lk.RUnlock()
	ent, has := dir.byID[id]
	if !has {
		return nil, ErrNameResolution
	}
	return ent, nil
}

func (dir *nameDirectory) scan(prefix string) (found []string, err error) {
	dir.lk.RLock()
	defer dir.lk.RUnlock()
	for name := range dir.byName.WalkPrefix(prefix) {
		found = append(found, name)
	}

	if len(found) == 0 {
		err = ErrNameResolution
	}
	return
}
