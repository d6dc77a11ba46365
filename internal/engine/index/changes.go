package index

import (
	"path/filepath"
	"sort"
)

// ChangeSet is one batch of file system changes, as absolute paths.
type ChangeSet struct {
	Created []string
	Updated []string
	Deleted []string
}

func (c ChangeSet) Empty() bool {
	return len(c.Created) == 0 && len(c.Updated) == 0 && len(c.Deleted) == 0
}

func (c ChangeSet) Len() int {
	return len(c.Created) + len(c.Updated) + len(c.Deleted)
}

type changeKind int

const (
	changeCreated changeKind = iota
	changeUpdated
	changeDeleted
)

// pendingChanges coalesces change sets per path. The last event for a path
// wins, except that an update after a create stays a create and a create
// after a delete becomes an update.
type pendingChanges struct {
	byPath map[string]changeKind
}

func (p *pendingChanges) add(cs ChangeSet) {
	if p.byPath == nil {
		p.byPath = make(map[string]changeKind, cs.Len())
	}
	record := func(paths []string, kind changeKind) {
		for _, path := range paths {
			path = filepath.Clean(path)
			k := kind
			prev, seen := p.byPath[path]
			switch {
			case seen && prev == changeCreated && k == changeUpdated:
				continue
			case seen && prev == changeDeleted && k == changeCreated:
				k = changeUpdated
			}
			p.byPath[path] = k
		}
	}
	record(cs.Created, changeCreated)
	record(cs.Updated, changeUpdated)
	record(cs.Deleted, changeDeleted)
}

func (p *pendingChanges) empty() bool {
	return len(p.byPath) == 0
}

// take returns the accumulated changes, sorted, and clears them.
func (p *pendingChanges) take() ChangeSet {
	var cs ChangeSet
	for path, kind := range p.byPath {
		switch kind {
		case changeCreated:
			cs.Created = append(cs.Created, path)
		case changeUpdated:
			cs.Updated = append(cs.Updated, path)
		case changeDeleted:
			cs.Deleted = append(cs.Deleted, path)
		}
	}
	sort.Strings(cs.Created)
	sort.Strings(cs.Updated)
	sort.Strings(cs.Deleted)
	p.byPath = nil
	return cs
}
