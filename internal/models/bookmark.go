package models

import "encoding/json"

// BookmarkSet is an ordered set of problem ids. Insertion order is preserved
// and duplicates are ignored. The remote store keeps this as a bracketed CSV
// text column; that encoding lives entirely in the persistence adapter.
type BookmarkSet struct {
	ids   []string
	index map[string]struct{}
}

// NewBookmarkSet returns a set seeded with the given ids, deduplicated in order.
func NewBookmarkSet(ids ...string) BookmarkSet {
	var s BookmarkSet
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id at the end of the set. Returns false if it was already present.
func (s *BookmarkSet) Add(id string) bool {
	if id == "" {
		return false
	}
	if s.index == nil {
		s.index = map[string]struct{}{}
	}
	if _, ok := s.index[id]; ok {
		return false
	}
	s.index[id] = struct{}{}
	s.ids = append(s.ids, id)
	return true
}

// Remove deletes id from the set. Returns false if it was not present.
func (s *BookmarkSet) Remove(id string) bool {
	if _, ok := s.index[id]; !ok {
		return false
	}
	delete(s.index, id)
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			break
		}
	}
	return true
}

// Contains reports whether id is in the set.
func (s BookmarkSet) Contains(id string) bool {
	_, ok := s.index[id]
	return ok
}

// IDs returns the ids in insertion order. The returned slice is a copy.
func (s BookmarkSet) IDs() []string {
	return append([]string(nil), s.ids...)
}

// Len returns the number of ids in the set.
func (s BookmarkSet) Len() int {
	return len(s.ids)
}

// Clone returns an independent copy of the set.
func (s BookmarkSet) Clone() BookmarkSet {
	return NewBookmarkSet(s.ids...)
}

// MarshalJSON encodes the set as a JSON array of ids in insertion order.
func (s BookmarkSet) MarshalJSON() ([]byte, error) {
	ids := s.ids
	if ids == nil {
		ids = []string{}
	}
	return json.Marshal(ids)
}

// UnmarshalJSON decodes a JSON array of ids, deduplicating in order.
func (s *BookmarkSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewBookmarkSet(ids...)
	return nil
}
