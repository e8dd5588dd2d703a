package header

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrTypeMismatch is returned by Store.Set when reusing a tag with a
// different value type than it already holds, and by Encode when a value
// carries a type it cannot encode. It signals a programming bug in
// the caller, not a malformed package.
var ErrTypeMismatch = errors.New("header: type mismatch")

// regionTrailerLen is the fixed size of the immutable-region back
// reference record: a single 16-byte index entry encoded as Binary data.
const regionTrailerLen = 16

// Store is an ordered, single-valued map from Tag to Value — one RPM
// header or signature section's worth of tags. Iteration order follows
// insertion order unless SortCanonical reorders it.
type Store struct {
	order  []Tag
	values map[Tag]Value
	region Tag // 0 if unset
}

// NewStore returns an empty Store.
func NewStore() *Store { return &Store{values: make(map[Tag]Value)} }

// Set stores v under tag. A tag appears at most once in the store; setting it again
// with a different Type is a type mismatch, and setting it again with the
// same Type overwrites the value in place, preserving its original
// position in iteration order.
func (s *Store) Set(tag Tag, v Value) error {
	if existing, ok := s.values[tag]; ok && existing.Type != v.Type {
		return errors.Wrapf(ErrTypeMismatch, "tag %d already has type %s, not %s", tag, existing.Type, v.Type)
	}
	if _, ok := s.values[tag]; !ok {
		s.order = append(s.order, tag)
	}
	s.values[tag] = v
	return nil
}

// Get returns the value stored under tag, if any.
func (s *Store) Get(tag Tag) (Value, bool) {
	v, ok := s.values[tag]
	return v, ok
}

// Remove deletes tag from the store, if present.
func (s *Store) Remove(tag Tag) {
	if _, ok := s.values[tag]; !ok {
		return
	}
	delete(s.values, tag)
	for i, t := range s.order {
		if t == tag {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of tags in the store, excluding the immutable
// region marker.
func (s *Store) Len() int { return len(s.order) }

// Tags returns the tags currently in the store, in iteration order
// (insertion order, or the order set by the last SortCanonical).
func (s *Store) Tags() []Tag {
	out := make([]Tag, len(s.order))
	copy(out, s.order)
	return out
}

// SetImmutableRegion records tag as this store's immutable-region marker
// — a Null-typed pseudo-tag (spec.md §4.4) whose on-disk value is the
// fixed 16-byte back-reference trailer computed at encode time (§4.5
// step 3). tag is normally TagHeaderImmutable or TagHeaderSignatures.
func (s *Store) SetImmutableRegion(tag Tag) {
	s.region = tag
}

// ImmutableRegion returns the store's region tag, or 0 if none was set.
func (s *Store) ImmutableRegion() Tag { return s.region }

// SortCanonical reorders the store's iteration order to match order,
// appending any tags present in the store but absent from order at the
// end (sorted by numeric tag id), so an unknown or newly-added tag never
// gets silently dropped from output.
func (s *Store) SortCanonical(order []Tag) {
	rank := make(map[Tag]int, len(order))
	for i, t := range order {
		rank[t] = i
	}
	sorted := make([]Tag, len(s.order))
	copy(sorted, s.order)

	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		ai, aok := rank[a]
		bi, bok := rank[b]
		switch {
		case aok && bok:
			return ai < bi
		case aok && !bok:
			return true
		case !aok && bok:
			return false
		default:
			return a < b
		}
	})
	s.order = sorted
}
