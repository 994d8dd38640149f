package scheduler

import "sort"

// SlotKey identifies a recurring slot occurrence on a date.
type SlotKey struct {
	Date   Date
	SlotID string
}

// Target converts the key into a capacity target.
func (k SlotKey) Target() Target {
	return SlotTarget(k.Date, k.SlotID)
}

// SlotSet is an immutable set of slot keys. Every operation returns a new set.
type SlotSet struct {
	items map[SlotKey]struct{}
}

// NewSlotSet builds a set from keys, ignoring duplicates.
func NewSlotSet(keys ...SlotKey) SlotSet {
	items := make(map[SlotKey]struct{}, len(keys))
	for _, key := range keys {
		items[key] = struct{}{}
	}
	return SlotSet{items: items}
}

// Len returns the number of keys.
func (s SlotSet) Len() int { return len(s.items) }

// Has reports membership.
func (s SlotSet) Has(key SlotKey) bool {
	_, ok := s.items[key]
	return ok
}

func (s SlotSet) clone(extra int) map[SlotKey]struct{} {
	items := make(map[SlotKey]struct{}, len(s.items)+extra)
	for key := range s.items {
		items[key] = struct{}{}
	}
	return items
}

// With returns a set that also contains key.
func (s SlotSet) With(key SlotKey) SlotSet {
	items := s.clone(1)
	items[key] = struct{}{}
	return SlotSet{items: items}
}

// Without returns a set that does not contain key.
func (s SlotSet) Without(key SlotKey) SlotSet {
	items := s.clone(0)
	delete(items, key)
	return SlotSet{items: items}
}

// Union returns the keys present in either set.
func (s SlotSet) Union(other SlotSet) SlotSet {
	items := s.clone(other.Len())
	for key := range other.items {
		items[key] = struct{}{}
	}
	return SlotSet{items: items}
}

// Minus returns the keys of s that are not in other.
func (s SlotSet) Minus(other SlotSet) SlotSet {
	items := make(map[SlotKey]struct{})
	for key := range s.items {
		if !other.Has(key) {
			items[key] = struct{}{}
		}
	}
	return SlotSet{items: items}
}

// Equal reports whether both sets contain the same keys.
func (s SlotSet) Equal(other SlotSet) bool {
	return s.Len() == other.Len() && s.Minus(other).Len() == 0
}

// Keys returns the keys ordered by date and slot id.
func (s SlotSet) Keys() []SlotKey {
	keys := make([]SlotKey, 0, len(s.items))
	for key := range s.items {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Date != keys[j].Date {
			return keys[i].Date.Before(keys[j].Date)
		}
		return keys[i].SlotID < keys[j].SlotID
	})
	return keys
}

// ExtraSet is an immutable set of extra event ids.
type ExtraSet struct {
	items map[string]struct{}
}

// NewExtraSet builds a set from ids, ignoring duplicates.
func NewExtraSet(ids ...string) ExtraSet {
	items := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		items[id] = struct{}{}
	}
	return ExtraSet{items: items}
}

func (s ExtraSet) Len() int { return len(s.items) }

func (s ExtraSet) Has(id string) bool {
	_, ok := s.items[id]
	return ok
}

func (s ExtraSet) clone(extra int) map[string]struct{} {
	items := make(map[string]struct{}, len(s.items)+extra)
	for id := range s.items {
		items[id] = struct{}{}
	}
	return items
}

func (s ExtraSet) With(id string) ExtraSet {
	items := s.clone(1)
	items[id] = struct{}{}
	return ExtraSet{items: items}
}

func (s ExtraSet) Without(id string) ExtraSet {
	items := s.clone(0)
	delete(items, id)
	return ExtraSet{items: items}
}

func (s ExtraSet) Minus(other ExtraSet) ExtraSet {
	items := make(map[string]struct{})
	for id := range s.items {
		if !other.Has(id) {
			items[id] = struct{}{}
		}
	}
	return ExtraSet{items: items}
}

func (s ExtraSet) Equal(other ExtraSet) bool {
	return s.Len() == other.Len() && s.Minus(other).Len() == 0
}

// IDs returns the ids in lexical order.
func (s ExtraSet) IDs() []string {
	ids := make([]string, 0, len(s.items))
	for id := range s.items {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
