package tree

import "regtree/internal/domain"

// KeySet is treated as immutable: With and Without return new sets.
type KeySet map[domain.Key]struct{}

func NewKeySet(keys ...domain.Key) KeySet {
	set := make(KeySet, len(keys))
	for _, key := range keys {
		set[key] = struct{}{}
	}
	return set
}

func (set KeySet) Has(key domain.Key) bool {
	_, ok := set[key]
	return ok
}

func (set KeySet) With(key domain.Key) KeySet {
	if set.Has(key) {
		return set
	}
	next := make(KeySet, len(set)+1)
	for existing := range set {
		next[existing] = struct{}{}
	}
	next[key] = struct{}{}
	return next
}

func (set KeySet) Without(keys ...domain.Key) KeySet {
	found := false
	for _, key := range keys {
		if set.Has(key) {
			found = true
			break
		}
	}
	if !found {
		return set
	}
	next := make(KeySet, len(set))
	for existing := range set {
		next[existing] = struct{}{}
	}
	for _, key := range keys {
		delete(next, key)
	}
	return next
}

func (set KeySet) Keys() []domain.Key {
	keys := make([]domain.Key, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	return keys
}
