package dedupe

// KeySet is a request-scoped set of normalized identity keys. It is not safe
// for concurrent use. Empty keys are ignored.
type KeySet map[string]struct{}

// NewKeySet returns a set seeded with keys.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

// Add records k.
func (s KeySet) Add(k string) {
	if k != "" {
		s[k] = struct{}{}
	}
}

// Has reports whether k was recorded.
func (s KeySet) Has(k string) bool {
	if k == "" {
		return false
	}
	_, ok := s[k]
	return ok
}
