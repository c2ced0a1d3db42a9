package decoder

// SymbolSet is the ordered cache of keys currently in a symbol list.
type SymbolSet struct {
	keys []string
}

func NewSymbolSet() *SymbolSet {
	return &SymbolSet{}
}

// Add appends key. Duplicates are kept, as the feed sent them.
func (s *SymbolSet) Add(key string) {
	s.keys = append(s.keys, key)
}

// Remove drops every occurrence of key and reports whether any was present.
func (s *SymbolSet) Remove(key string) bool {
	kept := s.keys[:0]
	removed := false
	for _, k := range s.keys {
		if k == key {
			removed = true
			continue
		}
		kept = append(kept, k)
	}
	s.keys = kept
	return removed
}

func (s *SymbolSet) Reset() {
	s.keys = nil
}

func (s *SymbolSet) Len() int {
	return len(s.keys)
}

// Snapshot returns a copy of the keys in order.
func (s *SymbolSet) Snapshot() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}
