package util

// Set holds distinct comparable values
type Set[K comparable] map[K]struct{}

// SetOf builds a set from the given values
func SetOf[K comparable](values ...K) Set[K] {
	res := make(Set[K], len(values))
	for _, v := range values {
		res.Add(v)
	}
	return res
}

// Add inserts a value
func (s Set[K]) Add(v K) {
	s[v] = struct{}{}
}

// Remove deletes a value if present
func (s Set[K]) Remove(v K) {
	delete(s, v)
}

// Contains reports whether the value is in the set
func (s Set[K]) Contains(v K) bool {
	_, ok := s[v]
	return ok
}

// Len returns the number of values in the set
func (s Set[K]) Len() int {
	return len(s)
}
