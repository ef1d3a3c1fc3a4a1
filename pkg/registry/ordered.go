package registry

// orderedMap is a map that remembers insertion order. Keys and values live
// behind one abstraction so the key order and the lookup table can't drift.
type orderedMap[K comparable, V any] struct {
	keys   []K
	values map[K]V
}

func newOrderedMap[K comparable, V any]() *orderedMap[K, V] {
	return &orderedMap[K, V]{values: make(map[K]V)}
}

func (m *orderedMap[K, V]) Len() int {
	return len(m.keys)
}

func (m *orderedMap[K, V]) Has(k K) bool {
	_, ok := m.values[k]
	return ok
}

func (m *orderedMap[K, V]) Get(k K) (V, bool) {
	v, ok := m.values[k]
	return v, ok
}

// Set appends k, or replaces its value in place if present.
func (m *orderedMap[K, V]) Set(k K, v V) {
	if _, ok := m.values[k]; !ok {
		m.keys = append(m.keys, k)
	}
	m.values[k] = v
}

// Insert places a new key at position i. Existing keys are left alone.
func (m *orderedMap[K, V]) Insert(i int, k K, v V) {
	if m.Has(k) {
		return
	}
	if i < 0 {
		i = 0
	}
	if i > len(m.keys) {
		i = len(m.keys)
	}
	m.keys = append(m.keys, k)
	copy(m.keys[i+1:], m.keys[i:])
	m.keys[i] = k
	m.values[k] = v
}

// At returns the entry at position i; the caller checks bounds.
func (m *orderedMap[K, V]) At(i int) (K, V) {
	k := m.keys[i]
	return k, m.values[k]
}

// Delete removes k and returns its former position, or -1.
func (m *orderedMap[K, V]) Delete(k K) int {
	if !m.Has(k) {
		return -1
	}
	delete(m.values, k)
	for i, key := range m.keys {
		if key == k {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			return i
		}
	}
	return -1
}

func (m *orderedMap[K, V]) Keys() []K {
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *orderedMap[K, V]) Values() []V {
	out := make([]V, 0, len(m.keys))
	for _, k := range m.keys {
		out = append(out, m.values[k])
	}
	return out
}
