package cache

// boundedMap is an insertion ordered map that drops its oldest entries once
// it holds more than max of them. Updating an existing key keeps its place.
// It is not safe for concurrent use; ReactionCache guards it.
type boundedMap[K comparable, V any] struct {
	max    int
	values map[K]V
	order  []K
}

func newBoundedMap[K comparable, V any](max int) *boundedMap[K, V] {
	return &boundedMap[K, V]{
		max:    max,
		values: make(map[K]V),
	}
}

func (m *boundedMap[K, V]) get(key K) (V, bool) {
	value, ok := m.values[key]
	return value, ok
}

func (m *boundedMap[K, V]) set(key K, value V) {
	if _, exists := m.values[key]; !exists {
		m.order = append(m.order, key)
	}
	m.values[key] = value

	for len(m.order) > m.max {
		oldest := m.order[0]
		m.order = m.order[1:]
		delete(m.values, oldest)
	}
}

// insert adds the key only if it is missing and reports whether it did
func (m *boundedMap[K, V]) insert(key K, value V) bool {
	if _, exists := m.values[key]; exists {
		return false
	}
	m.set(key, value)
	return true
}

func (m *boundedMap[K, V]) remove(key K) {
	if _, exists := m.values[key]; !exists {
		return
	}
	delete(m.values, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

func (m *boundedMap[K, V]) len() int {
	return len(m.order)
}

// each visits entries oldest first
func (m *boundedMap[K, V]) each(fn func(key K, value V)) {
	for _, key := range m.order {
		fn(key, m.values[key])
	}
}
