package inferguard

import "container/list"

// boundedMap is an insertion-ordered map with a fixed capacity. Inserting
// a new key at capacity evicts the oldest-inserted key first. Updating an
// existing key does not refresh its position: eviction order is strictly
// by first insertion, not by last access.
//
// Not safe for concurrent use; callers hold their own lock.
type boundedMap[V any] struct {
	capacity int
	entries  map[string]*list.Element
	order    *list.List // front = oldest inserted
}

type boundedEntry[V any] struct {
	key   string
	value V
}

func newBoundedMap[V any](capacity int) *boundedMap[V] {
	if capacity < 1 {
		capacity = 1
	}
	return &boundedMap[V]{
		capacity: capacity,
		entries:  make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

func (m *boundedMap[V]) get(key string) (V, bool) {
	el, ok := m.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return el.Value.(*boundedEntry[V]).value, true
}

// set stores value under key, evicting the oldest entry first when a new
// key would exceed capacity. Returns the evicted key, if any.
func (m *boundedMap[V]) set(key string, value V) (evicted string, didEvict bool) {
	if el, ok := m.entries[key]; ok {
		el.Value.(*boundedEntry[V]).value = value
		return "", false
	}

	if m.order.Len() >= m.capacity {
		oldest := m.order.Front()
		entry := oldest.Value.(*boundedEntry[V])
		m.order.Remove(oldest)
		delete(m.entries, entry.key)
		evicted, didEvict = entry.key, true
	}

	m.entries[key] = m.order.PushBack(&boundedEntry[V]{key: key, value: value})
	return evicted, didEvict
}

func (m *boundedMap[V]) len() int { return m.order.Len() }
