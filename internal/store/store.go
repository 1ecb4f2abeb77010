// Package store holds the normalized in-memory containers the client
// renders from. Every store owns one slice or map guarded by its own
// mutex, exposes total mutations (replace, upsert, remove), and notifies
// subscribed observers after each mutation has completed. Observers run
// outside the store lock, so a slow reader never blocks a writer.
//
// Stores never talk to the network. Fetching and merging remote
// snapshots is the cache package's job.
package store

import "sync"

// observers is the callback list every store embeds. Subscribe returns a
// cancel func; notify snapshots the list under the lock and invokes the
// callbacks after releasing it.
type observers struct {
	obsMu sync.Mutex
	next  int
	subs  map[int]func()
}

// Subscribe registers fn to run after every mutation. The returned
// cancel func releases the registration and is safe to call twice.
func (o *observers) Subscribe(fn func()) (cancel func()) {
	o.obsMu.Lock()
	defer o.obsMu.Unlock()

	if o.subs == nil {
		o.subs = make(map[int]func())
	}

	id := o.next
	o.next++
	o.subs[id] = fn

	return func() {
		o.obsMu.Lock()
		defer o.obsMu.Unlock()
		delete(o.subs, id)
	}
}

func (o *observers) notify() {
	o.obsMu.Lock()
	fns := make([]func(), 0, len(o.subs))
	for _, fn := range o.subs {
		fns = append(fns, fn)
	}
	o.obsMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// List is an ordered store of entities keyed by an int64 identifier.
// Order is insertion order; upserts and replaces keep an entity's slot.
type List[T any] struct {
	observers

	mu    sync.RWMutex
	id    func(T) int64
	items []T
}

func NewList[T any](id func(T) int64) *List[T] {
	return &List[T]{id: id}
}

// Get returns a copy of the current values.
func (l *List[T]) Get() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

func (l *List[T]) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Lookup returns the entity with the given id, if present.
func (l *List[T]) Lookup(id int64) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, v := range l.items {
		if l.id(v) == id {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func (l *List[T]) ReplaceAll(items []T) {
	l.mu.Lock()
	l.items = make([]T, len(items))
	copy(l.items, items)
	l.mu.Unlock()

	l.notify()
}

// Upsert replaces the entity with a matching id in place, or appends it
// when absent.
func (l *List[T]) Upsert(v T) {
	id := l.id(v)

	l.mu.Lock()
	replaced := false
	for i := range l.items {
		if l.id(l.items[i]) == id {
			l.items[i] = v
			replaced = true
			break
		}
	}
	if !replaced {
		l.items = append(l.items, v)
	}
	l.mu.Unlock()

	l.notify()
}

// Replace swaps the entity with a matching id. A missing id is a no-op,
// never an insert.
func (l *List[T]) Replace(v T) {
	id := l.id(v)

	l.mu.Lock()
	replaced := false
	for i := range l.items {
		if l.id(l.items[i]) == id {
			l.items[i] = v
			replaced = true
			break
		}
	}
	l.mu.Unlock()

	if replaced {
		l.notify()
	}
}

func (l *List[T]) RemoveByID(id int64) {
	l.mu.Lock()
	kept := l.items[:0]
	for _, v := range l.items {
		if l.id(v) != id {
			kept = append(kept, v)
		}
	}
	removed := len(kept) != len(l.items)
	l.items = kept
	l.mu.Unlock()

	if removed {
		l.notify()
	}
}

// KeyMap is an unordered store keyed by an arbitrary comparable id.
type KeyMap[K comparable, V any] struct {
	observers

	mu    sync.RWMutex
	items map[K]V
}

func NewKeyMap[K comparable, V any]() *KeyMap[K, V] {
	return &KeyMap[K, V]{items: make(map[K]V)}
}

// Get returns a copy of the current mapping.
func (m *KeyMap[K, V]) Get() map[K]V {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[K]V, len(m.items))
	for k, v := range m.items {
		out[k] = v
	}
	return out
}

func (m *KeyMap[K, V]) Lookup(k K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.items[k]
	return v, ok
}

func (m *KeyMap[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *KeyMap[K, V]) Set(k K, v V) {
	m.mu.Lock()
	m.items[k] = v
	m.mu.Unlock()

	m.notify()
}

func (m *KeyMap[K, V]) Delete(k K) {
	m.mu.Lock()
	_, existed := m.items[k]
	delete(m.items, k)
	m.mu.Unlock()

	if existed {
		m.notify()
	}
}

// DeleteWhere removes every entry the predicate selects. Used when a
// delete event identifies the value, not the key.
func (m *KeyMap[K, V]) DeleteWhere(pred func(K, V) bool) {
	m.mu.Lock()
	removed := false
	for k, v := range m.items {
		if pred(k, v) {
			delete(m.items, k)
			removed = true
		}
	}
	m.mu.Unlock()

	if removed {
		m.notify()
	}
}

func (m *KeyMap[K, V]) ReplaceAll(items map[K]V) {
	next := make(map[K]V, len(items))
	for k, v := range items {
		next[k] = v
	}

	m.mu.Lock()
	m.items = next
	m.mu.Unlock()

	m.notify()
}

// Value is a store holding a single record replaced wholesale.
type Value[T any] struct {
	observers

	mu  sync.RWMutex
	val T
}

func NewValue[T any]() *Value[T] {
	return &Value[T]{}
}

func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.val
}

func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	v.val = val
	v.mu.Unlock()

	v.notify()
}
