package store

// cloner is satisfied by every model: Clone returns a copy sharing no
// mutable state with the receiver.
type cloner[T any] interface {
	Clone() T
}

// table holds one entity type: rows by id, insertion order and the id counter.
type table[T cloner[T]] struct {
	next  int64
	order []int64
	rows  map[int64]T
}

func newTable[T cloner[T]]() *table[T] {
	return &table[T]{rows: make(map[int64]T)}
}

// nextID reserves the next identifier. Ids are never reused.
func (t *table[T]) nextID() int64 {
	t.next++
	return t.next
}

func (t *table[T]) get(id int64) (T, bool) {
	v, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, false
	}
	return v.Clone(), true
}

func (t *table[T]) has(id int64) bool {
	_, ok := t.rows[id]
	return ok
}

func (t *table[T]) put(id int64, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v.Clone()
}

// remove deletes id and reports whether it existed.
func (t *table[T]) remove(id int64) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// list returns copies in insertion order, filtered by keep when non-nil.
func (t *table[T]) list(keep func(T) bool) []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		v := t.rows[id]
		if keep != nil && !keep(v) {
			continue
		}
		out = append(out, v.Clone())
	}
	return out
}

func (t *table[T]) len() int { return len(t.rows) }

func (t *table[T]) clone() *table[T] {
	c := &table[T]{
		next:  t.next,
		order: append([]int64(nil), t.order...),
		rows:  make(map[int64]T, len(t.rows)),
	}
	for id, v := range t.rows {
		c.rows[id] = v.Clone()
	}
	return c
}
