package ecs

// Resources holds host-owned singleton values handed to every system of a
// schedule (clock, tuning, handles to external collaborators). Values are
// keyed by their Go type.
type Resources struct {
	items map[any]any
}

func NewResources() *Resources {
	return &Resources{items: make(map[any]any, 8)}
}

// SetResource stores v, replacing any previous value of type T.
func SetResource[T any](r *Resources, v T) {
	r.items[typeKey[T]{}] = v
}

// GetResource returns the value of type T. A nil Resources reads as empty.
func GetResource[T any](r *Resources) (T, bool) {
	var zero T
	if r == nil {
		return zero, false
	}
	v, ok := r.items[typeKey[T]{}]
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// RemoveResource deletes the value of type T.
func RemoveResource[T any](r *Resources) {
	delete(r.items, typeKey[T]{})
}

// Len returns the number of stored resources.
func (r *Resources) Len() int {
	if r == nil {
		return 0
	}
	return len(r.items)
}
