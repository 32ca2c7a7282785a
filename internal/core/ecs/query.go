package ecs

// View is what a system sees of the world during its execution: queries and
// accessors limited to its declared access, a command buffer for structural
// changes, and the host resources. A View is owned by one system execution
// and is not safe for concurrent use.
type View struct {
	world     *World
	system    string
	access    Access
	commands  *CommandBuffer
	resources *Resources
	borrows   [maxComponentTypes]int32 // >0 readers, -1 writer
	open      int
}

func NewView(w *World, system string, access Access, commands *CommandBuffer, resources *Resources) *View {
	return &View{
		world:     w,
		system:    system,
		access:    access,
		commands:  commands,
		resources: resources,
	}
}

func (v *View) System() string           { return v.system }
func (v *View) Access() Access           { return v.access }
func (v *View) Commands() *CommandBuffer { return v.commands }
func (v *View) Resources() *Resources    { return v.resources }
func (v *View) Registry() *Registry      { return v.world.registry }
func (v *View) Alive(id EntityID) bool   { return v.world.Alive(id) }
func (v *View) Len() int                 { return v.world.Len() }

func (v *View) ArchetypeOf(id EntityID) (Mask, bool) {
	return v.world.ArchetypeOf(id)
}

// Open returns the number of queries still holding borrows.
func (v *View) Open() int { return v.open }

// Release drops every borrow still held, for queries abandoned without
// Close. The scheduler calls it when a system returns.
func (v *View) Release() {
	v.borrows = [maxComponentTypes]int32{}
	v.world.iterating -= v.open
	v.open = 0
}

func (v *View) conflict(t ComponentType, mode AccessMode, reason string) {
	panic(&AccessConflictError{
		System:    v.system,
		Component: v.world.registry.Name(t),
		Requested: mode,
		Reason:    reason,
	})
}

// check validates mode on t against the declaration and open borrows
// without taking a borrow.
func (v *View) check(t ComponentType, mode AccessMode) {
	if !v.access.Allows(t, mode) {
		v.conflict(t, mode, "not declared by the system")
	}
	switch {
	case v.borrows[t] < 0:
		v.conflict(t, mode, "an open query already writes it")
	case mode == Write && v.borrows[t] > 0:
		v.conflict(t, mode, "an open query already reads it")
	}
}

func (v *View) borrow(t ComponentType, mode AccessMode) {
	v.check(t, mode)
	if mode == Write {
		v.borrows[t] = -1
	} else {
		v.borrows[t]++
	}
}

func (v *View) unborrow(t ComponentType, mode AccessMode) {
	if mode == Write {
		v.borrows[t] = 0
	} else if v.borrows[t] > 0 {
		v.borrows[t]--
	}
}

// Fetch reads a single entity's component through the view's access rules.
// A missing component or stale handle is reported as absent.
//
// Fetch is an instantaneous access: it is checked against the declaration
// and the open queries, but holds no borrow afterwards. A Write fetch fails
// while any query on the type is open, and a Read fetch fails while a
// writing query is open. Use the returned pointer before opening another
// query on the same type.
func Fetch[T any](v *View, t Term[T], id EntityID) (*T, bool) {
	v.check(t.store.typ, t.mode)
	return t.store.Get(id)
}

// Term pairs a store with the access mode a query wants on it.
type Term[T any] struct {
	store *Store[T]
	mode  AccessMode
}

// Read requests shared access to s in a query.
func (s *Store[T]) Read() Term[T] { return Term[T]{store: s, mode: Read} }

// Write requests exclusive access to s in a query.
func (s *Store[T]) Write() Term[T] { return Term[T]{store: s, mode: Write} }

func (t Term[T]) bind() binding {
	return binding{typ: t.store.typ, mode: t.mode, ids: t.store.entities}
}

type binding struct {
	typ  ComponentType
	mode AccessMode
	ids  []EntityID
}

// cursor walks the dense entity column of the smallest requested store.
// No structural change can happen while it is open, so the column it holds
// is the entity set for the whole pass.
type cursor struct {
	view     *View
	held     []binding
	entities []EntityID
	pos      int
	closed   bool
	current  EntityID
}

func (c *cursor) open(v *View, bs ...binding) {
	c.view = v
	for i, b := range bs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					for _, h := range bs[:i] {
						v.unborrow(h.typ, h.mode)
					}
					panic(r)
				}
			}()
			v.borrow(b.typ, b.mode)
		}()
	}
	c.held = bs
	v.open++
	v.world.iterating++
	c.entities = bs[0].ids
	for _, b := range bs[1:] {
		if len(b.ids) < len(c.entities) {
			c.entities = b.ids
		}
	}
}

func (c *cursor) step() bool {
	if c.closed {
		return false
	}
	if c.pos >= len(c.entities) {
		c.Close()
		return false
	}
	c.current = c.entities[c.pos]
	c.pos++
	return true
}

// Entity returns the entity the last successful Next stopped on.
func (c *cursor) Entity() EntityID { return c.current }

// Close releases the query's borrows. Exhausting the query closes it; call
// Close when breaking out early. Closing twice is a no-op.
func (c *cursor) Close() {
	if c.closed {
		return
	}
	c.closed = true
	c.current = Null
	for _, b := range c.held {
		c.view.unborrow(b.typ, b.mode)
	}
	if c.view.open > 0 {
		c.view.open--
		c.view.world.iterating--
	}
}

// Query1 iterates entities that have component A. It is forward-only and
// cannot be restarted; open a new query for another pass.
type Query1[A any] struct {
	cursor
	a  *Store[A]
	ca *A
}

func NewQuery1[A any](v *View, a Term[A]) *Query1[A] {
	q := &Query1[A]{a: a.store}
	q.open(v, a.bind())
	return q
}

func (q *Query1[A]) Next() bool {
	for q.step() {
		if ca, ok := q.a.Get(q.current); ok {
			q.ca = ca
			return true
		}
	}
	q.ca = nil
	return false
}

func (q *Query1[A]) Get() *A { return q.ca }

// Each drains the query, calling fn for every match.
func (q *Query1[A]) Each(fn func(EntityID, *A)) {
	for q.Next() {
		fn(q.current, q.ca)
	}
}

// Query2 iterates entities that have both component A and B.
// It iterates over the smaller store and checks the larger one.
type Query2[A, B any] struct {
	cursor
	a  *Store[A]
	b  *Store[B]
	ca *A
	cb *B
}

func NewQuery2[A, B any](v *View, a Term[A], b Term[B]) *Query2[A, B] {
	q := &Query2[A, B]{a: a.store, b: b.store}
	q.open(v, a.bind(), b.bind())
	return q
}

func (q *Query2[A, B]) Next() bool {
	for q.step() {
		ca, okA := q.a.Get(q.current)
		cb, okB := q.b.Get(q.current)
		if okA && okB {
			q.ca, q.cb = ca, cb
			return true
		}
	}
	q.ca, q.cb = nil, nil
	return false
}

func (q *Query2[A, B]) Get() (*A, *B) { return q.ca, q.cb }

func (q *Query2[A, B]) Each(fn func(EntityID, *A, *B)) {
	for q.Next() {
		fn(q.current, q.ca, q.cb)
	}
}

// Query3 iterates entities that have components A, B, and C.
type Query3[A, B, C any] struct {
	cursor
	a  *Store[A]
	b  *Store[B]
	c  *Store[C]
	ca *A
	cb *B
	cc *C
}

func NewQuery3[A, B, C any](v *View, a Term[A], b Term[B], c Term[C]) *Query3[A, B, C] {
	q := &Query3[A, B, C]{a: a.store, b: b.store, c: c.store}
	q.open(v, a.bind(), b.bind(), c.bind())
	return q
}

func (q *Query3[A, B, C]) Next() bool {
	for q.step() {
		ca, okA := q.a.Get(q.current)
		if !okA {
			continue
		}
		cb, okB := q.b.Get(q.current)
		if !okB {
			continue
		}
		cc, okC := q.c.Get(q.current)
		if !okC {
			continue
		}
		q.ca, q.cb, q.cc = ca, cb, cc
		return true
	}
	q.ca, q.cb, q.cc = nil, nil, nil
	return false
}

func (q *Query3[A, B, C]) Get() (*A, *B, *C) { return q.ca, q.cb, q.cc }

func (q *Query3[A, B, C]) Each(fn func(EntityID, *A, *B, *C)) {
	for q.Next() {
		fn(q.current, q.ca, q.cb, q.cc)
	}
}
