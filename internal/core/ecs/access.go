package ecs

// AccessMode is how a query touches a component type.
type AccessMode uint8

const (
	Read AccessMode = iota
	Write
)

func (m AccessMode) String() string {
	if m == Write {
		return "write"
	}
	return "read"
}

// Access is the set of component types a system declares it reads and
// writes. Write implies read.
type Access struct {
	reads  Mask
	writes Mask
}

func NewAccess() Access { return Access{} }

// Reading returns a copy of a that also reads the given types.
func (a Access) Reading(types ...ComponentType) Access {
	for _, t := range types {
		a.reads = a.reads.With(t)
	}
	return a
}

// Writing returns a copy of a that also writes the given types.
func (a Access) Writing(types ...ComponentType) Access {
	for _, t := range types {
		a.writes = a.writes.With(t)
	}
	return a
}

// Reads returns every type the access may read, including written types.
func (a Access) Reads() Mask { return a.reads.Or(a.writes) }

func (a Access) Writes() Mask { return a.writes }

// All returns every type named by the access.
func (a Access) All() Mask { return a.reads.Or(a.writes) }

// Allows reports whether the declared access permits mode on t.
func (a Access) Allows(t ComponentType, mode AccessMode) bool {
	if mode == Write {
		return a.writes.Has(t)
	}
	return a.Reads().Has(t)
}

// Compatible reports whether two systems could run without synchronization:
// neither may write a type the other touches.
func (a Access) Compatible(b Access) bool {
	return !a.writes.Intersects(b.All()) && !b.writes.Intersects(a.All())
}
