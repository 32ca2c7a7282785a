package ecs_test

import (
	"errors"
	"testing"

	"github.com/robotcards/meadow/internal/core/ecs"
)

func expectConflict(t *testing.T, fn func()) *ecs.AccessConflictError {
	t.Helper()
	var got *ecs.AccessConflictError
	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			err, ok := r.(error)
			if !ok || !errors.As(err, &got) {
				panic(r)
			}
		}()
		fn()
	}()
	if got == nil {
		t.Fatal("expected an access conflict")
	}
	return got
}

func TestQuery1YieldsExactlyTheMatchingEntities(t *testing.T) {
	f := newFixture(t)
	want := map[ecs.EntityID]bool{}
	for i := 0; i < 10; i++ {
		want[f.w.Spawn(f.gro.With(Growth{Height: 1}), f.pos.With(Position{X: float64(i)}))] = true
	}
	for i := 0; i < 4; i++ {
		f.w.Spawn(f.pos.With(Position{}))
	}
	gone := f.w.Spawn(f.gro.With(Growth{}))
	f.w.Despawn(gone)

	v := ecs.NewView(f.w, "test", ecs.NewAccess().Reading(f.gro.Type()), nil, nil)
	q := ecs.NewQuery1(v, f.gro.Read())
	seen := map[ecs.EntityID]int{}
	for q.Next() {
		seen[q.Entity()]++
		if q.Get() == nil {
			t.Fatal("Get returned nil during iteration")
		}
	}
	if len(seen) != len(want) {
		t.Fatalf("query yielded %d entities, want %d", len(seen), len(want))
	}
	for id, n := range seen {
		if !want[id] {
			t.Errorf("query yielded %s which lacks the component", id)
		}
		if n != 1 {
			t.Errorf("entity %s yielded %d times", id, n)
		}
	}
}

func TestQueryIsNotRestartable(t *testing.T) {
	f := newFixture(t)
	f.w.Spawn(f.gro.With(Growth{}))
	v := ecs.NewView(f.w, "test", ecs.NewAccess().Reading(f.gro.Type()), nil, nil)

	q := ecs.NewQuery1(v, f.gro.Read())
	n := 0
	for q.Next() {
		n++
	}
	if n != 1 {
		t.Fatalf("first pass yielded %d, want 1", n)
	}
	if q.Next() {
		t.Error("exhausted query yielded again")
	}
	if v.Open() != 0 {
		t.Errorf("exhausted query still holds borrows (open=%d)", v.Open())
	}
}

func TestQuery2And3MatchIntersection(t *testing.T) {
	f := newFixture(t)
	both := f.w.Spawn(f.pos.With(Position{X: 1}), f.gro.With(Growth{Height: 2}))
	all := f.w.Spawn(f.pos.With(Position{X: 3}), f.gro.With(Growth{Height: 4}), f.act.With(Actor{Radius: 1}))
	for i := 0; i < 5; i++ {
		f.w.Spawn(f.pos.With(Position{}))
	}
	f.w.Spawn(f.act.With(Actor{}))

	access := ecs.NewAccess().Reading(f.pos.Type(), f.act.Type()).Writing(f.gro.Type())
	v := ecs.NewView(f.w, "test", access, nil, nil)

	q2 := ecs.NewQuery2(v, f.pos.Read(), f.gro.Write())
	got := map[ecs.EntityID]bool{}
	q2.Each(func(id ecs.EntityID, p *Position, g *Growth) {
		got[id] = true
		g.Height += p.X
	})
	if len(got) != 2 || !got[both] || !got[all] {
		t.Errorf("Query2 yielded %v, want %s and %s", got, both, all)
	}
	if g, _ := f.gro.Get(both); g.Height != 3 {
		t.Errorf("write through Query2 lost: height %v, want 3", g.Height)
	}

	q3 := ecs.NewQuery3(v, f.pos.Read(), f.gro.Read(), f.act.Read())
	n := 0
	for q3.Next() {
		p, g, a := q3.Get()
		if q3.Entity() != all || p.X != 3 || g.Height != 7 || a.Radius != 1 {
			t.Errorf("Query3 yielded %s %+v %+v %+v", q3.Entity(), *p, *g, *a)
		}
		n++
	}
	if n != 1 {
		t.Errorf("Query3 yielded %d entities, want 1", n)
	}
}

func TestQueryReadersShare(t *testing.T) {
	f := newFixture(t)
	f.w.Spawn(f.gro.With(Growth{}))
	v := ecs.NewView(f.w, "readers", ecs.NewAccess().Reading(f.gro.Type()), nil, nil)

	a := ecs.NewQuery1(v, f.gro.Read())
	b := ecs.NewQuery1(v, f.gro.Read())
	if v.Open() != 2 {
		t.Fatalf("Open() = %d, want 2", v.Open())
	}
	for a.Next() {
		for b.Next() {
		}
	}
	if v.Open() != 0 {
		t.Errorf("Open() = %d after draining, want 0", v.Open())
	}
}

func TestQueryWriterExcludesOthers(t *testing.T) {
	f := newFixture(t)
	f.w.Spawn(f.gro.With(Growth{}))
	v := ecs.NewView(f.w, "writer", ecs.NewAccess().Writing(f.gro.Type()), nil, nil)

	w := ecs.NewQuery1(v, f.gro.Write())
	c := expectConflict(t, func() { ecs.NewQuery1(v, f.gro.Read()) })
	if c.System != "writer" || c.Component != "growth" || c.Requested != ecs.Read {
		t.Errorf("unexpected conflict details: %+v", c)
	}
	expectConflict(t, func() { ecs.NewQuery1(v, f.gro.Write()) })
	expectConflict(t, func() { ecs.Fetch(v, f.gro.Read(), ecs.Null) })

	w.Close()
	w.Close() // idempotent
	again := ecs.NewQuery1(v, f.gro.Write())
	again.Close()
}

func TestQueryReaderBlocksWriter(t *testing.T) {
	f := newFixture(t)
	v := ecs.NewView(f.w, "mixed", ecs.NewAccess().Writing(f.gro.Type()), nil, nil)
	r := ecs.NewQuery1(v, f.gro.Read())
	expectConflict(t, func() { ecs.NewQuery1(v, f.gro.Write()) })
	r.Close()
}

func TestQueryConflictReleasesPartialBorrows(t *testing.T) {
	f := newFixture(t)
	v := ecs.NewView(f.w, "self", ecs.NewAccess().Writing(f.gro.Type()).Reading(f.pos.Type()), nil, nil)

	// Same type twice in one query: the second term conflicts with the first.
	expectConflict(t, func() { ecs.NewQuery2(v, f.gro.Write(), f.gro.Read()) })
	if v.Open() != 0 {
		t.Errorf("failed query left Open() = %d", v.Open())
	}
	q := ecs.NewQuery2(v, f.pos.Read(), f.gro.Write())
	q.Close()
}

func TestQueryRespectsDeclaredAccess(t *testing.T) {
	f := newFixture(t)
	v := ecs.NewView(f.w, "reader", ecs.NewAccess().Reading(f.gro.Type()), nil, nil)

	c := expectConflict(t, func() { ecs.NewQuery1(v, f.gro.Write()) })
	if c.Requested != ecs.Write {
		t.Errorf("Requested = %v, want write", c.Requested)
	}
	expectConflict(t, func() { ecs.NewQuery1(v, f.pos.Read()) })
}

func TestFetch(t *testing.T) {
	f := newFixture(t)
	e := f.w.Spawn(f.gro.With(Growth{Height: 2}))
	bare := f.w.Spawn()
	v := ecs.NewView(f.w, "fetch", ecs.NewAccess().Reading(f.gro.Type()), nil, nil)

	if g, ok := ecs.Fetch(v, f.gro.Read(), e); !ok || g.Height != 2 {
		t.Error("Fetch missed a present component")
	}
	if _, ok := ecs.Fetch(v, f.gro.Read(), bare); ok {
		t.Error("Fetch of a missing component should be absent")
	}
}

func TestFetchWriteExcludedByOpenReader(t *testing.T) {
	f := newFixture(t)
	e := f.w.Spawn(f.gro.With(Growth{Height: 2}))
	v := ecs.NewView(f.w, "fetcher", ecs.NewAccess().Writing(f.gro.Type()), nil, nil)

	r := ecs.NewQuery1(v, f.gro.Read())
	c := expectConflict(t, func() { ecs.Fetch(v, f.gro.Write(), e) })
	if c.Requested != ecs.Write {
		t.Errorf("Requested = %v, want write", c.Requested)
	}
	if g, ok := ecs.Fetch(v, f.gro.Read(), e); !ok || g.Height != 2 {
		t.Error("Read fetch should share with an open reader")
	}
	r.Close()

	g, ok := ecs.Fetch(v, f.gro.Write(), e)
	if !ok {
		t.Fatal("Write fetch failed with no open query")
	}
	g.Height = 3
	if v.Open() != 0 {
		t.Errorf("Fetch left a borrow behind (open=%d)", v.Open())
	}
	w := ecs.NewQuery1(v, f.gro.Write())
	w.Close()
}

func TestOpenQueryFreezesStructure(t *testing.T) {
	f := newFixture(t)
	e := f.w.Spawn(f.gro.With(Growth{}))
	v := ecs.NewView(f.w, "frozen", ecs.NewAccess().Reading(f.gro.Type()), nil, nil)

	q := ecs.NewQuery1(v, f.gro.Read())
	expectPanic(t, ecs.ErrWorldBusy, func() { f.w.Despawn(e) })
	expectPanic(t, ecs.ErrWorldBusy, func() { f.w.Spawn(f.gro.With(Growth{})) })

	cb := ecs.NewCommandBuffer(f.w)
	cb.Despawn(e)
	expectPanic(t, ecs.ErrWorldBusy, func() { cb.Flush() })

	q.Close()
	if st := cb.Flush(); st.Despawned != 1 {
		t.Errorf("flush after close: %+v", st)
	}
}

func TestViewReleaseDropsAbandonedQueries(t *testing.T) {
	f := newFixture(t)
	f.w.Spawn(f.gro.With(Growth{}))
	v := ecs.NewView(f.w, "leaky", ecs.NewAccess().Writing(f.gro.Type()), nil, nil)

	q := ecs.NewQuery1(v, f.gro.Write())
	q.Next() // abandoned mid-iteration
	v.Release()

	if v.Open() != 0 {
		t.Errorf("Open() = %d after Release", v.Open())
	}
	f.w.Spawn() // world must accept structural changes again
}

func TestAccessCompatible(t *testing.T) {
	f := newFixture(t)
	readGrowth := ecs.NewAccess().Reading(f.gro.Type())
	writeGrowth := ecs.NewAccess().Writing(f.gro.Type())
	writePos := ecs.NewAccess().Writing(f.pos.Type())

	cases := []struct {
		name string
		a, b ecs.Access
		want bool
	}{
		{"two readers", readGrowth, readGrowth, true},
		{"reader and writer", readGrowth, writeGrowth, false},
		{"two writers", writeGrowth, writeGrowth, false},
		{"disjoint writers", writeGrowth, writePos, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Compatible(tc.b); got != tc.want {
				t.Errorf("Compatible = %v, want %v", got, tc.want)
			}
			if got := tc.b.Compatible(tc.a); got != tc.want {
				t.Errorf("reverse Compatible = %v, want %v", got, tc.want)
			}
		})
	}
	if !writeGrowth.Allows(f.gro.Type(), ecs.Read) {
		t.Error("write access should imply read")
	}
}
