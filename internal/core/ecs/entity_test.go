package ecs_test

import (
	"testing"

	"github.com/robotcards/meadow/internal/core/ecs"
)

func TestEntityIDPacking(t *testing.T) {
	id := ecs.NewEntityID(7, 3)
	if id.Index() != 7 || id.Generation() != 3 {
		t.Fatalf("got index %d gen %d, want 7 / 3", id.Index(), id.Generation())
	}
	if id.IsZero() {
		t.Error("non-zero id reported zero")
	}
	if !ecs.Null.IsZero() {
		t.Error("Null should be zero")
	}
	if got := id.String(); got != "7:3" {
		t.Errorf("String() = %q, want 7:3", got)
	}
}

func TestEntityPoolCreateDestroy(t *testing.T) {
	p := ecs.NewEntityPool()
	a := p.Create()
	b := p.Create()

	if a == b {
		t.Fatal("two creates returned the same handle")
	}
	if a.IsZero() {
		t.Fatal("first entity must not be the Null handle")
	}
	if !p.Alive(a) || !p.Alive(b) {
		t.Fatal("fresh entities should be alive")
	}
	if p.Len() != 2 {
		t.Errorf("Len() = %d, want 2", p.Len())
	}

	if !p.Destroy(a) {
		t.Fatal("destroying a live entity should succeed")
	}
	if p.Destroy(a) {
		t.Error("destroying twice should report already dead")
	}
	if p.Alive(a) {
		t.Error("destroyed entity still alive")
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}
}

func TestEntityPoolStaleHandleAfterReuse(t *testing.T) {
	p := ecs.NewEntityPool()
	old := p.Create()
	p.Destroy(old)

	reused := p.Create()
	if reused.Index() != old.Index() {
		t.Fatalf("expected slot %d to be recycled, got %d", old.Index(), reused.Index())
	}
	if reused.Generation() == old.Generation() {
		t.Fatal("recycled slot kept its generation")
	}
	if p.Alive(old) {
		t.Error("stale handle resolves to the reused slot")
	}
	if !p.Alive(reused) {
		t.Error("new handle should be alive")
	}
	if p.Destroy(old) {
		t.Error("stale handle destroyed the new occupant")
	}
	if !p.Alive(reused) {
		t.Error("new occupant killed through a stale handle")
	}
}

func TestEntityPoolReserve(t *testing.T) {
	p := ecs.NewEntityPool()
	id := p.Reserve()
	if p.Alive(id) {
		t.Fatal("reserved handle must not be alive")
	}
	if p.Len() != 0 {
		t.Errorf("Len() = %d, want 0 while only reserved", p.Len())
	}
	if !p.Activate(id) {
		t.Fatal("Activate failed")
	}
	if p.Activate(id) {
		t.Error("second Activate should fail")
	}
	if !p.Alive(id) {
		t.Error("activated handle should be alive")
	}

	r := p.Reserve()
	p.Release(r)
	if p.Activate(r) {
		t.Error("released reservation must not activate")
	}
	next := p.Create()
	if next.Index() != r.Index() || next == r {
		t.Errorf("released slot should be reused with a new generation, got %s after %s", next, r)
	}
}

func TestEntityPoolEach(t *testing.T) {
	p := ecs.NewEntityPool()
	a := p.Create()
	b := p.Create()
	c := p.Create()
	p.Destroy(b)
	p.Reserve()

	var seen []ecs.EntityID
	p.Each(func(id ecs.EntityID) { seen = append(seen, id) })
	if len(seen) != 2 || seen[0] != a || seen[1] != c {
		t.Errorf("Each visited %v, want [%s %s]", seen, a, c)
	}
}
