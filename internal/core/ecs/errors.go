package ecs

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrStaleEntity is returned for writes through a handle whose slot was
	// despawned (and possibly reused).
	ErrStaleEntity = errors.New("ecs: stale entity")
	// ErrMissingComponent is returned for writes that expect the entity to
	// already carry the component.
	ErrMissingComponent = errors.New("ecs: missing component")
	// ErrEntityNotAlive is returned when attaching components to an entity
	// that is not alive.
	ErrEntityNotAlive = errors.New("ecs: entity not alive")
	// ErrWorldBusy marks a structural change attempted while a schedule is
	// executing, or a nested Execute.
	ErrWorldBusy = errors.New("ecs: world is executing a tick")
	// ErrUnknownComponent is returned when a component type is used before it
	// is registered.
	ErrUnknownComponent = errors.New("ecs: unknown component type")
)

// AccessConflictError describes a query that violates the one-writer /
// many-readers rule, or that touches a type outside the system's declared
// access. It is raised as a panic and is fatal to the tick.
type AccessConflictError struct {
	System    string
	Component string
	Requested AccessMode
	Reason    string
}

func (e *AccessConflictError) Error() string {
	var b strings.Builder
	b.WriteString("ecs: access conflict")
	if e.System != "" {
		fmt.Fprintf(&b, " in system %q", e.System)
	}
	fmt.Fprintf(&b, ": %s access to %s: %s", e.Requested, e.Component, e.Reason)
	return b.String()
}
