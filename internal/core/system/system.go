package system

import (
	"fmt"
	"time"

	"github.com/robotcards/meadow/internal/core/ecs"
)

// Phase defines execution ordering within a single tick. Systems run in
// phase order, and in registration order within a phase.
type Phase int

const (
	PhaseInput      Phase = iota // 0: apply host input to the world
	PhasePreUpdate               // 1: prepare per-tick state
	PhaseUpdate                  // 2: simulation logic
	PhasePostUpdate              // 3: derived state
	PhaseCleanup                 // 4: despawn expired entities
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhasePreUpdate:
		return "pre-update"
	case PhaseUpdate:
		return "update"
	case PhasePostUpdate:
		return "post-update"
	case PhaseCleanup:
		return "cleanup"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// System is the interface every ECS system implements.
//
// Access must name every component type Update touches; the view enforces
// it. Structural changes go through v.Commands() and become visible to the
// next system in the schedule.
type System interface {
	Name() string
	Phase() Phase
	Access() ecs.Access
	Update(v *ecs.View)
}

// Clock is the resource a schedule maintains for its systems. The host may
// set Delta before Execute; Tick is advanced by the schedule.
type Clock struct {
	Tick  uint64
	Delta time.Duration
}

// SystemError reports a system that failed mid-tick. The tick is aborted:
// the system's commands are discarded and later systems do not run.
type SystemError struct {
	System string
	Tick   uint64
	Cause  any
}

func (e *SystemError) Error() string {
	return fmt.Sprintf("system %s failed on tick %d: %v", e.System, e.Tick, e.Cause)
}

// Unwrap exposes the panic value when it was an error, so callers can match
// *ecs.AccessConflictError or ecs.ErrWorldBusy with errors.As / errors.Is.
func (e *SystemError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}
