package system

import (
	"errors"
	"fmt"
	"sort"

	"github.com/robotcards/meadow/internal/core/ecs"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// State is where a schedule is within a tick.
type State int

const (
	StateIdle State = iota
	StateRunning
	StateFlushing
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateFlushing:
		return "flushing"
	}
	return "idle"
}

// Builder collects systems before they are frozen into a Schedule.
type Builder struct {
	systems []System
	log     *zap.Logger
}

func NewBuilder(log *zap.Logger) *Builder {
	if log == nil {
		log = zap.NewNop()
	}
	return &Builder{
		systems: make([]System, 0, 16),
		log:     log,
	}
}

func (b *Builder) Add(s System) *Builder {
	b.systems = append(b.systems, s)
	return b
}

// Build validates every system and fixes the execution order: phase order,
// then registration order. All validation problems are reported together.
func (b *Builder) Build() (*Schedule, error) {
	var errs error
	seen := make(map[string]int, len(b.systems))
	for i, s := range b.systems {
		if s == nil {
			errs = multierr.Append(errs, fmt.Errorf("system #%d is nil", i))
			continue
		}
		name := s.Name()
		if name == "" {
			errs = multierr.Append(errs, fmt.Errorf("system #%d has no name", i))
			continue
		}
		if prev, dup := seen[name]; dup {
			errs = multierr.Append(errs, fmt.Errorf("system %q registered twice (#%d and #%d)", name, prev, i))
			continue
		}
		seen[name] = i
	}
	if errs != nil {
		return nil, fmt.Errorf("build schedule: %w", errs)
	}

	systems := make([]System, len(b.systems))
	copy(systems, b.systems)
	sort.SliceStable(systems, func(i, j int) bool {
		return systems[i].Phase() < systems[j].Phase()
	})

	for i, s := range systems {
		independent := i > 0 && s.Access().Compatible(systems[i-1].Access())
		b.log.Debug("system scheduled",
			zap.Int("order", i),
			zap.String("system", s.Name()),
			zap.Stringer("phase", s.Phase()),
			zap.Bool("independent_of_previous", independent),
		)
	}

	return &Schedule{
		systems: systems,
		log:     b.log,
		current: -1,
	}, nil
}

// Schedule is a fixed, ordered list of systems run once per tick.
//
// Each system gets its own command buffer, flushed before the next system
// starts, so no system observes another's unflushed commands and every
// system sees a structurally stable world while it runs.
type Schedule struct {
	systems []System
	buffers []*ecs.CommandBuffer
	bound   *ecs.World
	log     *zap.Logger
	state   State
	current int
	tick    uint64
}

func (s *Schedule) Len() int      { return len(s.systems) }
func (s *Schedule) State() State  { return s.state }
func (s *Schedule) Current() int  { return s.current }
func (s *Schedule) Ticks() uint64 { return s.tick }

// Names lists the systems in execution order.
func (s *Schedule) Names() []string {
	out := make([]string, len(s.systems))
	for i, sys := range s.systems {
		out[i] = sys.Name()
	}
	return out
}

// bind checks the declared access of every system against w's registry and
// allocates the per-system command buffers. It runs on the first Execute
// against a world.
func (s *Schedule) bind(w *ecs.World) error {
	if s.bound == w {
		return nil
	}
	var errs error
	for _, sys := range s.systems {
		for _, t := range sys.Access().All().Types() {
			if !w.Registry().Has(t) {
				errs = multierr.Append(errs, fmt.Errorf("system %s declares component #%d: %w", sys.Name(), t, ecs.ErrUnknownComponent))
			}
		}
	}
	if errs != nil {
		return errs
	}
	s.buffers = make([]*ecs.CommandBuffer, len(s.systems))
	for i := range s.systems {
		s.buffers[i] = ecs.NewCommandBuffer(w)
	}
	s.bound = w
	return nil
}

// Execute runs one tick: every system once, in order, flushing each
// system's commands before the next one starts. Lifecycle events from the
// previous tick are dispatched first.
//
// A panicking system aborts the tick and Execute returns a *SystemError.
// There is no per-system recovery; callers treat the error as fatal.
func (s *Schedule) Execute(w *ecs.World, res *ecs.Resources) error {
	if err := s.bind(w); err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	if w.Executing() {
		return fmt.Errorf("execute: %w", ecs.ErrWorldBusy)
	}
	if res == nil {
		res = ecs.NewResources()
	}

	w.Bus().SwapBuffers()
	w.Bus().DispatchAll()

	if err := w.BeginExecute(); err != nil {
		return fmt.Errorf("execute: %w", err)
	}
	defer w.EndExecute()

	s.tick++
	clock, _ := ecs.GetResource[Clock](res)
	clock.Tick = s.tick
	ecs.SetResource(res, clock)

	for i, sys := range s.systems {
		s.state, s.current = StateRunning, i
		cb := s.buffers[i]
		v := ecs.NewView(w, sys.Name(), sys.Access(), cb, res)
		err := s.run(sys, v)
		v.Release()
		if err != nil {
			cb.Discard()
			s.state, s.current = StateIdle, -1
			s.log.Error("tick aborted",
				zap.String("system", sys.Name()),
				zap.Uint64("tick", s.tick),
				zap.Error(err),
			)
			return err
		}

		s.state = StateFlushing
		if st := cb.Flush(); st != (ecs.FlushStats{}) {
			s.log.Debug("commands flushed",
				zap.String("system", sys.Name()),
				zap.Int("spawned", st.Spawned),
				zap.Int("despawned", st.Despawned),
				zap.Int("added", st.Added),
				zap.Int("removed", st.Removed),
				zap.Int("skipped", st.Skipped),
				zap.Int("collapsed", st.Collapsed),
			)
		}
	}
	s.state, s.current = StateIdle, -1
	return nil
}

func (s *Schedule) run(sys System, v *ecs.View) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &SystemError{System: sys.Name(), Tick: s.tick, Cause: r}
		}
	}()
	sys.Update(v)
	return nil
}

// IsAccessConflict reports whether err comes from a query that broke the
// access rules.
func IsAccessConflict(err error) bool {
	var ace *ecs.AccessConflictError
	return errors.As(err, &ace)
}
