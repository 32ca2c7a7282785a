package display

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/robotcards/meadow/internal/component"
	"github.com/robotcards/meadow/internal/core/ecs"
	"github.com/robotcards/meadow/internal/world"
	"go.uber.org/zap"
)

// ContinueToken is the host's answer to "run another tick?".
type ContinueToken int

const (
	Continue ContinueToken = iota
	Terminate
)

func (t ContinueToken) ShouldTerminate() bool { return t == Terminate }

// statusRows is the number of screen rows above the meadow.
const statusRows = 1

var (
	robotStyle  = tcell.StyleDefault.Foreground(tcell.NewRGBColor(125, 12, 44)).Bold(true)
	statusStyle = tcell.StyleDefault.Foreground(tcell.ColorWhite).Background(tcell.NewRGBColor(40, 40, 60))
)

// bladeGlyphs get taller as the blade does; anything past the last entry
// uses the last glyph.
var bladeGlyphs = []rune{'.', ',', ';', 'i', 'l', 'I', '|', '#'}

// Terminal renders the meadow on a tcell screen and turns key presses into
// Continue / Terminate decisions. It only reads component data, between
// ticks.
type Terminal struct {
	screen    tcell.Screen
	log       *zap.Logger
	cellWidth int
	events    chan tcell.Event
	done      chan struct{}
}

// NewTerminal opens the controlling terminal.
func NewTerminal(cellWidth int, log *zap.Logger) (*Terminal, error) {
	screen, err := tcell.NewScreen()
	if err != nil {
		return nil, fmt.Errorf("open screen: %w", err)
	}
	return NewTerminalWithScreen(screen, cellWidth, log)
}

// NewTerminalWithScreen wraps an existing screen, e.g. a simulation screen
// in tests. The screen is initialized here and finalized by Close.
func NewTerminalWithScreen(screen tcell.Screen, cellWidth int, log *zap.Logger) (*Terminal, error) {
	if err := screen.Init(); err != nil {
		return nil, fmt.Errorf("init screen: %w", err)
	}
	if cellWidth < 1 {
		cellWidth = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	t := &Terminal{
		screen:    screen,
		log:       log,
		cellWidth: cellWidth,
		events:    make(chan tcell.Event, 100),
		done:      make(chan struct{}),
	}
	go t.pump()
	return t, nil
}

func (t *Terminal) pump() {
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return // screen finalized
		}
		select {
		case t.events <- ev:
		case <-t.done:
			return
		}
	}
}

// Interrupt asks the next Poll to terminate. Safe from any goroutine.
func (t *Terminal) Interrupt() {
	if err := t.screen.PostEvent(tcell.NewEventInterrupt(nil)); err != nil {
		t.log.Warn("post interrupt", zap.Error(err))
	}
}

// Poll drains pending input without blocking and reports whether the host
// should keep ticking.
func (t *Terminal) Poll() ContinueToken {
	for {
		select {
		case ev := <-t.events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				if keyTerminates(ev.Key(), ev.Rune(), ev.Modifiers()) {
					return Terminate
				}
			case *tcell.EventInterrupt:
				return Terminate
			case *tcell.EventResize:
				t.screen.Sync()
			}
		default:
			return Continue
		}
	}
}

// keyTerminates reports whether a key press ends the run: Escape, Ctrl-C or q.
func keyTerminates(key tcell.Key, r rune, mod tcell.ModMask) bool {
	switch key {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return true
	case tcell.KeyRune:
		return (r == 'q' || r == 'Q') && mod&tcell.ModCtrl == 0
	}
	return false
}

// Draw renders one frame: a status line, every blade as a glyph sized by its
// height, and every robot as '@'.
func (t *Terminal) Draw(m *world.Meadow, tick uint64) {
	t.screen.Clear()

	st := m.Stats()
	status := fmt.Sprintf(" tick %d  entities %d  blades %d  height %.1f..%.1f  reach %d  [esc] quit ",
		tick, st.Entities, st.Blades, st.MinHeight, st.MaxHeight, st.InReach)
	w, _ := t.screen.Size()
	for x := 0; x < w; x++ {
		t.screen.SetContent(x, 0, ' ', nil, statusStyle)
	}
	for i, r := range status {
		t.screen.SetContent(i, 0, r, nil, statusStyle)
	}

	m.EachBlade(func(_ ecs.EntityID, p component.Position, b component.Blade) {
		x, y, ok := t.cell(p)
		if !ok {
			return
		}
		t.screen.SetContent(x, y, BladeGlyph(b.Height), nil, bladeStyle(b.Height))
	})
	m.EachRobot(func(_ ecs.EntityID, p component.Position, _ component.Robot) {
		x, y, ok := t.cell(p)
		if !ok {
			return
		}
		t.screen.SetContent(x, y, '@', nil, robotStyle)
	})

	t.screen.Show()
}

func (t *Terminal) cell(p component.Position) (int, int, bool) {
	if p.X < 0 || p.Y < 0 {
		return 0, 0, false
	}
	x := int(math.Floor(p.X)) * t.cellWidth
	y := int(math.Floor(p.Y)) + statusRows
	w, h := t.screen.Size()
	if x >= w || y >= h {
		return 0, 0, false
	}
	return x, y, true
}

// BladeGlyph picks the glyph for a blade of the given height.
func BladeGlyph(height float64) rune {
	i := int(height)
	if i < 0 {
		i = 0
	}
	if i >= len(bladeGlyphs) {
		i = len(bladeGlyphs) - 1
	}
	return bladeGlyphs[i]
}

func bladeStyle(height float64) tcell.Style {
	g := math.Max(0, math.Min(255, 90+20*height))
	return tcell.StyleDefault.Foreground(tcell.NewRGBColor(20, int32(g), 30))
}

// Close restores the terminal.
func (t *Terminal) Close() {
	close(t.done)
	t.screen.Fini()
}
