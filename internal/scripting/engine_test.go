package scripting

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

func newEngine(t *testing.T, world map[string]string) *Engine {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "world"), 0o755); err != nil {
		t.Fatal(err)
	}
	for name, src := range world {
		if err := os.WriteFile(filepath.Join(dir, "world", name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	e, err := NewEngine(dir, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestGrowthStepFromScript(t *testing.T) {
	e := newEngine(t, map[string]string{
		"growth.lua": "function growth_step(h) if h >= 3 then return 0 end return h / 2 end",
		"notes.txt":  "not lua",
	})
	if e.Loaded() != 1 {
		t.Errorf("Loaded() = %d, want 1", e.Loaded())
	}
	if !e.Has("growth_step") {
		t.Fatal("growth_step not found")
	}
	if got := e.GrowthStep(1); got != 0.5 {
		t.Errorf("GrowthStep(1) = %v, want 0.5", got)
	}
	if got := e.GrowthStep(4); got != 0 {
		t.Errorf("GrowthStep(4) = %v, want 0", got)
	}
}

func TestGrowthStepFallbacks(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"missing", "x = 1"},
		{"runtime error", "function growth_step(h) error('boom') end"},
		{"not a number", "function growth_step(h) return 'tall' end"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEngine(t, map[string]string{"growth.lua": tc.src})
			if got := e.GrowthStep(2); got != defaultGrowthStep {
				t.Errorf("GrowthStep = %v, want %v", got, defaultGrowthStep)
			}
		})
	}
}

func TestMissingDirectoriesAreSkipped(t *testing.T) {
	e, err := NewEngine(filepath.Join(t.TempDir(), "absent"), nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	defer e.Close()
	if e.Loaded() != 0 || e.Has("growth_step") {
		t.Error("empty engine reports scripts")
	}
}

func TestBrokenScriptFailsStartup(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "core"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "core", "bad.lua"), []byte("function ("), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewEngine(dir, zaptest.NewLogger(t)); err == nil {
		t.Error("syntax error should fail NewEngine")
	}
}
