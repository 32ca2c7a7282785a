package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// defaultGrowthStep matches the growth system's built-in step and is used
// whenever the script does not provide a usable answer.
const defaultGrowthStep = 1.0

// Engine wraps a single gopher-lua VM for simulation formulas.
// Single-goroutine access only (tick loop).
type Engine struct {
	vm     *lua.LState
	log    *zap.Logger
	loaded int
}

// NewEngine creates a Lua engine and loads all scripts from the given directory.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop()
	}
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	// Core helpers first, then world formulas
	for _, sub := range []string{"core", "world"} {
		p := filepath.Join(scriptsDir, sub)
		if err := e.loadDir(p); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load %s scripts: %w", sub, err)
		}
	}

	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.loaded++
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// Loaded returns the number of script files executed at startup.
func (e *Engine) Loaded() int { return e.loaded }

// Has reports whether a global Lua function with the given name exists.
func (e *Engine) Has(name string) bool {
	_, ok := e.vm.GetGlobal(name).(*lua.LFunction)
	return ok
}

// --- Growth Bridge ---

// GrowthStep calls Lua growth_step(height) and returns how much a blade of
// that height grows this tick. Missing function, runtime error or a
// non-number result all fall back to one unit.
func (e *Engine) GrowthStep(height float64) float64 {
	fn := e.vm.GetGlobal("growth_step")
	if fn == lua.LNil {
		return defaultGrowthStep
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LNumber(height)); err != nil {
		e.log.Error("lua growth_step error", zap.Error(err))
		return defaultGrowthStep
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	n, ok := result.(lua.LNumber)
	if !ok {
		e.log.Error("lua growth_step returned non-number", zap.String("type", result.Type().String()))
		return defaultGrowthStep
	}
	return float64(n)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
