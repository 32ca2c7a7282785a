package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/profile"
	"github.com/robotcards/meadow/internal/config"
	"github.com/robotcards/meadow/internal/core/ecs"
	"github.com/robotcards/meadow/internal/core/event"
	coresys "github.com/robotcards/meadow/internal/core/system"
	"github.com/robotcards/meadow/internal/data"
	"github.com/robotcards/meadow/internal/display"
	"github.com/robotcards/meadow/internal/scripting"
	"github.com/robotcards/meadow/internal/system"
	"github.com/robotcards/meadow/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const defaultConfigPath = "config/meadow.toml"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

var numbers = message.NewPrinter(language.English)

func printBanner() {
	fmt.Println()
	fmt.Println("\033[32;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[32;1m  │\033[0m              meadow  v0.1.0               \033[32;1m│\033[0m")
	fmt.Println("\033[32;1m  │\033[0m      entity-component tick simulation     \033[32;1m│\033[0m")
	fmt.Println("\033[32;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := numbers.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	if p := startProfile(cfg.Profile); p != nil {
		defer p.Stop()
		log.Info("profiling enabled", zap.String("mode", cfg.Profile.Mode), zap.String("path", cfg.Profile.Path))
	}

	printBanner()

	// 3. Seed the world
	printSection("World")

	seed, err := loadSeed(cfg.Seed)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	meadow := world.NewMeadow()
	spawned, err := meadow.Seed(seed)
	if err != nil {
		return fmt.Errorf("seed world: %w", err)
	}
	printStat("component types", meadow.World.Registry().Len())
	printStat("robots", meadow.Robots.Len())
	printStat("blades", meadow.Blades.Len())
	printStat("entities spawned", spawned)
	fmt.Println()

	// 4. Scripting
	var step system.StepFunc
	if cfg.Scripting.Enabled {
		printSection("Scripting")
		lua, err := scripting.NewEngine(cfg.Scripting.Dir, log)
		if err != nil {
			return fmt.Errorf("scripting: %w", err)
		}
		defer lua.Close()
		printStat("lua scripts", lua.Loaded())
		if lua.Has("growth_step") {
			step = lua.GrowthStep
			printOK("growth_step provided by script")
		}
		fmt.Println()
	}

	// 5. Build schedule
	schedule, err := coresys.NewBuilder(log).
		Add(system.NewGrassGrowSystem(meadow.Blades, step)).
		Build()
	if err != nil {
		return err
	}

	event.Subscribe(meadow.World.Bus(), func(ev ecs.EntitySpawned) {
		log.Debug("entity spawned",
			zap.Stringer("entity", ev.Entity),
			zap.Strings("archetype", meadow.World.Registry().Names(ev.Archetype)),
		)
	})
	event.Subscribe(meadow.World.Bus(), func(ev ecs.EntityDespawned) {
		log.Debug("entity despawned", zap.Stringer("entity", ev.Entity))
	})

	res := ecs.NewResources()
	ecs.SetResource(res, coresys.Clock{Delta: cfg.Simulation.TickRate})

	// 6. Host surface
	var term *display.Terminal
	if cfg.Display.Enabled {
		term, err = display.NewTerminal(cfg.Display.CellWidth, log)
		if err != nil {
			return fmt.Errorf("display: %w", err)
		}
		defer term.Close()
	}

	// 7. Start tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownCh)

	ticker := time.NewTicker(cfg.Simulation.TickRate)
	defer ticker.Stop()

	if term == nil {
		printSection("Running")
		printReady(fmt.Sprintf("schedule: %s", strings.Join(schedule.Names(), ", ")))
		printReady(fmt.Sprintf("tick loop started (tick: %s)", cfg.Simulation.TickRate))
		fmt.Println()
	}
	log.Info("tick loop started",
		zap.Duration("tick_rate", cfg.Simulation.TickRate),
		zap.Uint64("max_ticks", cfg.Simulation.MaxTicks),
		zap.Strings("systems", schedule.Names()),
	)

	for {
		select {
		case <-ticker.C:
			if term != nil && term.Poll().ShouldTerminate() {
				logStopped(log, meadow, schedule, "terminate requested")
				return nil
			}
			if err := schedule.Execute(meadow.World, res); err != nil {
				return fmt.Errorf("tick %d: %w", schedule.Ticks(), err)
			}
			if term != nil {
				term.Draw(meadow, schedule.Ticks())
			}
			if cfg.Simulation.MaxTicks > 0 && schedule.Ticks() >= cfg.Simulation.MaxTicks {
				logStopped(log, meadow, schedule, "max ticks reached")
				return nil
			}
		case sig := <-shutdownCh:
			logStopped(log, meadow, schedule, "signal "+sig.String())
			return nil
		}
	}
}

func logStopped(log *zap.Logger, m *world.Meadow, s *coresys.Schedule, reason string) {
	st := m.Stats()
	log.Info("simulation stopped",
		zap.String("reason", reason),
		zap.Uint64("ticks", s.Ticks()),
		zap.Int("entities", st.Entities),
		zap.Int("blades", st.Blades),
		zap.Float64("min_height", st.MinHeight),
		zap.Float64("max_height", st.MaxHeight),
	)
}

// loadConfig reads MEADOW_CONFIG, or the default path. A missing default
// file falls back to built-in settings; a missing explicit file is an error.
func loadConfig() (*config.Config, error) {
	if p := os.Getenv("MEADOW_CONFIG"); p != "" {
		return config.Load(p)
	}
	cfg, err := config.Load(defaultConfigPath)
	if errors.Is(err, fs.ErrNotExist) {
		return config.Default(), nil
	}
	return cfg, err
}

func loadSeed(cfg config.SeedConfig) (*data.Seed, error) {
	if cfg.File == "" {
		return data.DefaultSeed(), nil
	}
	return data.LoadSeed(cfg.File)
}

func startProfile(cfg config.ProfileConfig) interface{ Stop() } {
	switch cfg.Mode {
	case "cpu":
		return profile.Start(profile.CPUProfile, profile.ProfilePath(cfg.Path), profile.NoShutdownHook, profile.Quiet)
	case "mem":
		return profile.Start(profile.MemProfile, profile.ProfilePath(cfg.Path), profile.NoShutdownHook, profile.Quiet)
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	if cfg.Output != "" {
		zapCfg.OutputPaths = []string{cfg.Output}
	}

	return zapCfg.Build()
}
