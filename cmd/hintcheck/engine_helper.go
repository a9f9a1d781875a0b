package main

import (
	"fmt"
	"os"
	"sync"

	"hintcheck/internal/check"
	"hintcheck/internal/codegen"
	"hintcheck/internal/conf"
	"hintcheck/internal/config"
	"hintcheck/internal/hint"
	"hintcheck/internal/logging"
	"hintcheck/internal/reduce"
)

// engine bundles the shared collaborators every command needs: the class
// registry loaded from declaration files, the effective configuration, and
// the checker factory.
type engine struct {
	cfg      *config.Config
	conf     *conf.Conf
	registry *hint.Registry
	factory  *check.Factory
	logger   *logging.Logger
}

var (
	engineOnce   sync.Once
	sharedEngine *engine
	engineErr    error
)

// getEngine returns the shared engine instance, lazily initialized on first
// use.
func getEngine(logger *logging.Logger) (*engine, error) {
	engineOnce.Do(func() {
		cfg, err := config.LoadConfig(rootFlag)
		if err != nil {
			logger.Warn("Failed to load config, using defaults", map[string]interface{}{
				"error": err.Error(),
			})
			cfg = config.DefaultConfig()
		}

		registry := hint.NewRegistry()
		for _, path := range cfg.Registry.DeclFiles {
			if err := registry.LoadDecls(path); err != nil {
				engineErr = fmt.Errorf("failed to load declarations %q: %w", path, err)
				return
			}
		}

		var overrides []conf.Override
		if path := cfg.Checking.OverridesPath; path != "" {
			overrides, err = conf.LoadOverrides(path, registry)
			if err != nil {
				engineErr = fmt.Errorf("failed to load overrides %q: %w", path, err)
				return
			}
		}

		c := conf.New(conf.Options{
			Strategy:       resolveStrategy(cfg),
			WarnDeprecated: cfg.Checking.WarnDeprecated,
			Overrides:      overrides,
		})

		reducer := reduce.New(registry, nil, logger)
		gen := codegen.NewGenerator(codegen.Options{
			Registry: registry,
			Reducer:  reducer,
			Logger:   logger,
		})
		factory := check.NewFactory(check.Options{
			Registry:  registry,
			Reducer:   reducer,
			Generator: gen,
			Logger:    logger,
		})

		sharedEngine = &engine{
			cfg:      cfg,
			conf:     c,
			registry: registry,
			factory:  factory,
			logger:   logger,
		}
	})

	return sharedEngine, engineErr
}

// mustGetEngine returns the shared engine or exits on error.
func mustGetEngine(logger *logging.Logger) *engine {
	e, err := getEngine(logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		os.Exit(1)
	}
	return e
}

// newCommandLogger builds the logger commands share, honoring the config
// file's logging section when present.
func newCommandLogger() *logging.Logger {
	format := "human"
	level := "info"
	if cfg, err := config.LoadConfig(rootFlag); err == nil {
		if cfg.Logging.Format != "" {
			format = cfg.Logging.Format
		}
		if cfg.Logging.Level != "" {
			level = cfg.Logging.Level
		}
	}
	if env := os.Getenv("HINTCHECK_LOG_LEVEL"); env != "" {
		level = env
	}
	return logging.NewLogger(logging.Config{
		Format: logging.Format(format),
		Level:  logging.LogLevel(level),
	})
}
