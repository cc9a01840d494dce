package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/yuchenwei/rewind/internal/checkpoint"
	"github.com/yuchenwei/rewind/internal/config"
	"github.com/yuchenwei/rewind/internal/history"
	"github.com/yuchenwei/rewind/internal/rollback"
	"github.com/yuchenwei/rewind/internal/toolchain"
	"github.com/yuchenwei/rewind/internal/vcs"
	"github.com/yuchenwei/rewind/internal/verify"
)

var (
	flagConfig  string
	flagProject string
	flagVerbose bool
)

// app wires together the full checkpoint/rollback stack for one command
// invocation.
type app struct {
	cfg      *config.Config
	store    *checkpoint.Store
	capturer *checkpoint.Capturer
	engine   *rollback.Engine
	history  *history.Log
	log      zerolog.Logger
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flagProject != "" {
		abs, err := filepath.Abs(flagProject)
		if err != nil {
			return nil, fmt.Errorf("resolve project root: %w", err)
		}
		cfg.ProjectRoot = abs
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("prepare base dir: %w", err)
	}

	level := zerolog.WarnLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	store, err := checkpoint.Open(cfg.CheckpointsDir(), log)
	if err != nil {
		return nil, err
	}

	hist, err := history.Open(cfg.HistoryDir())
	if err != nil {
		store.Close()
		return nil, err
	}

	git := vcs.New(cfg.ProjectRoot)
	tools := toolchain.New(cfg)
	capturer := checkpoint.NewCapturer(cfg, git, store, log)
	verifier := verify.New(cfg, tools)
	engine := rollback.NewEngine(cfg, store, capturer, git, tools, verifier, hist, log)

	return &app{
		cfg:      cfg,
		store:    store,
		capturer: capturer,
		engine:   engine,
		history:  hist,
		log:      log,
	}, nil
}

func (a *app) close() {
	a.store.Close()
}

func configPath() string {
	if flagConfig != "" {
		return flagConfig
	}
	if _, err := os.Stat("rewind.yaml"); err == nil {
		return "rewind.yaml"
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".rewind", "config.yaml")
}
