// Package main is the entry point for the pass-it-on server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/kwheelans/pass-it-on/internal/buildinfo"
	"github.com/kwheelans/pass-it-on/internal/config"
	"github.com/kwheelans/pass-it-on/internal/lifecycle"
	"github.com/kwheelans/pass-it-on/internal/servercore"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	logLevel := flag.String("log-level", "", "log level: trace, debug, info, warn, error (overrides config log_level)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if flag.NArg() > 0 && flag.Arg(0) == "version" {
		fmt.Println(buildinfo.String())
		return
	}

	runServe(logger, *configPath, *logLevel)
}

func runServe(logger *slog.Logger, configPath, logLevelFlag string) {
	logger.Info("starting pass-it-on server", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "branch", buildinfo.GitBranch, "built", buildinfo.BuildTime)

	cfgPath, err := config.FindConfig(configPath)
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := lifecycle.Watch(context.Background(), nil)
	defer cancel()

	cfg, err := config.LoadServerConfig(cfgPath, config.LoadContext{Ctx: ctx, Logger: logger})
	if err != nil {
		logger.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}

	// The -log-level flag takes precedence over the config file's
	// log_level, matching the teacher's config-driven level with an
	// operator override layered on top.
	effectiveLevel := cfg.LogLevel
	if logLevelFlag != "" {
		effectiveLevel = logLevelFlag
	}
	level, err := config.ParseLogLevel(effectiveLevel)
	if err != nil {
		logger.Error("invalid log level", "error", err)
		os.Exit(1)
	}
	logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))

	logger.Info("config loaded",
		"path", cfgPath,
		"log_level", effectiveLevel,
		"interfaces", len(cfg.Interfaces),
		"endpoints", len(cfg.Endpoints),
	)

	servercore.Start(ctx, servercore.Config{
		MasterKey:  cfg.Key,
		Interfaces: cfg.Interfaces,
		Endpoints:  cfg.Endpoints,
		Grace:      servercore.DefaultGrace,
		Logger:     logger,
	})

	logger.Info("pass-it-on server stopped")
}
