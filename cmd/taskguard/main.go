package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/config"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/coordinator"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/internal/version"
	"github.com/wiseyoda/ClaudeCodeApp-sub012/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	sessionID := flag.String("session", "", "agent session id to attach to")
	logLevel := flag.String("log-level", "info", "log level (trace|debug|info|warn|error)")
	grantWindow := flag.Duration("grant-window", 30*time.Second, "simulated background grant window")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("taskguard %s\n", version.RichVersion())
		return nil
	}

	level, err := logger.ParseLevel(*logLevel)
	if err != nil {
		return err
	}
	logger.SetLevel(level)

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Debug {
		logger.SetLevel(logger.LevelDebug)
		logger.Debugf("config: server=%s home=%s", cfg.ServerURL, cfg.AppHome)
	}
	if *sessionID == "" {
		return fmt.Errorf("-session is required")
	}

	coord, err := coordinator.New(coordinator.Options{
		Config:       cfg,
		SessionID:    *sessionID,
		Provider:     &devProvider{},
		Scheduler:    devScheduler{},
		Platform:     &devPlatform{window: *grantWindow},
		IsAppVisible: func() bool { return false },
	})
	if err != nil {
		return err
	}
	defer coord.Close()

	if coord.Grants().WasProcessingOnBackground() {
		logger.Infof("recoverable task found: session=%s path=%s",
			coord.Grants().LastSessionID(), coord.Grants().LastProjectPath())
	}

	if err := coord.Connect(); err != nil {
		// The coordinator still runs offline; decisions buffer durably.
		logger.Warnf("starting without realtime channel: %v", err)
	}

	go func() {
		for event := range coord.Decisions() {
			logger.Infof("decision: request=%s approved=%v", event.RequestID, event.Approved)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	logger.Infof("shutting down")
	return nil
}
