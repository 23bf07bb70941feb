package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/dooshek/vibe/internal/config"
	"github.com/dooshek/vibe/internal/fileops"
	"github.com/dooshek/vibe/internal/llm"
	"github.com/dooshek/vibe/internal/logger"
	"github.com/dooshek/vibe/internal/server"
	"github.com/dooshek/vibe/internal/transcriber"
	"github.com/dooshek/vibe/internal/tts"
	"github.com/dooshek/vibe/internal/types"
	"github.com/dooshek/vibe/internal/usage"
)

const pidName = "vibe-server"

func main() {
	configPath := flag.String("config", "", "Server config file (default ~/.config/vibe/server.yaml)")
	logLevel := flag.String("log-level", "info", "Set log level (debug|info|warn|error)")
	logFilename := flag.String("log-filename", "", "Log to file instead of stderr")
	flag.Parse()

	logger.SetLevel(*logLevel)
	if *logFilename != "" {
		if err := logger.SetOutputFile(*logFilename); err != nil {
			fmt.Printf("Error setting log file: %v\n", err)
			os.Exit(1)
		}
		defer logger.CloseLogFile()
	}

	fileOps, err := fileops.NewDefaultFileOps()
	if err != nil {
		logger.Error("Failed to initialize file operations", err)
		os.Exit(1)
	}
	if err := fileOps.EnsureDirectories(); err != nil {
		logger.Error("Failed to create necessary directories", err)
		os.Exit(1)
	}

	cfg, err := config.LoadServerConfig(fileOps, *configPath)
	if err != nil {
		logger.Error("Error loading server config", err)
		os.Exit(1)
	}

	// Check if another instance is running
	if err := fileOps.CheckPID(pidName); err != nil {
		if errors.Is(err, fileops.ErrProcessAlreadyRunning) {
			logger.Error("Another instance of vibe-server is already running", err)
			os.Exit(1)
		}
	}
	if err := fileOps.SavePID(pidName); err != nil {
		logger.Error("Failed to save PID file", err)
		os.Exit(1)
	}
	defer func() {
		if err := fileOps.CleanupPID(pidName); err != nil {
			logger.Error("Failed to cleanup PID file", err)
		}
	}()

	if err := run(cfg, usage.NewTracker(filepath.Join(fileOps.GetConfigDir(), "usage.json"))); err != nil {
		logger.Error("vibe-server failed", err)
		fileOps.CleanupPID(pidName)
		logger.CloseLogFile()
		os.Exit(1)
	}
}

func run(cfg *types.ServerConfig, tracker *usage.Tracker) error {
	chatProvider, err := llm.NewProvider(types.LLMProvider(cfg.LLM.Chat.Provider), cfg.LLM.Keys, cfg.LLM.Transcription)
	if err != nil {
		return fmt.Errorf("failed to initialize chat provider: %w", err)
	}
	sttProvider, err := llm.NewProvider(types.LLMProvider(cfg.LLM.Transcription.Provider), cfg.LLM.Keys, cfg.LLM.Transcription)
	if err != nil {
		return fmt.Errorf("failed to initialize transcription provider: %w", err)
	}

	deps := server.Deps{
		Chat:        chatProvider,
		Transcriber: transcriber.NewTranscriber(sttProvider),
		Usage:       tracker,
		Registry:    prometheus.NewRegistry(),
	}
	deps.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	manager, err := tts.NewManager(cfg.TTS, cfg.LLM.Keys.OpenAIKey)
	switch {
	case errors.Is(err, tts.ErrDisabled):
		logger.Info("Speech synthesis disabled")
	case err != nil:
		return fmt.Errorf("failed to create TTS provider: %w", err)
	default:
		deps.Speech = manager
	}

	logger.Infof("Chat: %s/%s, transcription: %s/%s",
		cfg.LLM.Chat.Provider, cfg.LLM.Chat.Model,
		cfg.LLM.Transcription.Provider, cfg.LLM.Transcription.Model)

	srv := server.New(cfg, deps)
	errs := srv.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Infof("Received signal %v, shutting down...", sig)
	case err, ok := <-errs:
		if ok && err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	logger.Info("vibe-server stopped")
	return nil
}
