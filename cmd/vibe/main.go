package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dooshek/vibe/internal/audio"
	"github.com/dooshek/vibe/internal/chat"
	"github.com/dooshek/vibe/internal/client"
	"github.com/dooshek/vibe/internal/config"
	"github.com/dooshek/vibe/internal/fileops"
	"github.com/dooshek/vibe/internal/logger"
	"github.com/dooshek/vibe/internal/transcribe"
	"github.com/dooshek/vibe/internal/tui"
)

func init() {
	// Set custom usage message to show -- prefix
	flag.Usage = func() {
		out := flag.CommandLine.Output()
		fmt.Fprintf(out, "Usage of %s [ask]:\n", os.Args[0])
		printDefaults(flag.CommandLine)
	}
}

func printDefaults(fs *flag.FlagSet) {
	out := fs.Output()
	fs.VisitAll(func(f *flag.Flag) {
		fmt.Fprintf(out, "  --%s", f.Name)
		name, usage := flag.UnquoteUsage(f)
		if len(name) > 0 {
			fmt.Fprintf(out, " %s", name)
		}
		fmt.Fprintf(out, "\n    \t%s", usage)
		if f.DefValue != "" && f.DefValue != "false" {
			fmt.Fprintf(out, " (default %q)", f.DefValue)
		}
		fmt.Fprintf(out, "\n")
	})
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "ask" {
		os.Exit(runAsk(os.Args[2:]))
	}

	runWizard := flag.Bool("wizard", false, "Run the configuration wizard")
	logLevel := flag.String("log-level", "info", "Set log level (debug|info|warn|error)")
	logFilename := flag.String("log-filename", "", "Log file (default ~/.config/vibe/logs/vibe.log)")
	flag.Parse()

	fileOps, err := fileops.NewDefaultFileOps()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing file operations: %v\n", err)
		os.Exit(1)
	}
	if err := fileOps.EnsureDirectories(); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating config directories: %v\n", err)
		os.Exit(1)
	}

	if *runWizard {
		if err := config.RunWizard(fileOps, os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "Error running wizard: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	// The terminal UI owns stdout, so logs always go to a file.
	logger.SetLevel(*logLevel)
	if *logFilename == "" {
		*logFilename = filepath.Join(fileOps.GetLogsDir(), "vibe.log")
	}
	if err := logger.SetOutputFile(*logFilename); err != nil {
		fmt.Fprintf(os.Stderr, "Error setting log file: %v\n", err)
		os.Exit(1)
	}
	defer logger.CloseLogFile()

	if err := run(fileOps); err != nil {
		logger.Error("vibe exited with error", err)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		logger.CloseLogFile()
		os.Exit(1)
	}
}

func run(fileOps fileops.FileOps) error {
	cfg, err := config.LoadConfig(fileOps)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	encoder, err := transcribe.NewEncoder(cfg.Recording.Format, fileOps)
	if err != nil {
		return err
	}

	engine := audio.NewEngine(audio.NewMalgoBackend(), cfg.Audio.SampleRate, cfg.Audio.FFTSize)
	api := client.New(cfg.Backend.URL, cfg.Backend.Timeout)
	recorder := transcribe.NewController(func() (transcribe.Stream, error) {
		rec, err := engine.OpenRecording()
		if err != nil {
			return nil, err
		}
		return rec, nil
	}, encoder, api)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Infof("Starting vibe against %s", api.BaseURL())

	model := tui.New(ctx, tui.Options{
		Backend:    api,
		Audio:      engine,
		Recorder:   recorder,
		Session:    chat.NewSession(cfg.Chat.HistoryLimit),
		Speak:      cfg.Chat.Speak,
		FPS:        cfg.Cloud.FPS,
		CellWidth:  float64(cfg.Cloud.CellWidth),
		CellHeight: float64(cfg.Cloud.CellHeight),
		Rand:       rand.New(rand.NewSource(time.Now().UnixNano())),
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	finalModel, runErr := p.Run()

	if m, ok := finalModel.(tui.Model); ok {
		m.Close()
	} else {
		model.Close()
	}

	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("terminal UI failed: %w", runErr)
	}
	logger.Info("vibe stopped")
	return nil
}
