package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/dooshek/vibe/internal/chat"
	"github.com/dooshek/vibe/internal/client"
	"github.com/dooshek/vibe/internal/config"
	"github.com/dooshek/vibe/internal/fileops"
	"github.com/dooshek/vibe/internal/logger"
)

var (
	youColor    = color.New(color.FgCyan, color.Bold)
	vibeColor   = color.New(color.FgMagenta, color.Bold)
	noticeColor = color.New(color.FgYellow)
	errorColor  = color.New(color.FgRed)
)

type askOptions struct {
	audio  string
	speak  string
	system string
}

// runAsk is the one-shot command line mode. Without a message or audio
// file it falls back to an interactive loop.
func runAsk(args []string) int {
	fs := flag.NewFlagSet("ask", flag.ContinueOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: vibe ask [flags] [message...]\n")
		printDefaults(fs)
	}
	var opts askOptions
	fs.StringVar(&opts.audio, "audio", "", "Audio file to transcribe before chatting")
	fs.StringVar(&opts.speak, "speak", "", "Save the spoken reply as a WAV file at this path")
	fs.StringVar(&opts.system, "system", "", "Override the system prompt for this run")
	logLevel := fs.String("log-level", "warn", "Set log level (debug|info|warn|error)")
	logFilename := fs.String("log-filename", "", "Log to file instead of stderr")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	logger.SetLevel(*logLevel)
	if *logFilename != "" {
		if err := logger.SetOutputFile(*logFilename); err != nil {
			errorColor.Fprintf(os.Stderr, "Error setting log file: %v\n", err)
			return 1
		}
		defer logger.CloseLogFile()
	}

	fileOps, err := fileops.NewDefaultFileOps()
	if err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	cfg, err := config.LoadConfig(fileOps)
	if err != nil {
		errorColor.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := client.New(cfg.Backend.URL, cfg.Backend.Timeout)
	message := strings.Join(fs.Args(), " ")

	if err := ask(ctx, api, chat.NewSession(cfg.Chat.HistoryLimit), message, opts, os.Stdin, os.Stdout); err != nil {
		errorColor.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// asker is the part of the backend client ask needs.
type asker interface {
	chat.Sender
	Transcribe(ctx context.Context, filename string, audio io.Reader) (string, error)
}

func ask(ctx context.Context, api asker, session *chat.Session, message string, opts askOptions, in io.Reader, out io.Writer) error {
	if opts.audio != "" {
		transcript, err := transcribeFile(ctx, api, opts.audio)
		if err != nil {
			return err
		}
		noticeColor.Fprintf(out, "Transcribed audio -> %s\n", transcript)
		if message != "" {
			message = fmt.Sprintf("%s\n\nTranscription of %s: %s", message, opts.audio, transcript)
		} else {
			message = transcript
		}
	}

	if strings.TrimSpace(message) == "" {
		return interactive(ctx, api, session, opts, in, out)
	}

	reply, err := turn(ctx, api, session, message, opts)
	if err != nil {
		return err
	}
	vibeColor.Fprint(out, "Vibe: ")
	fmt.Fprintln(out, reply.Reply)

	if opts.speak != "" {
		return saveSpeech(reply, opts.speak, out)
	}
	return nil
}

func transcribeFile(ctx context.Context, api asker, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("error opening audio file: %w", err)
	}
	defer f.Close()

	text, err := api.Transcribe(ctx, filepath.Base(path), f)
	if err != nil {
		return "", fmt.Errorf("transcription failed: %w", err)
	}
	return text, nil
}

func turn(ctx context.Context, api chat.Sender, session *chat.Session, message string, opts askOptions) (*client.ChatResponse, error) {
	pending, err := session.Begin(message, opts.speak != "")
	if err != nil {
		return nil, err
	}
	pending.Request.System = opts.system
	return session.Send(ctx, api, pending)
}

func saveSpeech(reply *client.ChatResponse, path string, out io.Writer) error {
	audio, err := reply.Audio()
	if err != nil {
		return err
	}
	if len(audio) == 0 {
		noticeColor.Fprintln(out, "The server returned no audio; is TTS enabled?")
		return nil
	}
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		return fmt.Errorf("error saving audio: %w", err)
	}
	noticeColor.Fprintf(out, "Saved audio to %s\n", path)
	return nil
}

func interactive(ctx context.Context, api chat.Sender, session *chat.Session, opts askOptions, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Hey there! I can chat, listen, and speak back. Type quit to leave.")
	scanner := bufio.NewScanner(in)

	for {
		youColor.Fprint(out, "\nYou: ")
		if !scanner.Scan() {
			fmt.Fprintln(out, "\nGoodbye!")
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.EqualFold(line, "quit") || strings.EqualFold(line, "exit") {
			fmt.Fprintln(out, "Goodbye!")
			return nil
		}

		reply, err := turn(ctx, api, session, line, askOptions{system: opts.system})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			errorColor.Fprintf(out, "Error: %v\n", err)
			continue
		}
		vibeColor.Fprint(out, "Vibe: ")
		fmt.Fprintln(out, reply.Reply)
	}
}
