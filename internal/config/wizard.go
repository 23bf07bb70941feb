package config

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dooshek/vibe/internal/fileops"
	"github.com/dooshek/vibe/internal/types"
	"github.com/fatih/color"
)

// RunWizard asks for the client settings on in/out and saves them.
func RunWizard(fileOps fileops.FileOps, in io.Reader, out io.Writer) error {
	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	current, err := LoadConfig(fileOps)
	if err != nil {
		current = types.DefaultConfig()
	}

	bold.Fprintln(out, "\n✨ Welcome to the Vibe configuration wizard!")
	fmt.Fprintln(out, "Press Enter to keep the value shown in brackets.")

	reader := bufio.NewReader(in)
	cfg := &types.Config{}

	cyan.Fprintf(out, "\nBackend URL [%s]: ", current.Backend.URL)
	cfg.Backend.URL, err = readLine(reader, current.Backend.URL)
	if err != nil {
		return err
	}

	cyan.Fprintf(out, "Speak replies aloud by default? [%s]: ", yesNo(current.Chat.Speak))
	answer, err := readLine(reader, yesNo(current.Chat.Speak))
	if err != nil {
		return err
	}
	cfg.Chat.Speak = strings.HasPrefix(strings.ToLower(answer), "y")

	cyan.Fprintf(out, "Recording format, wav or ogg [%s]: ", current.Recording.Format)
	cfg.Recording.Format, err = readLine(reader, current.Recording.Format)
	if err != nil {
		return err
	}
	cfg.Recording.Format = strings.ToLower(cfg.Recording.Format)

	check := *cfg
	check.ApplyDefaults()
	if err := ValidateClient(&check); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}

	if err := SaveConfig(fileOps, cfg); err != nil {
		return err
	}

	green.Fprintf(out, "\n✅ Configuration saved to %s\n", fileOps.GetConfigDir())
	return nil
}

func readLine(r *bufio.Reader, fallback string) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return fallback, nil
	}
	return line, nil
}

func yesNo(b bool) string {
	if b {
		return "y"
	}
	return "n"
}
