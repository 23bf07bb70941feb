package fileops

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/dooshek/vibe/internal/logger"
)

// ErrConfigNotFound is returned when a configuration file does not exist
var ErrConfigNotFound = errors.New("configuration file not found")

// ErrProcessAlreadyRunning is returned when another process holds the PID file
var ErrProcessAlreadyRunning = errors.New("vibe process is already running")

// FileOps manages files in the vibe config directory
type FileOps interface {
	// GetConfigDir returns the full path to the vibe config directory
	GetConfigDir() string

	// GetRecordingsDir returns the directory used for temporary clips
	GetRecordingsDir() string

	// GetLogsDir returns the directory the client logs into
	GetLogsDir() string

	// SaveConfig saves data to a file in the config directory
	SaveConfig(filename string, data []byte) error

	// LoadConfig loads data from a file in the config directory.
	// Returns ErrConfigNotFound when the file does not exist.
	LoadConfig(filename string) ([]byte, error)

	// SaveRecording writes a clip into the recordings directory and returns its path
	SaveRecording(filename string, data []byte) (string, error)

	// DeleteRecording deletes a clip from the recordings directory
	DeleteRecording(filename string) error

	// EnsureDirectories creates necessary directories if they don't exist
	EnsureDirectories() error

	// SavePID writes the current process ID to name.pid
	SavePID(name string) error

	// CheckPID returns ErrProcessAlreadyRunning if name.pid belongs to a live process
	CheckPID(name string) error

	// CleanupPID removes name.pid
	CleanupPID(name string) error
}

// DefaultFileOps implements FileOps on the local filesystem
type DefaultFileOps struct {
	configDir string
}

// NewDefaultFileOps roots the config directory at ~/.config/vibe
func NewDefaultFileOps() (*DefaultFileOps, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return NewFileOps(filepath.Join(homeDir, ".config", "vibe")), nil
}

// NewFileOps roots the config directory at dir
func NewFileOps(dir string) *DefaultFileOps {
	return &DefaultFileOps{configDir: dir}
}

func (f *DefaultFileOps) GetConfigDir() string {
	return f.configDir
}

func (f *DefaultFileOps) GetRecordingsDir() string {
	return filepath.Join(f.configDir, "recordings")
}

func (f *DefaultFileOps) GetLogsDir() string {
	return filepath.Join(f.configDir, "logs")
}

func (f *DefaultFileOps) SaveConfig(filename string, data []byte) error {
	if err := os.MkdirAll(f.configDir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	path := filepath.Join(f.configDir, filename)
	return os.WriteFile(path, data, 0o644)
}

func (f *DefaultFileOps) LoadConfig(filename string) ([]byte, error) {
	path := filepath.Join(f.configDir, filename)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrConfigNotFound
	}
	return data, err
}

func (f *DefaultFileOps) SaveRecording(filename string, data []byte) (string, error) {
	path := filepath.Join(f.GetRecordingsDir(), filename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func (f *DefaultFileOps) DeleteRecording(filename string) error {
	path := filepath.Join(f.GetRecordingsDir(), filepath.Base(filename))
	return os.Remove(path)
}

func (f *DefaultFileOps) EnsureDirectories() error {
	for _, dir := range []string{f.configDir, f.GetRecordingsDir(), f.GetLogsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (f *DefaultFileOps) pidPath(name string) string {
	return filepath.Join(f.configDir, name+".pid")
}

func (f *DefaultFileOps) SavePID(name string) error {
	return os.WriteFile(f.pidPath(name), []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func (f *DefaultFileOps) CheckPID(name string) error {
	data, err := os.ReadFile(f.pidPath(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error reading PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("invalid PID in file: %w", err)
	}
	if pid == os.Getpid() {
		return nil
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return nil
	}
	if err := process.Signal(syscall.Signal(0)); err == nil {
		return ErrProcessAlreadyRunning
	}

	logger.Debug("Found stale PID file, will be overwritten")
	return nil
}

func (f *DefaultFileOps) CleanupPID(name string) error {
	return os.Remove(f.pidPath(name))
}
