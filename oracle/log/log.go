package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	customLog = newLogger(consoleWriter(os.Stdout))
	mu        sync.RWMutex
)

type logger struct {
	zl  zerolog.Logger
	dir string
}

func consoleWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{Out: out, NoColor: true, TimeFormat: time.RFC3339}
}

func newLogger(w io.Writer) logger {
	return logger{
		zl: zerolog.New(w).With().Timestamp().CallerWithSkipFrameCount(3).Logger().Level(zerolog.DebugLevel),
	}
}

func current() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()

	return customLog.zl
}

// InitLogger resets the logger to a console writer on stdout.
func InitLogger() {
	mu.Lock()
	defer mu.Unlock()

	customLog = newLogger(consoleWriter(os.Stdout))
}

// SetOutput redirects all logging to w. Used by tests to capture output.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	level := customLog.zl.GetLevel()
	customLog = newLogger(w)
	customLog.zl = customLog.zl.Level(level)
}

// SetLevel accepts zerolog level names (debug, info, warn, error).
func SetLevel(level string) error {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}

	mu.Lock()
	defer mu.Unlock()

	customLog.zl = customLog.zl.Level(lvl)
	return nil
}

// ResetLogger switches output to a JSON log file under <home>/logs.
func ResetLogger(home string) {
	var dir string
	if home == "" {
		osHome, err := os.UserHomeDir()
		if err != nil {
			Fatalf("Failed to get user home directory: %v", err)
		}
		dir = filepath.Join(osHome, ".flightsurety", "logs")
	} else {
		dir = filepath.Join(home, "logs")
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		Fatalf("Failed to create log directory %s: %v", dir, err)
	}

	name := fmt.Sprintf("%s.%d.log", filepath.Base(os.Args[0]), os.Getpid())
	path := filepath.Join(dir, name)
	file, err := os.Create(path)
	if err != nil {
		Fatalf("Failed to create log file: %v", err)
	}

	Infof("From now on, all logs will be written to %s", path)

	mu.Lock()
	level := customLog.zl.GetLevel()
	customLog = newLogger(file)
	customLog.zl = customLog.zl.Level(level)
	customLog.dir = dir
	mu.Unlock()
}

func Debug(v ...any) {
	l := current()
	l.Debug().Msg(fmt.Sprint(v...))
}

func Debugf(format string, v ...any) {
	l := current()
	l.Debug().Msgf(format, v...)
}

func Info(v ...any) {
	l := current()
	l.Info().Msg(fmt.Sprint(v...))
}

func Infof(format string, v ...any) {
	l := current()
	l.Info().Msgf(format, v...)
}

func Warnf(format string, v ...any) {
	l := current()
	l.Warn().Msgf(format, v...)
}

func Error(v ...any) {
	l := current()
	l.Error().Msg(fmt.Sprint(v...))
}

func Errorf(format string, v ...any) {
	l := current()
	l.Error().Msgf(format, v...)
}

func Fatal(v ...any) {
	l := current()
	l.Fatal().Msg(fmt.Sprint(v...))
}

func Fatalf(format string, v ...any) {
	l := current()
	l.Fatal().Msgf(format, v...)
}
