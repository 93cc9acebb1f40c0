// internal/infra/logger/logger.go
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"daily_quote_mailer/internal/infra/config"

	"github.com/sirupsen/logrus"
)

var (
	setupOnce sync.Once
	shared    *logrus.Logger
	setupErr  error
)

// Setup builds the process logger: console plus a per-day file under cfg.LogDir.
// The file switches to quotes_YYYYMMDD.log of the current date on the first write of each day.
// Only the first call attaches sinks; later calls return the same logger and error.
func Setup(cfg *config.AppConfig) (*logrus.Logger, error) {
	setupOnce.Do(func() {
		file, err := newDailyFile(cfg.LogDir, time.Now)
		if err != nil {
			setupErr = err
			return
		}
		shared = New(cfg, os.Stdout, file)
	})
	return shared, setupErr
}

// dailyFile appends to quotes_YYYYMMDD.log and moves to a new file when the date changes.
type dailyFile struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	day  string
	file *os.File
}

func newDailyFile(dir string, now func() time.Time) (*dailyFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	d := &dailyFile{dir: dir, now: now}
	if err := d.rotate(now().Format("20060102")); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *dailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if day := d.now().Format("20060102"); day != d.day {
		if err := d.rotate(day); err != nil {
			return 0, err
		}
	}
	return d.file.Write(p)
}

func (d *dailyFile) rotate(day string) error {
	name := filepath.Join(d.dir, fmt.Sprintf("quotes_%s.log", day))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	if d.file != nil {
		d.file.Close()
	}
	d.file, d.day = f, day
	return nil
}

func (d *dailyFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.file.Close()
}

// New returns a logger writing every entry to both console and file.
// Either sink may be nil.
func New(cfg *config.AppConfig, console, file io.Writer) *logrus.Logger {
	log := logrus.New()

	var sinks []io.Writer
	for _, w := range []io.Writer{console, file} {
		if w != nil {
			sinks = append(sinks, w)
		}
	}
	if len(sinks) == 0 {
		log.SetOutput(io.Discard)
	} else {
		log.SetOutput(io.MultiWriter(sinks...))
	}

	// Set Log Level
	level, err := logrus.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil {
		log.Warnf("Invalid log level '%s', defaulting to 'info'. Error: %v", cfg.LogLevel, err)
		log.SetLevel(logrus.InfoLevel)
	} else {
		log.SetLevel(level)
	}

	// Set Log Formatter
	if env := strings.ToLower(cfg.Environment); env == "production" || env == "staging" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00", // ISO8601
		})
	} else {
		// Colors would end up as escape codes in the log file.
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			DisableColors:   file != nil,
		})
	}

	log.Debugf("Log level set to: %s", log.GetLevel().String())
	log.Debugf("Log format set for environment: %s", cfg.Environment)
	return log
}
