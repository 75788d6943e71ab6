package logging

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the process-wide structured logger. It writes to stderr until
// Init replaces it.
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

const maxRetentionDays = 7

// Init builds the logger at the given level, writing JSON lines to stdout
// and to a daily file under dir. The returned func stops rotation and
// closes the file.
func Init(level, dir string, retentionDays int) (func(), error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.DurationFieldUnit = time.Millisecond
	zerolog.DurationFieldInteger = true

	if retentionDays <= 0 || retentionDays > maxRetentionDays {
		retentionDays = maxRetentionDays
	}
	file, err := newDailyFile(dir, retentionDays)
	if err != nil {
		Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "ytmanager").Logger()
		return func() {}, err
	}
	Logger = zerolog.New(zerolog.MultiLevelWriter(os.Stdout, file)).With().
		Timestamp().
		Str("service", "ytmanager").
		Logger()

	ctx, cancel := context.WithCancel(context.Background())
	go file.rotateLoop(ctx)
	return func() {
		cancel()
		file.Close()
	}, nil
}

// dailyFile is an io.Writer over app-YYYY-MM-DD.log that switches files
// when the date changes.
type dailyFile struct {
	mu            sync.Mutex
	dir           string
	retentionDays int
	date          string
	file          *os.File
}

func newDailyFile(dir string, retentionDays int) (*dailyFile, error) {
	if dir == "" {
		dir = "storage/logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	d := &dailyFile{dir: dir, retentionDays: retentionDays}
	if err := d.open(time.Now().Format("2006-01-02")); err != nil {
		return nil, err
	}
	cleanupOldLogs(dir, retentionDays, time.Now())
	return d, nil
}

func (d *dailyFile) open(date string) error {
	name := filepath.Join(d.dir, fmt.Sprintf("app-%s.log", date))
	file, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if d.file != nil {
		_ = d.file.Close()
	}
	d.file = file
	d.date = date
	return nil
}

func (d *dailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file == nil {
		return len(p), nil
	}
	return d.file.Write(p)
}

func (d *dailyFile) rotateLoop(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			d.rotate(now)
		case <-ctx.Done():
			return
		}
	}
}

func (d *dailyFile) rotate(now time.Time) {
	date := now.Format("2006-01-02")
	d.mu.Lock()
	defer d.mu.Unlock()
	if date == d.date {
		return
	}
	if err := d.open(date); err == nil {
		cleanupOldLogs(d.dir, d.retentionDays, now)
	}
}

func (d *dailyFile) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.file != nil {
		_ = d.file.Close()
		d.file = nil
	}
}

func cleanupOldLogs(dir string, retentionDays int, now time.Time) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	cutoff := now.AddDate(0, 0, -(retentionDays - 1))
	cutoff = time.Date(cutoff.Year(), cutoff.Month(), cutoff.Day(), 0, 0, 0, 0, time.UTC)
	for _, entry := range entries {
		name := entry.Name()
		if !entry.Type().IsRegular() || !strings.HasPrefix(name, "app-") || !strings.HasSuffix(name, ".log") {
			continue
		}
		logDate, err := time.Parse("2006-01-02", strings.TrimSuffix(strings.TrimPrefix(name, "app-"), ".log"))
		if err != nil {
			continue
		}
		if logDate.Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, name))
		}
	}
}
