// Package logging wires up the decred/slog backend tonksrv and its
// subsystems log through, following the same slog.NewBackend(writer)
// shape the teacher's e2e harness and pkg/server/pkg/client loggers use,
// extended with a rotating file writer via jrick/logrotate — the
// companion library decred projects pair with slog for long-running
// daemons, present in the teacher's go.mod but never exercised by any
// file the retrieval pack kept.
package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"
)

// Backend fans log output to stdout and a rotating file, and hands out a
// named slog.Logger per subsystem (table, store, wallet, transport, ...)
// at a shared level.
type Backend struct {
	backend *slog.Backend
	level   slog.Level
	rotator *rotator.Rotator
}

// rotatingWriter serialises writes to the rotator, which is not itself
// safe for concurrent use from multiple logger backends.
type rotatingWriter struct {
	mu sync.Mutex
	r  *rotator.Rotator
}

func (w *rotatingWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.r.Write(p)
}

// New opens logPath for rotating output (created if missing, rolled every
// 32MiB — rotator's threshold is in KiB — keeping 3 prior rolls) and fans
// every write to both it and stdout.
func New(logPath, levelName string) (*Backend, error) {
	level, ok := slog.LevelFromString(levelName)
	if !ok {
		return nil, fmt.Errorf("logging: unknown level %q", levelName)
	}

	r, err := rotator.New(logPath, 32*1024, false, 3)
	if err != nil {
		return nil, fmt.Errorf("logging: open rotator: %w", err)
	}

	w := io.MultiWriter(os.Stdout, &rotatingWriter{r: r})
	return &Backend{
		backend: slog.NewBackend(w),
		level:   level,
		rotator: r,
	}, nil
}

// Logger returns a named logger at the backend's configured level, e.g.
// Logger("table") for internal/table's log lines.
func (b *Backend) Logger(subsystem string) slog.Logger {
	l := b.backend.Logger(subsystem)
	l.SetLevel(b.level)
	return l
}

// Close flushes and closes the rotating file.
func (b *Backend) Close() error {
	return b.rotator.Close()
}
