// internal/storage/artifact/archiver.go
package artifact

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prismfin/prism/internal/core"
)

// Archiver persists rendered presentation artifacts under
// <date>/<session>/<name>, one directory per present cycle.
type Archiver struct {
	store  Storage
	logger *zap.Logger
	now    func() time.Time
}

// NewArchiver creates an archiver over the given backend.
func NewArchiver(store Storage, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{store: store, logger: logger, now: time.Now}
}

// SaveChart stores a rendered chart for a session and returns the path.
func (a *Archiver) SaveChart(ctx context.Context, sessionID string, slot core.ChartSlot, contentType string, data []byte) (string, error) {
	path := fmt.Sprintf("%s/%s/%s%s",
		a.now().Format("2006-01-02"), sessionID, slot, extension(contentType))
	if err := a.store.Write(ctx, path, data); err != nil {
		return "", core.WrapError(core.ErrStorageFailed, err)
	}
	a.logger.Debug("chart archived", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}

// SaveExport stores a CSV export for a session and returns the path.
func (a *Archiver) SaveExport(ctx context.Context, sessionID, name string, data []byte) (string, error) {
	path := fmt.Sprintf("%s/%s/%s", a.now().Format("2006-01-02"), sessionID, name)
	if err := a.store.Write(ctx, path, data); err != nil {
		return "", core.WrapError(core.ErrStorageFailed, err)
	}
	return path, nil
}

// ListSession returns every artifact stored for a session on a given day.
func (a *Archiver) ListSession(ctx context.Context, day time.Time, sessionID string) ([]string, error) {
	paths, err := a.store.List(ctx, fmt.Sprintf("%s/%s", day.Format("2006-01-02"), sessionID))
	if err != nil {
		return nil, core.WrapError(core.ErrStorageFailed, err)
	}
	return paths, nil
}

func extension(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	default:
		return ".txt"
	}
}
