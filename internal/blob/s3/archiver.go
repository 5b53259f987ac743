package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/drolelabs/drole/internal/snapshot"
)

// BlobWriter is the narrow upload surface the archiver needs.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver uploads point-in-time copies of the simulator state to object
// storage, one JSON document per archive, partitioned by timestamp. The hot
// snapshot in the KV backend remains the restore source; archives exist for
// retention and offline inspection.
type Archiver struct {
	writer BlobWriter
	export snapshot.Exporter
	now    func() time.Time
}

// NewArchiver creates an Archiver over the given writer.
func NewArchiver(writer BlobWriter, export snapshot.Exporter) *Archiver {
	return &Archiver{
		writer: writer,
		export: export,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Archive serializes the current state and uploads it under
// archive/state/<RFC3339 timestamp>.json. It returns the object key.
func (a *Archiver) Archive(ctx context.Context) (string, error) {
	st := a.export()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return "", fmt.Errorf("s3blob: archive marshal: %w", err)
	}

	path := fmt.Sprintf("archive/state/%s.json", a.now().Format("2006-01-02T150405Z"))
	if err := a.writer.Put(ctx, path, bytes.NewReader(data), "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: archive upload: %w", err)
	}
	return path, nil
}
