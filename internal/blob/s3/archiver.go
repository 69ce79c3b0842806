package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/celvios/Base-Jungle-sub000/internal/domain"
)

// LotArchiveStore is the slice of the lot store the archiver needs: reading
// archivable lots and flagging the exported ones. Rows are never deleted
// from the primary store; the archive is a cold copy, not a migration.
type LotArchiveStore interface {
	ListConsumedBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.DepositLot, error)
	MarkArchived(ctx context.Context, lotIDs []string) error
}

// archiveBatchLimit caps how many lots one archive pass exports.
const archiveBatchLimit = 5000

// Archiver exports fully consumed deposit lots and keeper cycle reports to
// cold storage as JSONL, partitioned by year-month.
type Archiver struct {
	writer    domain.BlobWriter
	lots      LotArchiveStore
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewArchiver creates an Archiver. retention is how long a consumed lot stays
// exclusive to the primary store before export.
func NewArchiver(writer domain.BlobWriter, lots LotArchiveStore, retention time.Duration, logger *slog.Logger) *Archiver {
	return &Archiver{
		writer:    writer,
		lots:      lots,
		retention: retention,
		logger:    logger.With(slog.String("component", "archiver")),
		now:       time.Now,
	}
}

// ArchiveLots exports fully consumed lots older than the retention window and
// marks them archived. It returns the number of lots exported.
func (a *Archiver) ArchiveLots(ctx context.Context) (int, error) {
	cutoff := a.now().UTC().Add(-a.retention)

	lots, err := a.lots.ListConsumedBefore(ctx, cutoff, archiveBatchLimit)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive lots query: %w", err)
	}
	if len(lots) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(lots)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive lots marshal: %w", err)
	}

	path := lotArchivePath(a.now().UTC())
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive lots upload: %w", err)
	}

	ids := make([]string, len(lots))
	for i, l := range lots {
		ids[i] = l.ID
	}
	if err := a.lots.MarkArchived(ctx, ids); err != nil {
		// The upload made it; failing to flag means a re-export next pass,
		// never data loss.
		return len(lots), fmt.Errorf("s3blob: mark lots archived: %w", err)
	}

	a.logger.InfoContext(ctx, "lots archived",
		slog.Int("count", len(lots)),
		slog.String("path", path),
	)
	return len(lots), nil
}

// ArchiveReport appends one cycle report to the month's report object. Each
// report is uploaded under a timestamped key so uploads never clobber each
// other.
func (a *Archiver) ArchiveReport(ctx context.Context, report domain.CycleReport) error {
	buf, err := marshalJSONL([]domain.CycleReport{report})
	if err != nil {
		return fmt.Errorf("s3blob: archive report marshal: %w", err)
	}

	path := fmt.Sprintf("archive/reports/%s/%s-%s.jsonl",
		report.StartedAt.Format("2006-01"),
		report.Agent,
		report.StartedAt.Format("20060102T150405Z"),
	)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return fmt.Errorf("s3blob: archive report upload: %w", err)
	}
	return nil
}

// lotArchivePath builds the S3 key for one lot export, partitioned by
// year-month and keyed by the run timestamp so batches within a month never
// clobber each other.
//
//	archive/lots/2026-08/lots-20260831T120000Z.jsonl
func lotArchivePath(runAt time.Time) string {
	return fmt.Sprintf("archive/lots/%s/lots-%s.jsonl",
		runAt.Format("2006-01"),
		runAt.Format("20060102T150405Z"),
	)
}

// marshalJSONL serialises a slice of values as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
