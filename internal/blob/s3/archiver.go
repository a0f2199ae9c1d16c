package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/skinwatch/skinarb/internal/domain"
)

// OpportunityArchiveStore provides the read access the archiver needs. The
// Postgres OpportunityStore satisfies it through its ListBefore method.
type OpportunityArchiveStore interface {
	ListBefore(ctx context.Context, before time.Time) ([]domain.ArbitrageOpportunity, error)
}

// ArchiveImpl implements domain.Archiver by querying opportunity history
// older than a cutoff, serialising it to JSONL, and uploading the result to
// object storage.
//
// Deletion of the archived rows is intentionally NOT performed here; the
// retention sweep runs separately after the archive upload has succeeded.
type ArchiveImpl struct {
	writer domain.BlobWriter
	opps   OpportunityArchiveStore
	logger *slog.Logger
}

// NewArchiver creates a new ArchiveImpl.
func NewArchiver(writer domain.BlobWriter, opps OpportunityArchiveStore, logger *slog.Logger) *ArchiveImpl {
	return &ArchiveImpl{
		writer: writer,
		opps:   opps,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveOpportunities uploads all opportunities detected strictly before
// the cutoff to archive/opportunities/YYYY-MM.jsonl and returns the number
// of records written. A cutoff with no matching rows uploads nothing.
func (a *ArchiveImpl) ArchiveOpportunities(ctx context.Context, before time.Time) (int64, error) {
	opps, err := a.opps.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities query: %w", err)
	}
	if len(opps) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(opps)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities marshal: %w", err)
	}

	path := archivePath("opportunities", before)
	if err := a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("s3blob: archive opportunities upload: %w", err)
	}

	count := int64(len(opps))
	a.logger.Info("archived opportunity history",
		slog.String("path", path),
		slog.Int64("count", count),
		slog.Time("before", before))
	return count, nil
}

// archivePath builds the object key for an archive file, partitioned by the
// year-month of the cutoff time, e.g. archive/opportunities/2026-08.jsonl.
func archivePath(kind string, before time.Time) string {
	return fmt.Sprintf("archive/%s/%s.jsonl", kind, before.Format("2006-01"))
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

// Compile-time interface check.
var _ domain.Archiver = (*ArchiveImpl)(nil)
