package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/predictumhq/predictum/internal/domain"
)

// OpportunityArchiveStore is the slice of the opportunity store the archiver
// needs: reading expired rows and pruning them once uploaded.
type OpportunityArchiveStore interface {
	ListExpiredBefore(ctx context.Context, before time.Time) ([]domain.Opportunity, error)
	DeleteExpiredBefore(ctx context.Context, before time.Time) (int64, error)
}

// Archiver moves expired opportunities past the retention window out of the
// database and into object storage as JSONL. The upload completes before any
// row is deleted, so a failed upload leaves the database untouched.
type Archiver struct {
	writer *Writer
	opps   OpportunityArchiveStore
}

// NewArchiver creates a new Archiver.
func NewArchiver(writer *Writer, opps OpportunityArchiveStore) *Archiver {
	return &Archiver{writer: writer, opps: opps}
}

// ArchiveExpired uploads expired opportunities last detected before the
// cutoff and then prunes them. It returns the number of rows archived.
func (a *Archiver) ArchiveExpired(ctx context.Context, before time.Time) (int64, error) {
	opps, err := a.opps.ListExpiredBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive query: %w", err)
	}
	if len(opps) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(opps)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive marshal: %w", err)
	}

	path := archivePath(before)
	if int64(len(buf)) >= minPartSize {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive upload: %w", err)
	}

	if _, err := a.opps.DeleteExpiredBefore(ctx, before); err != nil {
		return int64(len(opps)), fmt.Errorf("s3blob: archive prune: %w", err)
	}
	return int64(len(opps)), nil
}

// archivePath builds the object key for a cutoff, one file per run.
func archivePath(before time.Time) string {
	return fmt.Sprintf("archive/opportunities/%s/%d.jsonl",
		before.UTC().Format("2006-01"), before.UTC().Unix())
}

// marshalJSONL serializes records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range records {
		if err := enc.Encode(records[i]); err != nil {
			return nil, fmt.Errorf("encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}
