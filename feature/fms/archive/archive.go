// Package archive writes per-run provider snapshots to object storage so a
// reviewed change set can always be traced back to the exact external data
// that produced it.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/skatamatic/blulok-cloud-sub001/core/storage"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/models"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Writer archives sync run snapshots. Archiving is best-effort: the sync
// orchestrator logs failures and carries on, so a flaky object store never
// fails a run.
type Writer struct {
	client storage.Client
	bucket string
	logger *zap.Logger
}

// NewWriter creates an archive writer for the given bucket.
func NewWriter(client storage.Client, bucket string, logger *zap.Logger) *Writer {
	return &Writer{client: client, bucket: bucket, logger: logger}
}

// record is the archived document: the raw snapshot plus run metadata.
type record struct {
	SyncLogID    string              `json:"sync_log_id"`
	FacilityID   string              `json:"facility_id"`
	ProviderType models.ProviderType `json:"provider_type"`
	ArchivedAt   time.Time           `json:"archived_at"`
	Snapshot     *models.Snapshot    `json:"snapshot"`
}

// ObjectName returns the key a run's snapshot is stored under.
func ObjectName(facilityID, syncLogID string) string {
	return fmt.Sprintf("snapshots/%s/%s.json", facilityID, syncLogID)
}

// ArchiveSnapshot uploads the snapshot of one sync run, creating the bucket
// on first use.
func (w *Writer) ArchiveSnapshot(ctx context.Context, log *models.SyncLog, providerType models.ProviderType, snapshot *models.Snapshot) error {
	exists, err := w.client.BucketExists(ctx, w.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := w.client.MakeBucket(ctx, w.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	data, err := json.Marshal(record{
		SyncLogID:    log.ID,
		FacilityID:   log.FacilityID,
		ProviderType: providerType,
		ArchivedAt:   time.Now().UTC(),
		Snapshot:     snapshot,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	name := ObjectName(log.FacilityID, log.ID)
	_, err = w.client.PutObject(ctx, w.bucket, name, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot: %w", err)
	}

	w.logger.Debug("Archived sync snapshot",
		zap.String("sync_log_id", log.ID),
		zap.String("object", name))
	return nil
}

// FetchSnapshot retrieves a previously archived snapshot document.
func (w *Writer) FetchSnapshot(ctx context.Context, facilityID, syncLogID string) (*models.Snapshot, error) {
	obj, err := w.client.GetObject(ctx, w.bucket, ObjectName(facilityID, syncLogID), minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshot: %w", err)
	}
	defer obj.Close()

	var rec record
	if err := json.NewDecoder(obj).Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return rec.Snapshot, nil
}
